package service

import (
	"strings"

	"github.com/diario-app/diario-back/internal/db"
)

// BookAll matches every book when passed to FilterEntries.
const BookAll uint64 = 0

// FilterEntries keeps entries that belong to the given book (BookAll keeps
// all) and whose title, content or any tag name contains the search term,
// case-insensitively. Order is preserved and the input is never modified.
func FilterEntries(entries []db.Entry, bookID uint64, search string) []db.Entry {
	term := strings.ToLower(search)

	out := make([]db.Entry, 0, len(entries))
	for _, entry := range entries {
		if bookID != BookAll && !entryHasBook(entry, bookID) {
			continue
		}
		if term != "" && !entryMatches(entry, term) {
			continue
		}
		out = append(out, entry)
	}
	return out
}

func entryHasBook(entry db.Entry, bookID uint64) bool {
	for _, book := range entry.Books {
		if book.ID == bookID {
			return true
		}
	}
	return false
}

func entryMatches(entry db.Entry, term string) bool {
	if strings.Contains(strings.ToLower(entry.Title), term) {
		return true
	}
	if strings.Contains(strings.ToLower(entry.Content), term) {
		return true
	}
	for _, tag := range entry.Tags {
		if strings.Contains(strings.ToLower(tag.Name), term) {
			return true
		}
	}
	return false
}
