package service

import (
	"github.com/diario-app/diario-back/internal/db"
)

// Draft is the transient composition state for one entry. The zero value is
// the idle state; it belongs to the caller, never to the store, so it can be
// serialized with any view state the caller carries around.
type Draft struct {
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	BookIDs   []uint64 `json:"book_ids"`
	TagIDs    []uint64 `json:"tag_ids"`
	EditingID uint64   `json:"editing_id,omitempty"`
}

// BeginEdit populates the draft from an existing entry.
func (d *Draft) BeginEdit(entry db.Entry) {
	d.Title = entry.Title
	d.Content = entry.Content
	d.BookIDs = make([]uint64, len(entry.Books))
	for i := range entry.Books {
		d.BookIDs[i] = entry.Books[i].ID
	}
	d.TagIDs = make([]uint64, len(entry.Tags))
	for i := range entry.Tags {
		d.TagIDs[i] = entry.Tags[i].ID
	}
	d.EditingID = entry.ID
}

// ToggleTag adds the tag to the selection if absent, removes it if present.
func (d *Draft) ToggleTag(tagID uint64) {
	for i := range d.TagIDs {
		if d.TagIDs[i] == tagID {
			d.TagIDs = append(d.TagIDs[:i], d.TagIDs[i+1:]...)
			return
		}
	}
	d.TagIDs = append(d.TagIDs, tagID)
}

// ToggleBook mirrors ToggleTag for the book selection.
func (d *Draft) ToggleBook(bookID uint64) {
	for i := range d.BookIDs {
		if d.BookIDs[i] == bookID {
			d.BookIDs = append(d.BookIDs[:i], d.BookIDs[i+1:]...)
			return
		}
	}
	d.BookIDs = append(d.BookIDs, bookID)
}

func (d *Draft) Editing() bool {
	return d.EditingID != 0
}

// Reset returns the draft to idle, clearing every transient field.
func (d *Draft) Reset() {
	*d = Draft{}
}
