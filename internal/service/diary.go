package service

import (
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diario-app/diario-back/internal/db"
)

var (
	ErrNoOwner         = errors.New("no authenticated owner")
	ErrNameRequired    = errors.New("name is required")
	ErrEntryIncomplete = errors.New("entry needs a title, content and at least one book")
	ErrEntryNotFound   = errors.New("entry not found")
	ErrBookNotFound    = errors.New("book not found")
	ErrTagNotFound     = errors.New("tag not found")
)

// Diary owns every read and write against the three collections and keeps
// the entry/book and entry/tag links consistent.
type Diary struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func NewDiary(db *gorm.DB, l *zap.SugaredLogger) *Diary {
	return &Diary{
		db:     db,
		logger: l,
	}
}

// ListBooks returns the owner's books in creation order.
func (s *Diary) ListBooks(userID uint64) ([]db.Book, error) {
	books := make([]db.Book, 0)
	if userID == 0 {
		return books, nil
	}

	res := s.db.Where("user_id = ?", userID).Order("id").Find(&books)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "list books")
	}
	return books, nil
}

// ListTags returns the owner's tags alphabetically.
func (s *Diary) ListTags(userID uint64) ([]db.Tag, error) {
	tags := make([]db.Tag, 0)
	if userID == 0 {
		return tags, nil
	}

	res := s.db.Where("user_id = ?", userID).Order("name").Find(&tags)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "list tags")
	}
	return tags, nil
}

// ListEntries returns the owner's entries newest first, each hydrated with
// its books and tags. A non-zero bookID narrows the result to entries linked
// to that book through the entry_books table.
func (s *Diary) ListEntries(userID, bookID uint64) ([]db.Entry, error) {
	entries := make([]db.Entry, 0)
	if userID == 0 {
		return entries, nil
	}

	q := s.db.
		Preload("Books", func(tx *gorm.DB) *gorm.DB { return tx.Order("books.id") }).
		Preload("Tags", func(tx *gorm.DB) *gorm.DB { return tx.Order("tags.name") }).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC")

	if bookID != 0 {
		sql, args, err := squirrel.
			Select("eb.entry_id").From("entry_books eb").
			Where(squirrel.Eq{"eb.book_id": bookID}).
			ToSql()
		if err != nil {
			return nil, errors.Wrap(err, "build sql")
		}

		ids := make([]uint64, 0)
		res := s.db.Raw(sql, args...).Scan(&ids)
		if res.Error != nil {
			return nil, errors.Wrap(res.Error, "scan entry ids")
		}
		if len(ids) == 0 {
			return entries, nil
		}
		q = q.Where("id IN ?", ids)
	}

	res := q.Find(&entries)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "list entries")
	}
	return entries, nil
}

func (s *Diary) AddBook(userID uint64, name, description string) (*db.Book, error) {
	if userID == 0 {
		return nil, ErrNoOwner
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrNameRequired
	}

	model := db.Book{
		Name:        name,
		Description: description,
		UserID:      userID,
	}

	res := s.db.Create(&model)
	if res.Error != nil {
		return nil, res.Error
	}

	return &model, nil
}

// DeleteBook removes the book and prunes its link rows. Entries filed under
// the book survive with the book gone from their book list.
func (s *Diary) DeleteBook(userID, bookID uint64) error {
	if userID == 0 {
		return ErrNoOwner
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ?", userID).Delete(&db.Book{}, bookID)
		if res.Error != nil {
			return errors.Wrap(res.Error, "delete book")
		}
		if res.RowsAffected == 0 {
			return ErrBookNotFound
		}

		res = tx.Where("book_id = ?", bookID).Delete(&db.EntryBook{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "prune book links")
		}
		return nil
	})
}

func (s *Diary) AddTag(userID uint64, name string) (*db.Tag, error) {
	if userID == 0 {
		return nil, ErrNoOwner
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrNameRequired
	}

	model := db.Tag{
		Name:   name,
		UserID: userID,
	}

	res := s.db.Create(&model)
	if res.Error != nil {
		return nil, res.Error
	}

	return &model, nil
}

func (s *Diary) DeleteTag(userID, tagID uint64) error {
	if userID == 0 {
		return ErrNoOwner
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ?", userID).Delete(&db.Tag{}, tagID)
		if res.Error != nil {
			return errors.Wrap(res.Error, "delete tag")
		}
		if res.RowsAffected == 0 {
			return ErrTagNotFound
		}

		res = tx.Where("tag_id = ?", tagID).Delete(&db.EntryTag{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "prune tag links")
		}
		return nil
	})
}

// SaveEntry writes an entry and replaces its link rows with exactly the
// selected books and tags, which must belong to the owner. entryID 0
// creates, anything else updates.
// The whole sequence runs in one transaction so a failed step leaves no
// half-linked entry behind.
func (s *Diary) SaveEntry(userID, entryID uint64, title, content string, bookIDs, tagIDs []uint64) (*db.Entry, error) {
	if userID == 0 {
		return nil, ErrNoOwner
	}
	if title == "" || content == "" || len(bookIDs) == 0 {
		return nil, ErrEntryIncomplete
	}

	bookIDs = dedupeIDs(bookIDs)
	tagIDs = dedupeIDs(tagIDs)

	entry := db.Entry{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Links may only point at the owner's rows.
		var count int64
		res := tx.Model(&db.Book{}).Where("user_id = ? AND id IN ?", userID, bookIDs).Count(&count)
		if res.Error != nil {
			return errors.Wrap(res.Error, "check books")
		}
		if count != int64(len(bookIDs)) {
			return ErrBookNotFound
		}
		if len(tagIDs) != 0 {
			res = tx.Model(&db.Tag{}).Where("user_id = ? AND id IN ?", userID, tagIDs).Count(&count)
			if res.Error != nil {
				return errors.Wrap(res.Error, "check tags")
			}
			if count != int64(len(tagIDs)) {
				return ErrTagNotFound
			}
		}

		if entryID != 0 {
			res := tx.Where("user_id = ?", userID).First(&entry, entryID)
			if res.Error != nil {
				if errors.Is(res.Error, gorm.ErrRecordNotFound) {
					return ErrEntryNotFound
				}
				return errors.Wrap(res.Error, "find entry")
			}

			res = tx.Model(&entry).Updates(map[string]interface{}{
				"title":   title,
				"content": content,
			})
			if res.Error != nil {
				return errors.Wrap(res.Error, "update entry")
			}

			// Full replace: old links go unconditionally, no diffing.
			res = tx.Where("entry_id = ?", entry.ID).Delete(&db.EntryBook{})
			if res.Error != nil {
				return errors.Wrap(res.Error, "clear book links")
			}
			res = tx.Where("entry_id = ?", entry.ID).Delete(&db.EntryTag{})
			if res.Error != nil {
				return errors.Wrap(res.Error, "clear tag links")
			}
		} else {
			entry = db.Entry{
				Title:   title,
				Content: content,
				UserID:  userID,
			}
			res := tx.Create(&entry)
			if res.Error != nil {
				return errors.Wrap(res.Error, "insert entry")
			}
		}

		bookLinks := make([]db.EntryBook, len(bookIDs))
		for i := range bookIDs {
			bookLinks[i] = db.EntryBook{EntryID: entry.ID, BookID: bookIDs[i]}
		}
		res = tx.Create(&bookLinks)
		if res.Error != nil {
			return errors.Wrap(res.Error, "link books")
		}

		if len(tagIDs) != 0 {
			tagLinks := make([]db.EntryTag, len(tagIDs))
			for i := range tagIDs {
				tagLinks[i] = db.EntryTag{EntryID: entry.ID, TagID: tagIDs[i]}
			}
			res := tx.Create(&tagLinks)
			if res.Error != nil {
				return errors.Wrap(res.Error, "link tags")
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	entry.Title = title
	entry.Content = content
	return &entry, nil
}

func dedupeIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// DeleteEntry removes the entry and its link rows.
func (s *Diary) DeleteEntry(userID, entryID uint64) error {
	if userID == 0 {
		return ErrNoOwner
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ?", userID).Delete(&db.Entry{}, entryID)
		if res.Error != nil {
			return errors.Wrap(res.Error, "delete entry")
		}
		if res.RowsAffected == 0 {
			return ErrEntryNotFound
		}

		res = tx.Where("entry_id = ?", entryID).Delete(&db.EntryBook{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "prune book links")
		}
		res = tx.Where("entry_id = ?", entryID).Delete(&db.EntryTag{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "prune tag links")
		}
		return nil
	})
}
