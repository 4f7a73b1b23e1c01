package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/diario-app/diario-back/internal/db"
)

func TestDraftBeginEdit(t *testing.T) {
	entry := db.Entry{
		Model:   db.Model{ID: 7},
		Title:   "Day one",
		Content: "It rained.",
		Books: []db.Book{
			{Model: db.Model{ID: 1}},
			{Model: db.Model{ID: 2}},
		},
		Tags: []db.Tag{
			{Model: db.Model{ID: 10}},
		},
	}

	d := Draft{}
	d.BeginEdit(entry)

	assert.True(t, d.Editing())
	assert.Equal(t, uint64(7), d.EditingID)
	assert.Equal(t, "Day one", d.Title)
	assert.Equal(t, "It rained.", d.Content)
	assert.Equal(t, []uint64{1, 2}, d.BookIDs)
	assert.Equal(t, []uint64{10}, d.TagIDs)
}

func TestDraftToggle(t *testing.T) {
	d := Draft{}

	d.ToggleTag(10)
	d.ToggleTag(11)
	assert.Equal(t, []uint64{10, 11}, d.TagIDs)

	d.ToggleTag(10)
	assert.Equal(t, []uint64{11}, d.TagIDs)

	d.ToggleBook(1)
	assert.Equal(t, []uint64{1}, d.BookIDs)
	d.ToggleBook(1)
	assert.Empty(t, d.BookIDs)
}

func TestDraftReset(t *testing.T) {
	d := Draft{
		Title:     "Day one",
		Content:   "It rained.",
		BookIDs:   []uint64{1},
		TagIDs:    []uint64{10},
		EditingID: 7,
	}

	d.Reset()

	assert.False(t, d.Editing())
	assert.Equal(t, Draft{}, d)
}
