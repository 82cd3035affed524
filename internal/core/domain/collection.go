package domain

import (
	"slices"
	"time"
)

// Collection groups notes of a user. Notes must mirror, in order of
// insertion, the set of notes whose CollectionID equals ID.
type Collection struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     string    `json:"user"`
	Notes       []string  `json:"notes"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Contains reports whether noteID is listed as a member.
func (c *Collection) Contains(noteID string) bool {
	return slices.Contains(c.Notes, noteID)
}
