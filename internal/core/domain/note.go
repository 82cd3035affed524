package domain

import "time"

// Note is a titled text owned by exactly one user. CollectionID, when set,
// names the single collection the note belongs to.
type Note struct {
	ID           string    `json:"_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	OwnerID      string    `json:"user"`
	CollectionID *string   `json:"collectionId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// InCollection reports whether the note currently points at collectionID.
func (n *Note) InCollection(collectionID string) bool {
	return n.CollectionID != nil && *n.CollectionID == collectionID
}
