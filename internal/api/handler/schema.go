package handler

import (
	"encoding/json"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/wlcham/notes-server/internal/core/domain"
	"github.com/wlcham/notes-server/internal/core/ports"
)

// errorResponse is the standard error envelope returned on 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// validationResponse lists every failed field of a request.
type validationResponse struct {
	Errors []domain.FieldError `json:"errors"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// --- Auth ---

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=4"`
	IsAdmin  bool   `json:"is_admin"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// --- Notes ---

type createNoteRequest struct {
	Title        string `json:"title"        validate:"required"`
	Description  string `json:"description"  validate:"required"`
	CollectionID string `json:"collectionId" validate:"omitempty,mongodb"`
}

type updateNoteRequest struct {
	Title        string     `json:"title"       validate:"required"`
	Description  string     `json:"description" validate:"required"`
	CollectionID nullableID `json:"collectionId" swaggertype:"string"`
}

type assignNoteRequest struct {
	NoteID           string     `json:"noteID"           validate:"required,mongodb"`
	NoteCollectionID nullableID `json:"noteCollectionID" swaggertype:"string"`
}

type noteRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type collectionRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type assignResponse struct {
	Message    string         `json:"message"`
	Note       noteRef        `json:"note"`
	Collection *collectionRef `json:"collection"`
}

// --- Collections ---

type createCollectionRequest struct {
	Name        string   `json:"name"        validate:"required"`
	Description string   `json:"description" validate:"required"`
	Notes       []string `json:"notes"`
}

type updateCollectionRequest struct {
	Name        string   `json:"name"        validate:"required"`
	Description string   `json:"description" validate:"required"`
	Notes       []string `json:"notes"`
}

type relatedNotesRequest struct {
	NoteCollectionID string `json:"noteCollectionID" query:"noteCollectionID" validate:"required,mongodb"`
}

type createCollectionResponse struct {
	Message    string                  `json:"message"`
	Collection *ports.CollectionDetail `json:"collection"`
}

// --- Users ---

type updateUserRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
}

type deleteUserResponse struct {
	Message            string `json:"message"`
	DeletedNotes       int64  `json:"deletedNotes"`
	DeletedCollections int64  `json:"deletedCollections"`
}

// nullableID tells an absent JSON field apart from an explicit null.
type nullableID struct {
	set   bool
	null  bool
	value string
}

func (n *nullableID) UnmarshalJSON(b []byte) error {
	n.set = true
	if string(b) == "null" {
		n.null = true
		return nil
	}
	return json.Unmarshal(b, &n.value)
}

// optional converts n into a domain.OptionalID. Anything other than null or a
// well-formed ObjectID is rejected, including the empty string.
func (n nullableID) optional(field string) (domain.OptionalID, error) {
	switch {
	case !n.set:
		return domain.Unspecified(), nil
	case n.null:
		return domain.SetNull(), nil
	case primitive.IsValidObjectID(n.value):
		return domain.SetTo(n.value), nil
	}
	return domain.OptionalID{}, domain.NewValidationError(field, "Collection ID must be null or a valid ObjectId")
}
