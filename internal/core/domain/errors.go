package domain

import (
	"errors"
	"strings"
)

// Sentinel kinds. The HTTP layer maps each one to a status code; the text of
// the sentinel is the default message sent to the client.
var (
	ErrUnauthenticated    = errors.New("Unauthorized")
	ErrInvalidToken       = errors.New("Invalid token")
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrForbidden          = errors.New("access forbidden")
	ErrDuplicateUsername  = errors.New("Username is already taken")
	ErrUserNotFound       = errors.New("User not found")
	ErrNoteNotFound       = errors.New("Note not found")
	ErrCollectionNotFound = errors.New("Collection not found")
	// ErrUnknownCollection is returned when a request references a collection
	// that does not exist. Unlike ErrCollectionNotFound it is a client error
	// about the payload, not about the addressed resource.
	ErrUnknownCollection = errors.New("Collection not found")
	ErrInvalidID         = errors.New("Invalid MongoDB ObjectID")
)

// Error attaches a client-facing message to one of the sentinel kinds above.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() error { return e.Kind }

// Errorf returns an error of the given kind rendered with msg.
func Errorf(kind error, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// FieldError is a single failed field check.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every failed field so clients can show all problems at once.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}

// Add appends a field failure.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil returns e when it holds at least one failure.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// NewValidationError builds a ValidationError with a single field failure.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}
