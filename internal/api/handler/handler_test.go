package handler

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/wlcham/notes-server/internal/core/domain"
	"github.com/wlcham/notes-server/internal/core/ports"
)

const (
	noteID       = "65f000000000000000000001"
	collectionID = "65f0000000000000000000c1"
	userID       = "65f0000000000000000000a1"
)

var alice = domain.Identity{UserID: userID, Username: "alice"}

// newContext builds an echo.Context for method and target with a JSON body.
// A zero identity leaves the request unauthenticated.
func newContext(method, target string, body io.Reader, id domain.Identity) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if id.UserID != "" {
		c.Set("identity", id)
	}
	return c, rec
}

func withParam(c echo.Context, name, value string) echo.Context {
	c.SetParamNames(name)
	c.SetParamValues(value)
	return c
}

func validationFields(t *testing.T, err error) map[string]string {
	t.Helper()
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	out := make(map[string]string, len(ve.Fields))
	for _, f := range ve.Fields {
		out[f.Field] = f.Message
	}
	return out
}

// --- Stubs ---

type stubNoteService struct {
	listFn   func(ctx context.Context, actor domain.Identity, in ports.ListNotesInput) (*ports.NotePage, error)
	getFn    func(ctx context.Context, actor domain.Identity, id string) (*ports.NoteDetail, error)
	createFn func(ctx context.Context, actor domain.Identity, in ports.CreateNoteInput) (*domain.Note, error)
	updateFn func(ctx context.Context, actor domain.Identity, id string, in ports.UpdateNoteInput) (*domain.Note, error)
	assignFn func(ctx context.Context, actor domain.Identity, noteID string, collectionID *string) (*ports.AssignResult, error)
	deleteFn func(ctx context.Context, actor domain.Identity, id string) error
}

func (s *stubNoteService) List(ctx context.Context, actor domain.Identity, in ports.ListNotesInput) (*ports.NotePage, error) {
	return s.listFn(ctx, actor, in)
}

func (s *stubNoteService) Get(ctx context.Context, actor domain.Identity, id string) (*ports.NoteDetail, error) {
	return s.getFn(ctx, actor, id)
}

func (s *stubNoteService) Create(ctx context.Context, actor domain.Identity, in ports.CreateNoteInput) (*domain.Note, error) {
	return s.createFn(ctx, actor, in)
}

func (s *stubNoteService) Update(ctx context.Context, actor domain.Identity, id string, in ports.UpdateNoteInput) (*domain.Note, error) {
	return s.updateFn(ctx, actor, id, in)
}

func (s *stubNoteService) Assign(ctx context.Context, actor domain.Identity, noteID string, collectionID *string) (*ports.AssignResult, error) {
	return s.assignFn(ctx, actor, noteID, collectionID)
}

func (s *stubNoteService) Delete(ctx context.Context, actor domain.Identity, id string) error {
	return s.deleteFn(ctx, actor, id)
}

type stubCollectionService struct {
	listFn    func(ctx context.Context, actor domain.Identity) ([]*domain.Collection, error)
	getFn     func(ctx context.Context, actor domain.Identity, id string) (*ports.CollectionDetail, error)
	relatedFn func(ctx context.Context, actor domain.Identity, id string) ([]*domain.Note, error)
	createFn  func(ctx context.Context, actor domain.Identity, in ports.CreateCollectionInput) (*ports.CollectionDetail, error)
	updateFn  func(ctx context.Context, actor domain.Identity, id string, in ports.UpdateCollectionInput) (*domain.Collection, error)
	deleteFn  func(ctx context.Context, actor domain.Identity, id string) error
}

func (s *stubCollectionService) List(ctx context.Context, actor domain.Identity) ([]*domain.Collection, error) {
	return s.listFn(ctx, actor)
}

func (s *stubCollectionService) Get(ctx context.Context, actor domain.Identity, id string) (*ports.CollectionDetail, error) {
	return s.getFn(ctx, actor, id)
}

func (s *stubCollectionService) RelatedNotes(ctx context.Context, actor domain.Identity, id string) ([]*domain.Note, error) {
	return s.relatedFn(ctx, actor, id)
}

func (s *stubCollectionService) Create(ctx context.Context, actor domain.Identity, in ports.CreateCollectionInput) (*ports.CollectionDetail, error) {
	return s.createFn(ctx, actor, in)
}

func (s *stubCollectionService) Update(ctx context.Context, actor domain.Identity, id string, in ports.UpdateCollectionInput) (*domain.Collection, error) {
	return s.updateFn(ctx, actor, id, in)
}

func (s *stubCollectionService) Delete(ctx context.Context, actor domain.Identity, id string) error {
	return s.deleteFn(ctx, actor, id)
}

type stubUserService struct {
	listFn   func(ctx context.Context, actor domain.Identity) ([]*domain.User, error)
	getFn    func(ctx context.Context, actor domain.Identity, id string) (*domain.User, error)
	updateFn func(ctx context.Context, actor domain.Identity, id string, in ports.UpdateUserInput) error
	deleteFn func(ctx context.Context, actor domain.Identity, id string) (*ports.DeleteUserResult, error)
}

func (s *stubUserService) List(ctx context.Context, actor domain.Identity) ([]*domain.User, error) {
	return s.listFn(ctx, actor)
}

func (s *stubUserService) Get(ctx context.Context, actor domain.Identity, id string) (*domain.User, error) {
	return s.getFn(ctx, actor, id)
}

func (s *stubUserService) Update(ctx context.Context, actor domain.Identity, id string, in ports.UpdateUserInput) error {
	return s.updateFn(ctx, actor, id, in)
}

func (s *stubUserService) Delete(ctx context.Context, actor domain.Identity, id string) (*ports.DeleteUserResult, error) {
	return s.deleteFn(ctx, actor, id)
}
