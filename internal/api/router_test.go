package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/wlcham/notes-server/internal/core/domain"
	"github.com/wlcham/notes-server/internal/core/ports"
	"github.com/wlcham/notes-server/internal/core/service"
	"github.com/wlcham/notes-server/internal/pkg/pagination"
)

const (
	testSecret = "router-secret"
	aliceID    = "65f0000000000000000000a1"
	noteID     = "65f000000000000000000001"
)

// --- Stubs ---

type stubAuth struct{}

func (stubAuth) Register(_ context.Context, username, _ string, isAdmin bool) (*domain.User, error) {
	return &domain.User{ID: aliceID, Username: username, IsAdmin: isAdmin}, nil
}

func (stubAuth) Login(context.Context, string, string) (string, error) {
	return "", domain.ErrInvalidCredentials
}

// stubNotes serves a fixed corpus of 23 notes owned by alice.
type stubNotes struct{}

func (stubNotes) List(_ context.Context, _ domain.Identity, in ports.ListNotesInput) (*ports.NotePage, error) {
	const total = 23
	return &ports.NotePage{
		Items:      []*domain.Note{},
		Total:      total,
		Page:       in.Page.Page,
		Limit:      in.Page.Limit,
		TotalPages: pagination.TotalPages(total, in.Page.Limit),
	}, nil
}

func (stubNotes) Get(_ context.Context, actor domain.Identity, id string) (*ports.NoteDetail, error) {
	if id != noteID {
		return nil, domain.ErrNoteNotFound
	}
	if !actor.Can(aliceID) {
		return nil, domain.Errorf(domain.ErrForbidden, "You are not allowed to access this note.")
	}
	return &ports.NoteDetail{Note: &domain.Note{ID: id, OwnerID: aliceID}}, nil
}

func (stubNotes) Create(context.Context, domain.Identity, ports.CreateNoteInput) (*domain.Note, error) {
	return nil, nil
}

func (stubNotes) Update(context.Context, domain.Identity, string, ports.UpdateNoteInput) (*domain.Note, error) {
	return nil, nil
}

func (stubNotes) Assign(context.Context, domain.Identity, string, *string) (*ports.AssignResult, error) {
	return nil, nil
}

func (stubNotes) Delete(context.Context, domain.Identity, string) error { return nil }

type stubUsers struct{}

func (stubUsers) List(context.Context, domain.Identity) ([]*domain.User, error) {
	return []*domain.User{{ID: aliceID, Username: "alice"}}, nil
}

func (stubUsers) Get(context.Context, domain.Identity, string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

func (stubUsers) Update(context.Context, domain.Identity, string, ports.UpdateUserInput) error {
	return nil
}

func (stubUsers) Delete(context.Context, domain.Identity, string) (*ports.DeleteUserResult, error) {
	return &ports.DeleteUserResult{}, nil
}

// oneUser is an identity store holding a single account.
type oneUser struct {
	user *domain.User
}

func (r oneUser) Create(context.Context, *domain.User) (*domain.User, error) {
	return nil, domain.ErrDuplicateUsername
}

func (r oneUser) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	if username != r.user.Username {
		return nil, domain.ErrUserNotFound
	}
	return r.user, nil
}

func (r oneUser) FindByID(_ context.Context, id string) (*domain.User, error) {
	if id != r.user.ID {
		return nil, domain.ErrUserNotFound
	}
	return r.user, nil
}

func (r oneUser) List(context.Context) ([]*domain.User, error) {
	return []*domain.User{r.user}, nil
}

func (r oneUser) Update(context.Context, string, domain.UserPatch) error { return nil }

func (r oneUser) Delete(context.Context, string) error { return nil }

type denyAll struct{}

func (denyAll) Allow(context.Context, string) (bool, error) { return false, nil }

// --- Helpers ---

func newTestRouter(t *testing.T, mutate func(*Deps)) *echo.Echo {
	t.Helper()
	d := Deps{
		AuthService: stubAuth{},
		NoteService: stubNotes{},
		UserService: stubUsers{},
		JWTSecret:   testSecret,
		Log:         zerolog.Nop(),
		AccessLog:   zerolog.Nop(),
		Registry:    prometheus.NewRegistry(),
	}
	if mutate != nil {
		mutate(&d)
	}
	return NewRouter(d)
}

func bearer(t *testing.T, userID string, isAdmin bool) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id":  userID,
		"username": "someone",
		"is_admin": isAdmin,
		"iat":      time.Now().Unix(),
		"exp":      time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + signed
}

func do(e *echo.Echo, method, target, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return resp.Error
}

// --- Tests ---

func TestRouter_RequiresToken(t *testing.T) {
	e := newTestRouter(t, nil)

	rec := do(e, http.MethodGet, "/notes", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "Unauthorized" {
		t.Fatalf("unexpected message %q", msg)
	}

	rec = do(e, http.MethodGet, "/notes", "Bearer not-a-jwt")
	if rec.Code != http.StatusUnauthorized || errorMessage(t, rec) != "Invalid token" {
		t.Fatalf("expected 401 Invalid token, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_AcceptsIssuedToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo := oneUser{user: &domain.User{ID: aliceID, Username: "alice", PasswordHash: string(hash)}}
	e := newTestRouter(t, func(d *Deps) {
		d.AuthService = service.NewAuthService(repo, testSecret, time.Hour, bcrypt.MinCost, zerolog.Nop())
	})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"alice","password":"secret"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}

	// The note belongs to alice, so a 200 means the gate decoded her id.
	if rec := do(e, http.MethodGet, "/notes/"+noteID, "Bearer "+resp.Token); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with issued token, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_InvalidPathID(t *testing.T) {
	e := newTestRouter(t, nil)

	rec := do(e, http.MethodGet, "/notes/not-an-id", bearer(t, aliceID, false))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "Invalid MongoDB ObjectID" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestRouter_NoteAccess(t *testing.T) {
	e := newTestRouter(t, nil)

	if rec := do(e, http.MethodGet, "/notes/"+noteID, bearer(t, aliceID, false)); rec.Code != http.StatusOK {
		t.Fatalf("owner: expected 200, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/notes/"+noteID, bearer(t, "65f0000000000000000000b2", true)); rec.Code != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d", rec.Code)
	}
	rec := do(e, http.MethodGet, "/notes/"+noteID, bearer(t, "65f0000000000000000000b2", false))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("stranger: expected 403, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/notes/65f0000000000000000000ff", bearer(t, aliceID, false)); rec.Code != http.StatusNoContent {
		t.Fatalf("missing: expected 204, got %d", rec.Code)
	}
}

func TestRouter_Pagination(t *testing.T) {
	e := newTestRouter(t, nil)
	auth := bearer(t, aliceID, false)

	cases := []struct {
		target string
		want   []string
	}{
		{"/notes", []string{
			`</notes?limit=10&page=1>; rel="first"`,
			`<>; rel="previous"`,
			`</notes?limit=10&page=2>; rel="next"`,
			`</notes?limit=10&page=3>; rel="last"`,
		}},
		{"/notes?page=3", []string{
			`</notes?limit=10&page=2>; rel="previous"`,
			`<>; rel="next"`,
		}},
		{"/notes?page=2&limit=50", []string{
			`</notes?limit=10&page=1>; rel="previous"`,
			`</notes?limit=10&page=3>; rel="next"`,
		}},
	}

	for _, tc := range cases {
		rec := do(e, http.MethodGet, tc.target, auth)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tc.target, rec.Code)
		}
		link := rec.Header().Get("Link")
		for _, want := range tc.want {
			if !strings.Contains(link, want) {
				t.Fatalf("%s: Link %q missing %q", tc.target, link, want)
			}
		}
	}

	if rec := do(e, http.MethodGet, "/notes?page=0", auth); rec.Code != http.StatusBadRequest {
		t.Fatalf("page=0: expected 400, got %d", rec.Code)
	}
}

func TestRouter_UsersListIsAdminOnly(t *testing.T) {
	e := newTestRouter(t, nil)

	rec := do(e, http.MethodGet, "/users", bearer(t, aliceID, false))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "Only admins can view all users." {
		t.Fatalf("unexpected message %q", msg)
	}

	if rec := do(e, http.MethodGet, "/users", bearer(t, aliceID, true)); rec.Code != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/users/"+aliceID, bearer(t, aliceID, true)); rec.Code != http.StatusNotFound {
		t.Fatalf("missing user: expected 404, got %d", rec.Code)
	}
}

func TestRouter_RateLimitsAuthRoutes(t *testing.T) {
	e := newTestRouter(t, func(d *Deps) { d.AnonymousLimiter = denyAll{} })

	rec := do(e, http.MethodPost, "/auth/login", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestRouter_CORSExposesLink(t *testing.T) {
	e := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:3000")
	req.Header.Set(echo.HeaderAuthorization, bearer(t, aliceID, false))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	exposed := rec.Header().Get(echo.HeaderAccessControlExposeHeaders)
	if !strings.Contains(exposed, "Link") || !strings.Contains(exposed, echo.HeaderAuthorization) {
		t.Fatalf("unexpected exposed headers %q", exposed)
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	e := newTestRouter(t, nil)
	do(e, http.MethodGet, "/notes", bearer(t, aliceID, false))

	rec := do(e, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "notes_http_requests_total") {
		t.Fatalf("expected request counter in metrics output")
	}
}
