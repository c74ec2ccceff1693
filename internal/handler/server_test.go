package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/culture-map/backend/internal/domain"
	"github.com/pkordes/culture-map/backend/internal/handler"
	"github.com/pkordes/culture-map/backend/internal/middleware"
)

// ---- mocks -----------------------------------------------------------------

// mockCatalog is a test double for handler.CatalogServicer.
// Set only the method fields your test needs.
type mockCatalog struct {
	list      func(ctx context.Context, caller domain.Caller, f domain.ObjectFilter, p domain.PaginationParams) (domain.Page[domain.CulturalObject], error)
	get       func(ctx context.Context, caller domain.Caller, id uuid.UUID) (domain.CulturalObject, error)
	create    func(ctx context.Context, caller domain.Caller, in domain.ObjectInput) (domain.CulturalObject, error)
	update    func(ctx context.Context, caller domain.Caller, id uuid.UUID, in domain.ObjectInput, partial bool) (domain.CulturalObject, error)
	archive   func(ctx context.Context, caller domain.Caller, id uuid.UUID) (domain.ArchiveConfirmation, error)
	myObjects func(ctx context.Context, caller domain.Caller, p domain.PaginationParams) (domain.Page[domain.CulturalObject], error)
	approve   func(ctx context.Context, caller domain.Caller, ids []uuid.UUID) (int64, error)
	restore   func(ctx context.Context, caller domain.Caller, ids []uuid.UUID) (int64, error)
}

func (m *mockCatalog) List(ctx context.Context, c domain.Caller, f domain.ObjectFilter, p domain.PaginationParams) (domain.Page[domain.CulturalObject], error) {
	return m.list(ctx, c, f, p)
}
func (m *mockCatalog) Get(ctx context.Context, c domain.Caller, id uuid.UUID) (domain.CulturalObject, error) {
	return m.get(ctx, c, id)
}
func (m *mockCatalog) Create(ctx context.Context, c domain.Caller, in domain.ObjectInput) (domain.CulturalObject, error) {
	return m.create(ctx, c, in)
}
func (m *mockCatalog) Update(ctx context.Context, c domain.Caller, id uuid.UUID, in domain.ObjectInput, partial bool) (domain.CulturalObject, error) {
	return m.update(ctx, c, id, in, partial)
}
func (m *mockCatalog) Archive(ctx context.Context, c domain.Caller, id uuid.UUID) (domain.ArchiveConfirmation, error) {
	return m.archive(ctx, c, id)
}
func (m *mockCatalog) MyObjects(ctx context.Context, c domain.Caller, p domain.PaginationParams) (domain.Page[domain.CulturalObject], error) {
	return m.myObjects(ctx, c, p)
}
func (m *mockCatalog) Approve(ctx context.Context, c domain.Caller, ids []uuid.UUID) (int64, error) {
	return m.approve(ctx, c, ids)
}
func (m *mockCatalog) Restore(ctx context.Context, c domain.Caller, ids []uuid.UUID) (int64, error) {
	return m.restore(ctx, c, ids)
}

// compile-time check: mockCatalog must satisfy handler.CatalogServicer.
var _ handler.CatalogServicer = (*mockCatalog)(nil)

type mockTags struct {
	list func(ctx context.Context) ([]domain.Tag, error)
	get  func(ctx context.Context, id uuid.UUID) (domain.Tag, error)
}

func (m *mockTags) List(ctx context.Context) ([]domain.Tag, error)              { return m.list(ctx) }
func (m *mockTags) Get(ctx context.Context, id uuid.UUID) (domain.Tag, error) { return m.get(ctx, id) }

var _ handler.TagServicer = (*mockTags)(nil)

type mockAuth struct {
	register func(ctx context.Context, reg domain.Registration) (domain.User, domain.TokenPair, error)
	login    func(ctx context.Context, username, password string) (domain.TokenPair, error)
	refresh  func(ctx context.Context, refresh string) (domain.TokenPair, error)
}

func (m *mockAuth) Register(ctx context.Context, reg domain.Registration) (domain.User, domain.TokenPair, error) {
	return m.register(ctx, reg)
}
func (m *mockAuth) Login(ctx context.Context, username, password string) (domain.TokenPair, error) {
	return m.login(ctx, username, password)
}
func (m *mockAuth) Refresh(ctx context.Context, refresh string) (domain.TokenPair, error) {
	return m.refresh(ctx, refresh)
}

var _ handler.AuthServicer = (*mockAuth)(nil)

type mockExport struct {
	export func(ctx context.Context, caller domain.Caller) ([]domain.ExportRow, error)
}

func (m *mockExport) Export(ctx context.Context, caller domain.Caller) ([]domain.ExportRow, error) {
	return m.export(ctx, caller)
}

var _ handler.ExportServicer = (*mockExport)(nil)

// ---- helpers ---------------------------------------------------------------

var (
	anonymous = domain.Anonymous()
	author    = domain.Authenticated(uuid.New(), false)
	staff     = domain.Authenticated(uuid.New(), true)
)

// newHTTPHandler wires srv into a chi router the way main.go does, with the
// bearer-token middleware replaced by one that injects caller directly.
func newHTTPHandler(srv *handler.Server, caller domain.Caller) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithCaller(req.Context(), caller)))
		})
	})
	srv.Routes(r)
	return r
}

func serve(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// errorBody is the decoded error envelope.
type errorBody struct {
	Error struct {
		Code    string              `json:"code"`
		Message string              `json:"message"`
		Fields  map[string][]string `json:"fields"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func tagFixture(name, slug string) domain.Tag {
	return domain.Tag{
		ID:        uuid.New(),
		Name:      name,
		Slug:      slug,
		Icon:      "🏰",
		CreatedAt: time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC),
	}
}

func objectFixture(status domain.Status) domain.CulturalObject {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	wiki := "https://uk.wikipedia.org/wiki/Lutsk_Castle"
	return domain.CulturalObject{
		ID:             uuid.New(),
		Title:          "Lubart's Castle",
		Description:    "14th-century castle in Lutsk",
		Latitude:       50.738901,
		Longitude:      25.323702,
		Status:         status,
		AuthorID:       author.ID,
		AuthorUsername: "author",
		Tags:           []domain.Tag{tagFixture("Замок", "zamok")},
		WikipediaURL:   &wiki,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
}
