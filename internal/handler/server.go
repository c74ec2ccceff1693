// Package handler implements the HTTP handlers for the CultureMap API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, object.go, etc.) but share the same Server struct so they
// can access its dependencies.
package handler

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/culture-map/backend/internal/domain"
)

// CatalogServicer defines the catalog operations the object handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching the database or service layer.
type CatalogServicer interface {
	List(ctx context.Context, caller domain.Caller, f domain.ObjectFilter, p domain.PaginationParams) (domain.Page[domain.CulturalObject], error)
	Get(ctx context.Context, caller domain.Caller, id uuid.UUID) (domain.CulturalObject, error)
	Create(ctx context.Context, caller domain.Caller, in domain.ObjectInput) (domain.CulturalObject, error)
	Update(ctx context.Context, caller domain.Caller, id uuid.UUID, in domain.ObjectInput, partial bool) (domain.CulturalObject, error)
	Archive(ctx context.Context, caller domain.Caller, id uuid.UUID) (domain.ArchiveConfirmation, error)
	MyObjects(ctx context.Context, caller domain.Caller, p domain.PaginationParams) (domain.Page[domain.CulturalObject], error)
	Approve(ctx context.Context, caller domain.Caller, ids []uuid.UUID) (int64, error)
	Restore(ctx context.Context, caller domain.Caller, ids []uuid.UUID) (int64, error)
}

// TagServicer defines the read-only tag operations.
type TagServicer interface {
	List(ctx context.Context) ([]domain.Tag, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Tag, error)
}

// AuthServicer defines registration, login and token refresh.
type AuthServicer interface {
	Register(ctx context.Context, reg domain.Registration) (domain.User, domain.TokenPair, error)
	Login(ctx context.Context, username, password string) (domain.TokenPair, error)
	Refresh(ctx context.Context, refresh string) (domain.TokenPair, error)
}

// ExportServicer defines the staff export operation.
type ExportServicer interface {
	Export(ctx context.Context, caller domain.Caller) ([]domain.ExportRow, error)
}

// Server holds the services every handler needs.
// Wire it in main.go via Routes.
type Server struct {
	catalog CatalogServicer
	tags    TagServicer
	auth    AuthServicer
	export  ExportServicer
	log     *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
// A nil logger falls back to slog.Default().
func NewServer(catalog CatalogServicer, tags TagServicer, auth AuthServicer, export ExportServicer, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{catalog: catalog, tags: tags, auth: auth, export: export, log: log}
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil, nil, nil, nil, nil)
}

// Routes registers every API route on r. Cross-cutting middleware (request
// id, logging, auth) is applied by the caller before Routes.
func (s *Server) Routes(r chi.Router) {
	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Route("/api", func(r chi.Router) {
		r.Route("/tags", func(r chi.Router) {
			r.Get("/", s.ListTags)
			r.Get("/{id}", s.GetTag)
		})

		r.Route("/objects", func(r chi.Router) {
			r.Get("/", s.ListObjects)
			r.Post("/", s.CreateObject)
			r.Get("/my", s.MyObjects)
			r.Get("/{id}", s.GetObject)
			r.Put("/{id}", s.ReplaceObject)
			r.Patch("/{id}", s.PatchObject)
			r.Delete("/{id}", s.ArchiveObject)
		})

		r.Route("/admin/objects", func(r chi.Router) {
			r.Post("/approve", s.ApproveObjects)
			r.Post("/restore", s.RestoreObjects)
			r.Get("/export", s.GetExport)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.Register)
			r.Post("/login", s.Login)
			r.Post("/refresh", s.Refresh)
		})
	})
}
