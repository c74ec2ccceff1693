// Package service contains the business logic for the CultureMap API.
// Services check permissions, validate inputs, apply status transitions, and
// orchestrate repo calls. No SQL lives here; services depend on repo
// interfaces, not implementations. Every operation takes the caller explicitly.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/culture-map/backend/internal/domain"
	"github.com/pkordes/culture-map/backend/internal/metrics"
	"github.com/pkordes/culture-map/backend/internal/policy"
	"github.com/pkordes/culture-map/backend/internal/repo"
)

// Option configures the optional collaborators shared by all services.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the metrics sink. Without it nothing is recorded.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// CatalogService implements the cultural-object catalog.
type CatalogService struct {
	objects repo.ObjectRepo
	tags    repo.TagRepo
	options
}

// NewCatalogService constructs a CatalogService backed by the provided repos.
func NewCatalogService(objects repo.ObjectRepo, tags repo.TagRepo, opts ...Option) *CatalogService {
	return &CatalogService{objects: objects, tags: tags, options: buildOptions(opts)}
}

// List returns one page of the records the caller may see that match f.
func (s *CatalogService) List(ctx context.Context, caller domain.Caller, f domain.ObjectFilter, p domain.PaginationParams) (domain.Page[domain.CulturalObject], error) {
	f.TagIDs = policy.UniqueIDs(f.TagIDs)
	f.Search = strings.TrimSpace(f.Search)
	vis := policy.VisibleSet(caller)
	s.logger.DebugContext(ctx, "listing cultural objects",
		"scope", vis.Scope.String(), "tags", len(f.TagIDs), "page", p.Page)

	items, total, err := s.objects.List(ctx, vis, f, p)
	if err != nil {
		return domain.Page[domain.CulturalObject]{}, fmt.Errorf("service.CatalogService.List: %w", err)
	}
	return domain.Page[domain.CulturalObject]{Items: items, Total: total, Params: p}, nil
}

// Get returns a single record if the caller may see it.
func (s *CatalogService) Get(ctx context.Context, caller domain.Caller, id uuid.UUID) (domain.CulturalObject, error) {
	obj, err := s.objects.GetVisible(ctx, policy.VisibleSet(caller), id)
	if err != nil {
		return domain.CulturalObject{}, fmt.Errorf("service.CatalogService.Get: %w", err)
	}
	return obj, nil
}

// Create validates and persists a new submission. The status is always
// pending and the author is always the caller.
func (s *CatalogService) Create(ctx context.Context, caller domain.Caller, in domain.ObjectInput) (domain.CulturalObject, error) {
	if err := policy.CanCreate(caller); err != nil {
		return domain.CulturalObject{}, fmt.Errorf("service.CatalogService.Create: %w", err)
	}
	if verr := policy.ValidateObject(in, policy.ModeCreate); verr != nil {
		return domain.CulturalObject{}, fmt.Errorf("service.CatalogService.Create: %w", verr)
	}
	tags, err := s.resolveTags(ctx, *in.TagIDs)
	if err != nil {
		return domain.CulturalObject{}, fmt.Errorf("service.CatalogService.Create: %w", err)
	}

	obj := domain.CulturalObject{
		Status:   domain.StatusPending,
		AuthorID: caller.ID,
		Tags:     tags,
	}
	applyInput(&obj, in, policy.ModeCreate)

	created, err := s.objects.Create(ctx, obj)
	if err != nil {
		return domain.CulturalObject{}, fmt.Errorf("service.CatalogService.Create: %w", err)
	}
	s.metrics.IncrementObjectsCreated()
	s.logger.InfoContext(ctx, "cultural object created",
		"object_id", created.ID, "author_id", caller.ID)
	return created, nil
}

// Update applies in to a record the caller may see and modify. When partial
// is true only supplied fields change; otherwise omitted optional fields are
// cleared. A non-staff edit of an approved record sends it back to pending.
func (s *CatalogService) Update(ctx context.Context, caller domain.Caller, id uuid.UUID, in domain.ObjectInput, partial bool) (domain.CulturalObject, error) {
	if caller.IsAnonymous() {
		return domain.CulturalObject{}, fmt.Errorf("service.CatalogService.Update: %w", domain.ErrUnauthenticated)
	}
	current, err := s.objects.GetVisible(ctx, policy.VisibleSet(caller), id)
	if err != nil {
		return domain.CulturalObject{}, fmt.Errorf("service.CatalogService.Update: %w", err)
	}
	if err := policy.CanModify(caller, current); err != nil {
		return domain.CulturalObject{}, fmt.Errorf("service.CatalogService.Update: %w", err)
	}

	mode := policy.ModeReplace
	if partial {
		mode = policy.ModePatch
	}
	if verr := policy.ValidateObject(in, mode); verr != nil {
		return domain.CulturalObject{}, fmt.Errorf("service.CatalogService.Update: %w", verr)
	}

	next := current
	replaceTags := in.TagIDs != nil
	if replaceTags {
		tags, err := s.resolveTags(ctx, *in.TagIDs)
		if err != nil {
			return domain.CulturalObject{}, fmt.Errorf("service.CatalogService.Update: %w", err)
		}
		next.Tags = tags
	}
	applyInput(&next, in, mode)
	next.Status = policy.NextStatus(current.Status, caller.IsStaff())

	updated, err := s.objects.Update(ctx, next, replaceTags)
	if err != nil {
		return domain.CulturalObject{}, fmt.Errorf("service.CatalogService.Update: %w", err)
	}
	if updated.Status != current.Status {
		s.metrics.AddTransitions(string(updated.Status), 1)
		s.logger.InfoContext(ctx, "cultural object returned to review",
			"object_id", id, "editor_id", caller.ID)
	}
	return updated, nil
}

// Archive soft-deletes a record the caller may see and modify. Once archived
// the record is invisible, so a second archive reports not-found.
func (s *CatalogService) Archive(ctx context.Context, caller domain.Caller, id uuid.UUID) (domain.ArchiveConfirmation, error) {
	if caller.IsAnonymous() {
		return domain.ArchiveConfirmation{}, fmt.Errorf("service.CatalogService.Archive: %w", domain.ErrUnauthenticated)
	}
	current, err := s.objects.GetVisible(ctx, policy.VisibleSet(caller), id)
	if err != nil {
		return domain.ArchiveConfirmation{}, fmt.Errorf("service.CatalogService.Archive: %w", err)
	}
	if err := policy.CanModify(caller, current); err != nil {
		return domain.ArchiveConfirmation{}, fmt.Errorf("service.CatalogService.Archive: %w", err)
	}

	archived, changed := policy.Archive(current, s.now())
	if !changed {
		return domain.ArchiveConfirmation{}, fmt.Errorf("service.CatalogService.Archive: %w", domain.ErrNotFound)
	}
	n, err := s.objects.Transition(ctx, []uuid.UUID{id}, current.Status, domain.StatusArchived, archived.ArchivedAt)
	if err != nil {
		return domain.ArchiveConfirmation{}, fmt.Errorf("service.CatalogService.Archive: %w", err)
	}
	if n == 0 {
		// Archived or edited by someone else between the read and the write.
		return domain.ArchiveConfirmation{}, fmt.Errorf("service.CatalogService.Archive: %w", domain.ErrNotFound)
	}

	s.metrics.AddTransitions(string(domain.StatusArchived), n)
	s.logger.InfoContext(ctx, "cultural object archived", "object_id", id, "caller_id", caller.ID)

	// Report the timestamp as stored, not the in-memory one.
	stored, err := s.objects.GetByID(ctx, id)
	if err != nil {
		return domain.ArchiveConfirmation{}, fmt.Errorf("service.CatalogService.Archive: %w", err)
	}
	if stored.ArchivedAt == nil {
		stored.ArchivedAt = archived.ArchivedAt
	}
	return domain.ArchiveConfirmation{
		ID:         id,
		Status:     stored.Status,
		ArchivedAt: *stored.ArchivedAt,
	}, nil
}

// MyObjects returns the caller's own pending and approved records.
func (s *CatalogService) MyObjects(ctx context.Context, caller domain.Caller, p domain.PaginationParams) (domain.Page[domain.CulturalObject], error) {
	if caller.IsAnonymous() {
		return domain.Page[domain.CulturalObject]{}, fmt.Errorf("service.CatalogService.MyObjects: %w", domain.ErrUnauthenticated)
	}
	items, total, err := s.objects.ListByAuthor(ctx, caller.ID, p)
	if err != nil {
		return domain.Page[domain.CulturalObject]{}, fmt.Errorf("service.CatalogService.MyObjects: %w", err)
	}
	return domain.Page[domain.CulturalObject]{Items: items, Total: total, Params: p}, nil
}

// Approve moves every pending record in ids to approved and returns how many moved.
func (s *CatalogService) Approve(ctx context.Context, caller domain.Caller, ids []uuid.UUID) (int64, error) {
	n, err := s.moderate(ctx, caller, ids, domain.StatusPending, domain.StatusApproved)
	if err != nil {
		return 0, fmt.Errorf("service.CatalogService.Approve: %w", err)
	}
	return n, nil
}

// Restore moves every archived record in ids back to pending, clearing
// archived_at, and returns how many moved. Records that are not archived
// are left untouched.
func (s *CatalogService) Restore(ctx context.Context, caller domain.Caller, ids []uuid.UUID) (int64, error) {
	n, err := s.moderate(ctx, caller, ids, domain.StatusArchived, domain.StatusPending)
	if err != nil {
		return 0, fmt.Errorf("service.CatalogService.Restore: %w", err)
	}
	return n, nil
}

func (s *CatalogService) moderate(ctx context.Context, caller domain.Caller, ids []uuid.UUID, from, to domain.Status) (int64, error) {
	if err := policy.CanModerate(caller); err != nil {
		return 0, err
	}
	ids = policy.UniqueIDs(ids)
	if len(ids) == 0 {
		return 0, domain.FieldError("ids", "must not be empty")
	}
	if !policy.CanTransition(from, to) {
		return 0, fmt.Errorf("transition %s -> %s is not allowed", from, to)
	}

	n, err := s.objects.Transition(ctx, ids, from, to, policy.ArchivedAtFor(to, s.now()))
	if err != nil {
		return 0, err
	}
	s.metrics.AddTransitions(string(to), n)
	s.logger.InfoContext(ctx, "cultural objects moderated",
		"from", from, "to", to, "requested", len(ids), "changed", n, "caller_id", caller.ID)
	return n, nil
}

// resolveTags deduplicates ids and checks each against the tag store.
func (s *CatalogService) resolveTags(ctx context.Context, ids []uuid.UUID) ([]domain.Tag, error) {
	ids = policy.UniqueIDs(ids)
	found, err := s.tags.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	tags, verr := policy.ResolveTags(ids, found)
	if verr != nil {
		return nil, verr
	}
	return tags, nil
}

// applyInput copies the supplied fields of in onto obj. In replace mode the
// optional fields that were omitted are cleared. Empty links are stored as NULL.
func applyInput(obj *domain.CulturalObject, in domain.ObjectInput, mode policy.Mode) {
	reset := mode != policy.ModePatch

	if in.Title != nil {
		obj.Title = strings.TrimSpace(*in.Title)
	}
	if in.Latitude != nil {
		obj.Latitude = *in.Latitude
	}
	if in.Longitude != nil {
		obj.Longitude = *in.Longitude
	}
	switch {
	case in.Description != nil:
		obj.Description = *in.Description
	case reset:
		obj.Description = ""
	}
	obj.WikipediaURL = mergeLink(obj.WikipediaURL, in.WikipediaURL, reset)
	obj.OfficialWebsite = mergeLink(obj.OfficialWebsite, in.OfficialWebsite, reset)
	obj.GoogleMapsURL = mergeLink(obj.GoogleMapsURL, in.GoogleMapsURL, reset)
}

func mergeLink(current, supplied *string, reset bool) *string {
	switch {
	case supplied != nil && *supplied == "":
		return nil
	case supplied != nil:
		v := *supplied
		return &v
	case reset:
		return nil
	default:
		return current
	}
}
