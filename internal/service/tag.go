package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/pkordes/culture-map/backend/internal/domain"
	"github.com/pkordes/culture-map/backend/internal/repo"
)

const (
	maxTagNameLen = 100
	maxTagIconLen = 10
)

// TagService implements business logic for Tag operations.
// Tags are read by everyone and created only by administrative tooling, so
// its write path is Ensure, which is idempotent by slug.
type TagService struct {
	tags repo.TagRepo
	options
}

// NewTagService constructs a TagService backed by the provided TagRepo.
func NewTagService(tags repo.TagRepo, opts ...Option) *TagService {
	return &TagService{tags: tags, options: buildOptions(opts)}
}

// List returns every tag ordered by name.
func (s *TagService) List(ctx context.Context) ([]domain.Tag, error) {
	tags, err := s.tags.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.TagService.List: %w", err)
	}
	return tags, nil
}

// Get returns a single tag.
func (s *TagService) Get(ctx context.Context, id uuid.UUID) (domain.Tag, error) {
	tag, err := s.tags.GetByID(ctx, id)
	if err != nil {
		return domain.Tag{}, fmt.Errorf("service.TagService.Get: %w", err)
	}
	return tag, nil
}

// Ensure creates the tag or returns the one that already has its slug.
// A supplied slug is normalized but kept; an empty slug is derived from name.
func (s *TagService) Ensure(ctx context.Context, name, slug, icon string) (domain.Tag, error) {
	name = strings.TrimSpace(name)
	icon = strings.TrimSpace(icon)
	if strings.TrimSpace(slug) == "" {
		slug = Slugify(name)
	} else {
		slug = Slugify(slug)
	}

	verr := domain.NewValidationError()
	switch {
	case name == "":
		verr.Add("name", "is required")
	case len([]rune(name)) > maxTagNameLen:
		verr.Add("name", fmt.Sprintf("must be at most %d characters", maxTagNameLen))
	}
	if slug == "" {
		verr.Add("slug", "must contain at least one letter or digit")
	}
	if len([]rune(icon)) > maxTagIconLen {
		verr.Add("icon", fmt.Sprintf("must be at most %d characters", maxTagIconLen))
	}
	if err := verr.OrNil(); err != nil {
		return domain.Tag{}, fmt.Errorf("service.TagService.Ensure: %w", err)
	}

	tag, err := s.tags.Upsert(ctx, name, slug, icon)
	if err != nil {
		return domain.Tag{}, fmt.Errorf("service.TagService.Ensure: %w", err)
	}
	s.logger.DebugContext(ctx, "tag ensured", "tag_id", tag.ID, "slug", tag.Slug)
	return tag, nil
}

// Slugify derives a URL-safe ASCII slug from s. Cyrillic is transliterated,
// so "Замок Любарта" becomes a latin slug like the seeded ones.
func Slugify(s string) string {
	return slug.Make(s)
}
