package policy

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pkordes/culture-map/backend/internal/domain"
)

// Coordinate bounds, inclusive on both ends.
const (
	MinLatitude  = 44.0
	MaxLatitude  = 52.5
	MinLongitude = 22.0
	MaxLongitude = 40.5
)

// Tag-count bounds for a write.
const (
	MinTags = 1
	MaxTags = 5
)

const (
	maxTitleLen = 200
	maxURLLen   = 200
)

// Mode says which fields a payload must carry.
type Mode int

const (
	// ModeCreate and ModeReplace require title, coordinates, and tags.
	ModeCreate Mode = iota
	ModeReplace
	// ModePatch validates only the fields that are present.
	ModePatch
)

func (m Mode) requiresAll() bool {
	return m == ModeCreate || m == ModeReplace
}

// ValidateObject checks every field of in and reports all violations at once.
// It returns nil when the payload is acceptable. Tag ids are only counted
// here; whether they exist is checked by ResolveTags.
func ValidateObject(in domain.ObjectInput, mode Mode) *domain.ValidationError {
	verr := domain.NewValidationError()

	switch {
	case in.Title == nil:
		if mode.requiresAll() {
			verr.Add("title", "is required")
		}
	case strings.TrimSpace(*in.Title) == "":
		verr.Add("title", "may not be blank")
	case utf8.RuneCountInString(strings.TrimSpace(*in.Title)) > maxTitleLen:
		verr.Add("title", fmt.Sprintf("must be at most %d characters", maxTitleLen))
	}

	checkRange(verr, "latitude", in.Latitude, MinLatitude, MaxLatitude, mode)
	checkRange(verr, "longitude", in.Longitude, MinLongitude, MaxLongitude, mode)

	switch {
	case in.TagIDs == nil:
		if mode.requiresAll() {
			verr.Add("tags", "is required")
		}
	default:
		n := len(UniqueIDs(*in.TagIDs))
		if n < MinTags {
			verr.Add("tags", fmt.Sprintf("must have at least %d tag", MinTags))
		}
		if n > MaxTags {
			verr.Add("tags", fmt.Sprintf("must have at most %d tags", MaxTags))
		}
	}

	checkURL(verr, "wikipedia_url", in.WikipediaURL)
	checkURL(verr, "official_website", in.OfficialWebsite)
	checkURL(verr, "google_maps_url", in.GoogleMapsURL)

	if len(verr.Fields) == 0 {
		return nil
	}
	return verr
}

func checkRange(verr *domain.ValidationError, field string, v *float64, lo, hi float64, mode Mode) {
	if v == nil {
		if mode.requiresAll() {
			verr.Add(field, "is required")
		}
		return
	}
	if *v < lo || *v > hi {
		verr.Add(field, fmt.Sprintf("must be between %.1f and %.1f", lo, hi))
	}
}

// checkURL accepts nil and empty values. Anything else must be an absolute
// http or https URL with a host.
func checkURL(verr *domain.ValidationError, field string, v *string) {
	if v == nil || *v == "" {
		return
	}
	if len(*v) > maxURLLen {
		verr.Add(field, fmt.Sprintf("must be at most %d characters", maxURLLen))
		return
	}
	u, err := url.Parse(*v)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		verr.Add(field, "must be a valid URL")
	}
}

// UniqueIDs drops repeated ids, keeping the first occurrence order.
func UniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ResolveTags matches requested ids against the tags found in the store and
// returns them in request order. Every unknown id is reported on "tags".
func ResolveTags(requested []uuid.UUID, found []domain.Tag) ([]domain.Tag, *domain.ValidationError) {
	byID := make(map[uuid.UUID]domain.Tag, len(found))
	for _, t := range found {
		byID[t.ID] = t
	}

	var verr *domain.ValidationError
	tags := make([]domain.Tag, 0, len(requested))
	for _, id := range UniqueIDs(requested) {
		t, ok := byID[id]
		if !ok {
			if verr == nil {
				verr = domain.NewValidationError()
			}
			verr.Add("tags", fmt.Sprintf("unknown tag id %s", id))
			continue
		}
		tags = append(tags, t)
	}
	if verr != nil {
		return nil, verr
	}
	return tags, nil
}
