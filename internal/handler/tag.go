package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/culture-map/backend/internal/domain"
)

type tagResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Icon      string    `json:"icon"`
	CreatedAt time.Time `json:"created_at"`
}

// ListTags handles GET /api/tags. Tags are few and global, so the list is
// returned whole, ordered by name.
func (s *Server) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.tags.List(r.Context())
	if err != nil {
		s.fail(w, r, err, "tag")
		return
	}

	resp := make([]tagResponse, len(tags))
	for i, t := range tags {
		resp[i] = tagToResponse(t)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetTag handles GET /api/tags/{id}.
func (s *Server) GetTag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err, "tag")
		return
	}
	tag, err := s.tags.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, "tag")
		return
	}
	writeJSON(w, http.StatusOK, tagToResponse(tag))
}

// tagToResponse converts a domain.Tag to its JSON shape.
func tagToResponse(t domain.Tag) tagResponse {
	return tagResponse{
		ID:        t.ID,
		Name:      t.Name,
		Slug:      t.Slug,
		Icon:      t.Icon,
		CreatedAt: t.CreatedAt,
	}
}
