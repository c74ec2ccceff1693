package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/pkordes/culture-map/backend/internal/domain"
	"github.com/pkordes/culture-map/backend/internal/middleware"
	"github.com/pkordes/culture-map/backend/internal/policy"
)

// moderationRequest is the body of the bulk approve and restore endpoints.
type moderationRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

type countResponse struct {
	Count int64 `json:"count"`
}

// ApproveObjects handles POST /api/admin/objects/approve.
// Only pending records change; the response counts them.
func (s *Server) ApproveObjects(w http.ResponseWriter, r *http.Request) {
	s.moderate(w, r, s.catalog.Approve)
}

// RestoreObjects handles POST /api/admin/objects/restore.
// Only archived records change; they return to pending.
func (s *Server) RestoreObjects(w http.ResponseWriter, r *http.Request) {
	s.moderate(w, r, s.catalog.Restore)
}

func (s *Server) moderate(w http.ResponseWriter, r *http.Request, op func(context.Context, domain.Caller, []uuid.UUID) (int64, error)) {
	// Role is checked before the body is read so a non-staff caller gets
	// 401/403 even for a malformed payload.
	caller := middleware.CallerFrom(r.Context())
	if err := policy.CanModerate(caller); err != nil {
		s.fail(w, r, err, "cultural object")
		return
	}
	var body moderationRequest
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err, "cultural object")
		return
	}
	n, err := op(r.Context(), caller, body.IDs)
	if err != nil {
		s.fail(w, r, err, "cultural object")
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}
