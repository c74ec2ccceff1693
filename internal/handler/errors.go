package handler

import (
	"errors"
	"net/http"

	"github.com/pkordes/culture-map/backend/internal/domain"
)

// errorResponse is the envelope for every non-2xx JSON body.
type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorDetail{Code: code, Message: message}})
}

// fail translates a service error into an HTTP response.
// The caller supplies the resource name (e.g. "cultural object") because the
// handler is the layer that knows what was being looked up.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, resource string) {
	var verr *domain.ValidationError
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorDetail{
			Code:    "validation_error",
			Message: "request contains invalid fields",
			Fields:  verr.Fields,
		}})
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, domain.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication credentials were not provided")
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "no active account found with the given credentials")
	case errors.Is(err, domain.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "invalid_token", "token is invalid or expired")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "you do not have permission to perform this action")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", resource+" not found")
	default:
		s.log.ErrorContext(r.Context(), "unhandled error",
			"method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
