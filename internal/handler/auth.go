package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/pkordes/culture-map/backend/internal/domain"
)

type registerRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type userResponse struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

type tokenResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type registerResponse struct {
	User   userResponse  `json:"user"`
	Tokens tokenResponse `json:"tokens"`
}

// Register handles POST /api/auth/register.
func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err, "user")
		return
	}
	user, pair, err := s.auth.Register(r.Context(), domain.Registration{
		Username:  body.Username,
		Email:     body.Email,
		Password:  body.Password,
		Password2: body.Password2,
	})
	if err != nil {
		s.fail(w, r, err, "user")
		return
	}
	writeJSON(w, http.StatusCreated, registerResponse{
		User:   userResponse{ID: user.ID, Username: user.Username, Email: user.Email},
		Tokens: tokenResponse(pair),
	})
}

// Login handles POST /api/auth/login.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err, "user")
		return
	}
	verr := domain.NewValidationError()
	if body.Username == "" {
		verr.Add("username", "is required")
	}
	if body.Password == "" {
		verr.Add("password", "is required")
	}
	if err := verr.OrNil(); err != nil {
		s.fail(w, r, err, "user")
		return
	}

	pair, err := s.auth.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		s.fail(w, r, err, "user")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse(pair))
}

// Refresh handles POST /api/auth/refresh. The submitted refresh token is
// consumed; the response carries a new access token and a rotated refresh token.
func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	var body refreshRequest
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err, "token")
		return
	}
	if body.Refresh == "" {
		s.fail(w, r, domain.FieldError("refresh", "is required"), "token")
		return
	}
	pair, err := s.auth.Refresh(r.Context(), body.Refresh)
	if err != nil {
		s.fail(w, r, err, "token")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse(pair))
}
