package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pkordes/culture-map/backend/internal/domain"
)

// Authenticator resolves a bearer token into a caller.
// *service.AuthService satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (domain.Caller, error)
}

type callerKey struct{}

// WithCaller returns a copy of ctx carrying caller.
func WithCaller(ctx context.Context, caller domain.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFrom returns the caller stored by NewAuthHandler, or an anonymous
// caller when there is none.
func CallerFrom(ctx context.Context) domain.Caller {
	if c, ok := ctx.Value(callerKey{}).(domain.Caller); ok {
		return c
	}
	return domain.Anonymous()
}

// NewAuthHandler returns a middleware that resolves an optional
// "Authorization: Bearer <token>" header into a domain.Caller on the request
// context. A request without the header proceeds as anonymous; whether an
// operation needs a caller is decided by the service layer. A header that is
// present but malformed, expired, or otherwise invalid is rejected with 401.
func NewAuthHandler(auth Authenticator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), domain.Anonymous())))
				return
			}

			scheme, raw, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
				writeError(w, http.StatusUnauthorized, "invalid_token", "authorization header must be a bearer token")
				return
			}

			caller, err := auth.Authenticate(r.Context(), strings.TrimSpace(raw))
			if err != nil {
				log.DebugContext(r.Context(), "bearer token rejected", "error", err)
				writeError(w, http.StatusUnauthorized, "invalid_token", "token is invalid or expired")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}
