// Package token issues and validates the HS256 JWTs used for authentication.
// Access tokens authorize API requests; refresh tokens are exchanged once for
// a new pair and are tracked by jti in a RevocationList so they cannot be replayed.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pkordes/culture-map/backend/internal/domain"
)

// Kind distinguishes access tokens from refresh tokens.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

const issuer = "culture-map"

// Claims is the JWT payload. Subject carries the user id.
type Claims struct {
	Staff bool `json:"is_staff"`
	Kind  Kind `json:"typ"`
	jwt.RegisteredClaims
}

// Issuer creates and validates tokens with a single shared signing key.
type Issuer struct {
	signingKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewIssuer constructs an Issuer. now may be nil, in which case time.Now is used.
func NewIssuer(signingKey string, accessTTL, refreshTTL time.Duration, now func() time.Time) *Issuer {
	if now == nil {
		now = time.Now
	}
	return &Issuer{
		signingKey: []byte(signingKey),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        now,
	}
}

// RefreshTTL is how long an issued refresh token stays valid. Revocation
// entries only need to live this long.
func (i *Issuer) RefreshTTL() time.Duration {
	return i.refreshTTL
}

// Pair issues a fresh access token and refresh token for the user.
func (i *Issuer) Pair(userID uuid.UUID, staff bool) (domain.TokenPair, error) {
	access, err := i.sign(userID, staff, KindAccess, i.accessTTL)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("token.Issuer.Pair: access: %w", err)
	}
	refresh, err := i.sign(userID, staff, KindRefresh, i.refreshTTL)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("token.Issuer.Pair: refresh: %w", err)
	}
	return domain.TokenPair{Access: access, Refresh: refresh}, nil
}

func (i *Issuer) sign(userID uuid.UUID, staff bool, kind Kind, ttl time.Duration) (string, error) {
	now := i.now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Staff: staff,
		Kind:  kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	})
	return t.SignedString(i.signingKey)
}

// Parse validates signature, expiry, issuer, and kind, and returns the claims.
// Every failure is reported as domain.ErrInvalidToken.
func (i *Issuer) Parse(raw string, want Kind) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return i.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: expired", domain.ErrInvalidToken)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, domain.ErrInvalidToken
	}
	if claims.Kind != want {
		return nil, fmt.Errorf("%w: expected %s token", domain.ErrInvalidToken, want)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing jti", domain.ErrInvalidToken)
	}
	if _, err := claims.UserID(); err != nil {
		return nil, fmt.Errorf("%w: bad subject", domain.ErrInvalidToken)
	}
	return claims, nil
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// Caller converts validated access-token claims into a domain.Caller.
func (c *Claims) Caller() domain.Caller {
	id, err := c.UserID()
	if err != nil {
		return domain.Anonymous()
	}
	return domain.Authenticated(id, c.Staff)
}
