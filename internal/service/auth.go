package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/pkordes/culture-map/backend/internal/domain"
	"github.com/pkordes/culture-map/backend/internal/repo"
	"github.com/pkordes/culture-map/backend/internal/token"
)

const (
	maxUsernameLen = 150
	maxEmailLen    = 254
)

// dummyHash is compared against when the username is unknown, so a login for
// a missing user costs the same as one with a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("culture-map-timing-equalizer"), bcrypt.DefaultCost)

// AuthService implements registration, login, token refresh, and access-token
// authentication.
type AuthService struct {
	users   repo.UserRepo
	issuer  *token.Issuer
	revoked token.RevocationList
	options
}

// NewAuthService constructs an AuthService.
func NewAuthService(users repo.UserRepo, issuer *token.Issuer, revoked token.RevocationList, opts ...Option) *AuthService {
	return &AuthService{users: users, issuer: issuer, revoked: revoked, options: buildOptions(opts)}
}

// Register validates reg, creates a non-staff user, and issues a token pair.
// All field problems are reported together.
func (s *AuthService) Register(ctx context.Context, reg domain.Registration) (domain.User, domain.TokenPair, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)

	verr, err := s.validateRegistration(ctx, reg)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, fmt.Errorf("service.AuthService.Register: %w", err)
	}
	if err := verr.OrNil(); err != nil {
		return domain.User{}, domain.TokenPair{}, fmt.Errorf("service.AuthService.Register: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, fmt.Errorf("service.AuthService.Register: hash: %w", err)
	}

	user, err := s.users.Create(ctx, domain.User{
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: string(hash),
	})
	if errors.Is(err, domain.ErrConflict) {
		// Lost a race with a concurrent registration of the same name.
		err = domain.FieldError("username", "a user with that username or email already exists")
	}
	if err != nil {
		return domain.User{}, domain.TokenPair{}, fmt.Errorf("service.AuthService.Register: %w", err)
	}

	pair, err := s.issuer.Pair(user.ID, user.IsStaff)
	if err != nil {
		return domain.User{}, domain.TokenPair{}, fmt.Errorf("service.AuthService.Register: %w", err)
	}
	s.metrics.IncrementRegistrations()
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return user, pair, nil
}

func (s *AuthService) validateRegistration(ctx context.Context, reg domain.Registration) (*domain.ValidationError, error) {
	verr := domain.NewValidationError()

	switch {
	case reg.Username == "":
		verr.Add("username", "is required")
	case len([]rune(reg.Username)) > maxUsernameLen:
		verr.Add("username", fmt.Sprintf("must be at most %d characters", maxUsernameLen))
	case strings.IndexFunc(reg.Username, invalidUsernameRune) >= 0:
		verr.Add("username", "may contain only letters, digits and @/./+/-/_ characters")
	default:
		taken, err := s.users.UsernameExists(ctx, reg.Username)
		if err != nil {
			return nil, err
		}
		if taken {
			verr.Add("username", "a user with that username already exists")
		}
	}

	switch {
	case reg.Email == "":
		verr.Add("email", "is required")
	case len(reg.Email) > maxEmailLen || !validEmail(reg.Email):
		verr.Add("email", "must be a valid email address")
	default:
		taken, err := s.users.EmailExists(ctx, reg.Email)
		if err != nil {
			return nil, err
		}
		if taken {
			verr.Add("email", "a user with that email already exists")
		}
	}

	if reg.Password == "" {
		verr.Add("password", "is required")
	} else {
		for _, p := range passwordProblems(reg.Password, reg.Username, reg.Email) {
			verr.Add("password", p)
		}
	}
	switch {
	case reg.Password2 == "":
		verr.Add("password2", "is required")
	case reg.Password2 != reg.Password:
		verr.Add("password2", "passwords do not match")
	}
	return verr, nil
}

func invalidUsernameRune(r rune) bool {
	return !(unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("@.+-_", r))
}

// validEmail accepts a bare address only, not "Name <addr>".
func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && strings.Contains(s[strings.LastIndexByte(s, '@'):], ".")
}

// Login exchanges a username and password for a token pair.
// An unknown user and a wrong password both yield domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.TokenPair, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		s.metrics.ObserveLogin(false)
		return domain.TokenPair{}, fmt.Errorf("service.AuthService.Login: %w", domain.ErrInvalidCredentials)
	case err != nil:
		return domain.TokenPair{}, fmt.Errorf("service.AuthService.Login: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.metrics.ObserveLogin(false)
		return domain.TokenPair{}, fmt.Errorf("service.AuthService.Login: %w", domain.ErrInvalidCredentials)
	}

	pair, err := s.issuer.Pair(user.ID, user.IsStaff)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("service.AuthService.Login: %w", err)
	}
	s.metrics.ObserveLogin(true)
	return pair, nil
}

// Refresh consumes a refresh token and issues a new pair. Each refresh token
// works once; a replay yields domain.ErrInvalidToken. The staff flag is
// re-read from the user record so role changes apply on the next refresh.
func (s *AuthService) Refresh(ctx context.Context, refresh string) (domain.TokenPair, error) {
	claims, err := s.issuer.Parse(refresh, token.KindRefresh)
	if err != nil {
		s.metrics.IncrementRefreshRejected()
		return domain.TokenPair{}, fmt.Errorf("service.AuthService.Refresh: %w", err)
	}

	ttl := s.issuer.RefreshTTL()
	if claims.ExpiresAt != nil {
		ttl = max(claims.ExpiresAt.Sub(s.now()), time.Second)
	}
	fresh, err := s.revoked.Consume(ctx, claims.ID, ttl)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("service.AuthService.Refresh: revocation list: %w", err)
	}
	if !fresh {
		s.metrics.IncrementRefreshRejected()
		s.logger.WarnContext(ctx, "refresh token replayed", "jti", claims.ID, "user_id", claims.Subject)
		return domain.TokenPair{}, fmt.Errorf("service.AuthService.Refresh: %w: already used", domain.ErrInvalidToken)
	}

	userID, _ := claims.UserID()
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.TokenPair{}, fmt.Errorf("service.AuthService.Refresh: %w: unknown subject", domain.ErrInvalidToken)
	}
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("service.AuthService.Refresh: %w", err)
	}

	pair, err := s.issuer.Pair(user.ID, user.IsStaff)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("service.AuthService.Refresh: %w", err)
	}
	return pair, nil
}

// Authenticate resolves an access token into a Caller.
func (s *AuthService) Authenticate(_ context.Context, access string) (domain.Caller, error) {
	claims, err := s.issuer.Parse(access, token.KindAccess)
	if err != nil {
		return domain.Anonymous(), fmt.Errorf("service.AuthService.Authenticate: %w", err)
	}
	return claims.Caller(), nil
}
