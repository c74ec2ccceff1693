package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pkordes/culture-map/backend/internal/domain"
	"github.com/pkordes/culture-map/backend/internal/service"
	"github.com/pkordes/culture-map/backend/internal/token"
)

// memoryUsers is a mockUserRepo backed by a slice, enough for the auth flows.
func memoryUsers(users ...domain.User) *mockUserRepo {
	find := func(match func(domain.User) bool) (domain.User, bool) {
		for _, u := range users {
			if match(u) {
				return u, true
			}
		}
		return domain.User{}, false
	}
	return &mockUserRepo{
		create: func(_ context.Context, u domain.User) (domain.User, error) {
			u.ID = uuid.New()
			u.CreatedAt = time.Now()
			users = append(users, u)
			return u, nil
		},
		getByID: func(_ context.Context, id uuid.UUID) (domain.User, error) {
			if u, ok := find(func(u domain.User) bool { return u.ID == id }); ok {
				return u, nil
			}
			return domain.User{}, domain.ErrNotFound
		},
		getByUsername: func(_ context.Context, name string) (domain.User, error) {
			if u, ok := find(func(u domain.User) bool { return u.Username == name }); ok {
				return u, nil
			}
			return domain.User{}, domain.ErrNotFound
		},
		usernameExists: func(_ context.Context, name string) (bool, error) {
			_, ok := find(func(u domain.User) bool { return u.Username == name })
			return ok, nil
		},
		emailExists: func(_ context.Context, email string) (bool, error) {
			_, ok := find(func(u domain.User) bool { return u.Email == email })
			return ok, nil
		},
	}
}

func newAuth(users *mockUserRepo) (*service.AuthService, *token.Issuer) {
	issuer := token.NewIssuer("test-key", 5*time.Minute, 24*time.Hour, nil)
	return service.NewAuthService(users, issuer, token.NewMemoryRevocationList(nil)), issuer
}

func existingUser(t *testing.T, username, password string, staff bool) domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return domain.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		IsStaff:      staff,
	}
}

func validRegistration() domain.Registration {
	return domain.Registration{
		Username:  "testuser",
		Email:     "test@example.com",
		Password:  "SecurePass123!",
		Password2: "SecurePass123!",
	}
}

func fieldsOf(t *testing.T, err error) *domain.ValidationError {
	t.Helper()
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr), "expected a ValidationError, got %v", err)
	return verr
}

// ---- Register --------------------------------------------------------------

func TestAuthService_Register(t *testing.T) {
	svc, issuer := newAuth(memoryUsers())

	user, pair, err := svc.Register(context.Background(), validRegistration())

	require.NoError(t, err)
	assert.Equal(t, "testuser", user.Username)
	assert.False(t, user.IsStaff)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("SecurePass123!")))

	claims, err := issuer.Parse(pair.Access, token.KindAccess)
	require.NoError(t, err)
	assert.Equal(t, domain.Authenticated(user.ID, false), claims.Caller())
	_, err = issuer.Parse(pair.Refresh, token.KindRefresh)
	assert.NoError(t, err)
}

func TestAuthService_Register_PasswordMismatch(t *testing.T) {
	svc, _ := newAuth(memoryUsers())
	reg := validRegistration()
	reg.Password2 = "WrongPass123!"

	_, _, err := svc.Register(context.Background(), reg)

	assert.True(t, fieldsOf(t, err).Has("password2"))
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	existing := existingUser(t, "existing", "pass123", false)
	existing.Email = "test@example.com"
	svc, _ := newAuth(memoryUsers(existing))

	_, _, err := svc.Register(context.Background(), validRegistration())

	verr := fieldsOf(t, err)
	assert.True(t, verr.Has("email"))
	assert.False(t, verr.Has("username"))
}

func TestAuthService_Register_DuplicateUsername(t *testing.T) {
	svc, _ := newAuth(memoryUsers(existingUser(t, "testuser", "whatever1", false)))

	_, _, err := svc.Register(context.Background(), validRegistration())

	assert.True(t, fieldsOf(t, err).Has("username"))
}

func TestAuthService_Register_WeakPasswords(t *testing.T) {
	tests := []struct {
		name     string
		password string
		reason   string
	}{
		{"too short", "Ab1!", "must contain at least 8 characters"},
		{"numeric", "12398745610", "must not be entirely numeric"},
		{"common", "Password123", "is too common"},
		{"similar to username", "testuser2024", "is too similar to the username"},
		{"similar to email", "Mytest-Kyiv9", "is too similar to the email address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newAuth(memoryUsers())
			reg := validRegistration()
			reg.Password, reg.Password2 = tt.password, tt.password

			_, _, err := svc.Register(context.Background(), reg)

			assert.Contains(t, fieldsOf(t, err).Fields["password"], tt.reason)
		})
	}
}

func TestAuthService_Register_MissingFields(t *testing.T) {
	svc, _ := newAuth(memoryUsers())

	_, _, err := svc.Register(context.Background(), domain.Registration{})

	verr := fieldsOf(t, err)
	for _, field := range []string{"username", "email", "password", "password2"} {
		assert.True(t, verr.Has(field), "expected violation on %s", field)
	}
}

func TestAuthService_Register_InvalidEmail(t *testing.T) {
	svc, _ := newAuth(memoryUsers())
	reg := validRegistration()
	reg.Email = "Test User <test@example.com>"

	_, _, err := svc.Register(context.Background(), reg)

	assert.True(t, fieldsOf(t, err).Has("email"))
}

// ---- Login -----------------------------------------------------------------

func TestAuthService_Login(t *testing.T) {
	user := existingUser(t, "testuser", "SecurePass123!", true)
	svc, issuer := newAuth(memoryUsers(user))

	pair, err := svc.Login(context.Background(), "testuser", "SecurePass123!")

	require.NoError(t, err)
	claims, err := issuer.Parse(pair.Access, token.KindAccess)
	require.NoError(t, err)
	assert.True(t, claims.Caller().IsStaff())
}

func TestAuthService_Login_WrongPasswordAndUnknownUserLookAlike(t *testing.T) {
	svc, _ := newAuth(memoryUsers(existingUser(t, "testuser", "SecurePass123!", false)))

	_, wrongPass := svc.Login(context.Background(), "testuser", "WrongPass")
	_, noUser := svc.Login(context.Background(), "nobody", "SecurePass123!")

	assert.ErrorIs(t, wrongPass, domain.ErrInvalidCredentials)
	assert.ErrorIs(t, noUser, domain.ErrInvalidCredentials)
}

// ---- Refresh ---------------------------------------------------------------

func TestAuthService_Refresh_RotatesAndRejectsReplay(t *testing.T) {
	user := existingUser(t, "testuser", "SecurePass123!", false)
	svc, issuer := newAuth(memoryUsers(user))
	ctx := context.Background()
	first, err := svc.Login(ctx, "testuser", "SecurePass123!")
	require.NoError(t, err)

	second, err := svc.Refresh(ctx, first.Refresh)
	require.NoError(t, err)
	assert.NotEqual(t, first.Refresh, second.Refresh)
	_, err = issuer.Parse(second.Access, token.KindAccess)
	assert.NoError(t, err)

	_, err = svc.Refresh(ctx, first.Refresh)
	assert.ErrorIs(t, err, domain.ErrInvalidToken, "a refresh token works once")

	_, err = svc.Refresh(ctx, second.Refresh)
	assert.NoError(t, err, "the rotated token is still good")
}

func TestAuthService_Refresh_RejectsAccessToken(t *testing.T) {
	user := existingUser(t, "testuser", "SecurePass123!", false)
	svc, _ := newAuth(memoryUsers(user))
	pair, err := svc.Login(context.Background(), "testuser", "SecurePass123!")
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), pair.Access)

	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestAuthService_Refresh_UnknownSubject(t *testing.T) {
	svc, issuer := newAuth(memoryUsers())
	pair, err := issuer.Pair(uuid.New(), false)
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), pair.Refresh)

	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

// ---- Authenticate ----------------------------------------------------------

func TestAuthService_Authenticate(t *testing.T) {
	svc, issuer := newAuth(memoryUsers())
	id := uuid.New()
	pair, err := issuer.Pair(id, true)
	require.NoError(t, err)

	caller, err := svc.Authenticate(context.Background(), pair.Access)
	require.NoError(t, err)
	assert.Equal(t, domain.Authenticated(id, true), caller)

	caller, err = svc.Authenticate(context.Background(), "garbage")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
	assert.True(t, caller.IsAnonymous())
}
