package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/culture-map/backend/internal/domain"
	"github.com/pkordes/culture-map/backend/internal/handler"
)

func TestApproveObjects_200(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	h := newHTTPHandler(handler.NewServer(&mockCatalog{
		approve: func(_ context.Context, c domain.Caller, got []uuid.UUID) (int64, error) {
			assert.Equal(t, staff, c)
			assert.Equal(t, ids, got)
			return 1, nil
		},
	}, nil, nil, nil, nil), staff)

	rec := serve(t, h, http.MethodPost, "/api/admin/objects/approve", map[string]any{"ids": ids})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":1}`, rec.Body.String())
}

func TestRestoreObjects_200(t *testing.T) {
	id := uuid.New()
	h := newHTTPHandler(handler.NewServer(&mockCatalog{
		restore: func(_ context.Context, _ domain.Caller, got []uuid.UUID) (int64, error) {
			assert.Equal(t, []uuid.UUID{id}, got)
			return 0, nil
		},
	}, nil, nil, nil, nil), staff)

	rec := serve(t, h, http.MethodPost, "/api/admin/objects/restore", map[string]any{"ids": []uuid.UUID{id}})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":0}`, rec.Body.String())
}

func TestModeration_RoleIsCheckedBeforeBody(t *testing.T) {
	tests := []struct {
		name     string
		caller   domain.Caller
		wantCode int
	}{
		{"anonymous", anonymous, http.StatusUnauthorized},
		{"non-staff", author, http.StatusForbidden},
	}
	for _, tt := range tests {
		for _, path := range []string{"/api/admin/objects/approve", "/api/admin/objects/restore"} {
			t.Run(tt.name+" "+path, func(t *testing.T) {
				h := newHTTPHandler(handler.NewServer(&mockCatalog{}, nil, nil, nil, nil), tt.caller)

				rec := serve(t, h, http.MethodPost, path, "not json")

				assert.Equal(t, tt.wantCode, rec.Code)
			})
		}
	}
}

func TestApproveObjects_EmptyIDs(t *testing.T) {
	h := newHTTPHandler(handler.NewServer(&mockCatalog{
		approve: func(_ context.Context, _ domain.Caller, _ []uuid.UUID) (int64, error) {
			return 0, domain.FieldError("ids", "must not be empty")
		},
	}, nil, nil, nil, nil), staff)

	rec := serve(t, h, http.MethodPost, "/api/admin/objects/approve", map[string]any{"ids": []string{}})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Error.Fields, "ids")
}
