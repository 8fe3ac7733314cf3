package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coastwatch-systems/coastwatch/internal/models"
)

type stubResolver struct {
	users map[string]*models.User
}

func (r *stubResolver) ResolveToken(_ context.Context, token string) (*models.User, error) {
	if u, ok := r.users[token]; ok {
		return u, nil
	}
	return nil, errors.New("invalid token")
}

func newStubResolver() *stubResolver {
	return &stubResolver{users: map[string]*models.User{
		"citizen-token": {ID: "u1", Role: models.RoleCitizen},
		"analyst-token": {ID: "u2", Role: models.RoleAnalyst},
	}}
}

func echoUser(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUser(r.Context())
		if user == nil {
			t.Error("expected user in context")
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuth(t *testing.T) {
	mw := NewAuthMiddleware(newStubResolver())
	handler := mw.RequireAuth(echoUser(t))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer citizen-token", http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"malformed header", "citizen-token", http.StatusUnauthorized},
		{"wrong scheme", "Basic citizen-token", http.StatusUnauthorized},
		{"unknown token", "Bearer bogus", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	mw := NewAuthMiddleware(newStubResolver())
	handler := mw.RequireRole(models.RoleAnalyst, models.RoleAdmin)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer analyst-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer citizen-token")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "unauthenticated beats forbidden")
}

func TestRequestIDGenerated(t *testing.T) {
	var captured string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotEmpty(t, captured)
	assert.Equal(t, captured, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDPropagated(t *testing.T) {
	var captured string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-id")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "upstream-id", captured)
}
