package api

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/identkit/userhub/pkg/config"
	apperrors "github.com/identkit/userhub/pkg/errors"
	"github.com/identkit/userhub/pkg/logger"
	"github.com/identkit/userhub/pkg/users"
)

const testSecret = "test-secret-at-least-16-chars"

// newTestServer assembles a server over a throwaway SQLite store.
func newTestServer(t *testing.T) (*Server, *users.Service, *users.TokenService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Auth.JWTSecret = testSecret

	repo, err := users.NewRepository(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	log := logger.NewTestLogger()
	hasher := users.NewHasher(4)
	tokens := users.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	unique := users.NewUniqueValidator(repo, log)
	svc := users.NewService(repo, hasher, tokens, unique, log)

	return NewServer(cfg, log, svc, tokens, "test"), svc, tokens
}

func doRequest(t *testing.T, s *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, newBodyReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestAuthGuard(t *testing.T) {
	s, svc, tokens := newTestServer(t)

	user, err := svc.Create(t.Context(), users.CreateParams{
		Email:    "a@x.com",
		Name:     "Alice",
		Password: "Secret123!",
	})
	require.NoError(t, err)

	valid, err := tokens.Issue(user.ID, user.Email)
	require.NoError(t, err)

	expired, err := users.NewTokenService(testSecret, -time.Minute).Issue(user.ID, user.Email)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic xyz", http.StatusUnauthorized},
		{"lowercase scheme", "bearer " + valid, http.StatusUnauthorized},
		{"scheme without token", "Bearer ", http.StatusUnauthorized},
		{"scheme without space", "Bearer" + valid, http.StatusUnauthorized},
		{"tampered token", "Bearer " + valid[:len(valid)-4] + "XXXX", http.StatusUnauthorized},
		{"expired token", "Bearer " + expired, http.StatusUnauthorized},
		{"valid token", "Bearer " + valid, http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			headers := map[string]string{}
			if tc.header != "" {
				headers["Authorization"] = tc.header
			}
			w := doRequest(t, s, http.MethodGet, "/users", "", headers)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestAuthGuard_AttachesClaims(t *testing.T) {
	s, svc, tokens := newTestServer(t)

	user, err := svc.Create(t.Context(), users.CreateParams{
		Email:    "a@x.com",
		Name:     "Alice",
		Password: "Secret123!",
	})
	require.NoError(t, err)

	token, err := tokens.Issue(user.ID, user.Email)
	require.NoError(t, err)

	w := doRequest(t, s, http.MethodGet, "/users/me", "", map[string]string{
		"Authorization": "Bearer " + token,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"a@x.com"`)
	assert.Contains(t, w.Body.String(), `"name":"Alice"`)
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		token  string
		ok     bool
	}{
		{"valid", "Bearer abc.def.ghi", "abc.def.ghi", true},
		{"empty header", "", "", false},
		{"missing scheme", "abc.def.ghi", "", false},
		{"basic scheme", "Basic abc", "", false},
		{"lowercase bearer", "bearer abc", "", false},
		{"no space", "Bearerabc", "", false},
		{"empty token", "Bearer ", "", false},
		{"token keeps extra spaces", "Bearer  abc", " abc", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			token, err := extractBearerToken(tc.header)
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, tc.token, token)
			} else {
				require.Error(t, err)
				assert.True(t, apperrors.Is(err, apperrors.CodeTokenNotFound))
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = doRequest(t, s, http.MethodGet, "/health", "", map[string]string{"X-Request-ID": "fixed-id"})
	assert.Equal(t, "fixed-id", w.Header().Get("X-Request-ID"))
}
