package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbital-hq/taskboard-api/internal/api/middleware"
	"github.com/orbital-hq/taskboard-api/internal/api/shared"
	"github.com/orbital-hq/taskboard-api/internal/config"
	"github.com/orbital-hq/taskboard-api/internal/domain"
	"github.com/orbital-hq/taskboard-api/internal/platform/memory"
	"github.com/orbital-hq/taskboard-api/internal/service"
	"github.com/orbital-hq/taskboard-api/internal/service/auth"
)

func newUserTestRouter(t *testing.T) (chi.Router, auth.JWTService) {
	t.Helper()

	verifier := auth.NewBcryptVerifier()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	userService, err := service.NewUserService(memory.NewUserStore(), verifier, verifier, logger)
	require.NoError(t, err)

	jwtService, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:            strings.Repeat("s", 32),
		TokenLifetimeMinutes: 30,
	})
	require.NoError(t, err)

	handler := NewUserHandler(userService, jwtService)
	authMw := middleware.NewAuthMiddleware(jwtService)

	r := chi.NewRouter()
	r.Post("/api/users/register", handler.Register)
	r.Post("/api/users/login", handler.Login)
	r.Group(func(r chi.Router) {
		r.Use(authMw.Authenticate)
		r.Get("/api/users/me", handler.Me)
	})
	return r, jwtService
}

func postJSON(t *testing.T, router http.Handler, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterEndpoint(t *testing.T) {
	router, _ := newUserTestRouter(t)

	rec := postJSON(t, router, "/api/users/register", RegisterRequest{
		Username: "alice",
		Password: "password-1",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.Username)
	assert.NotNil(t, resp.ExternalData)
	assert.Empty(t, resp.ExternalData)
	assert.Contains(t, rec.Body.String(), "external_data")
}

func TestRegisterRejectsTakenUsername(t *testing.T) {
	router, _ := newUserTestRouter(t)

	rec := postJSON(t, router, "/api/users/register", RegisterRequest{Username: "alice", Password: "password-1"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postJSON(t, router, "/api/users/register", RegisterRequest{Username: "alice", Password: "password-2"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "taken")
}

func TestRegisterValidation(t *testing.T) {
	router, _ := newUserTestRouter(t)

	rec := postJSON(t, router, "/api/users/register", RegisterRequest{Username: "al", Password: "short"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginEndpoint(t *testing.T) {
	router, jwtService := newUserTestRouter(t)

	rec := postJSON(t, router, "/api/users/register", RegisterRequest{Username: "alice", Password: "password-1"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postJSON(t, router, "/api/users/login", LoginRequest{Username: "alice", Password: "password-1"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "bearer", resp.TokenType)

	claims, err := jwtService.ValidateToken(context.Background(), resp.AccessToken)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.UserID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	router, _ := newUserTestRouter(t)

	rec := postJSON(t, router, "/api/users/register", RegisterRequest{Username: "alice", Password: "password-1"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postJSON(t, router, "/api/users/login", LoginRequest{Username: "alice", Password: "wrong-pass"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(t, router, "/api/users/login", LoginRequest{Username: "nobody", Password: "password-1"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeEndpoint(t *testing.T) {
	router, _ := newUserTestRouter(t)

	rec := postJSON(t, router, "/api/users/register", RegisterRequest{Username: "alice", Password: "password-1"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postJSON(t, router, "/api/users/login", LoginRequest{Username: "alice", Password: "password-1"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var token TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &token))

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var me UserResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &me))
	assert.Equal(t, "alice", me.Username)
}

func TestUserResponseCarriesExternalData(t *testing.T) {
	user, err := domain.NewUser("alice", "password-1")
	require.NoError(t, err)
	user.ExternalData[domain.ExternalDataTrelloToken] = "tok-123"

	out, err := json.Marshal(NewUserResponse(user))
	require.NoError(t, err)
	assert.Contains(t, string(out), `"external_data"`)
	assert.Contains(t, string(out), `"trello_token":"tok-123"`)
}

func TestMeRequiresAuth(t *testing.T) {
	router, _ := newUserTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	var resp shared.ErrorResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &resp))
	assert.Equal(t, "Invalid token", resp.Error)
}
