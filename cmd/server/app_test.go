package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbital-hq/taskboard-api/internal/config"
	"github.com/orbital-hq/taskboard-api/internal/domain"
	"github.com/orbital-hq/taskboard-api/internal/service"
	"github.com/orbital-hq/taskboard-api/internal/store"
)

func testAppConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:     8080,
			LogLevel: "error",
		},
		Database: config.DatabaseConfig{
			Driver: "memory",
		},
		Auth: config.AuthConfig{
			JWTSecret:            strings.Repeat("s", 32),
			TokenLifetimeMinutes: 30,
		},
		Trello: config.TrelloConfig{
			APIKey:              "test-key",
			BoardName:           "SPACE_X_BOARD",
			TokenName:           "SpaceXTrelloAPI",
			TokenExpirationDays: 1,
		},
		Worker: config.WorkerConfig{
			Count:                1,
			QueueSize:            10,
			MaxAttempts:          2,
			RetryIntervalSeconds: 1,
		},
	}
}

func TestNewApplicationWiresMemoryBackend(t *testing.T) {
	app, err := newApplication(testAppConfig())
	require.NoError(t, err)

	assert.NotNil(t, app.taskStore)
	assert.NotNil(t, app.userStore)
	assert.NotNil(t, app.jobStore)
	assert.NotNil(t, app.taskService)
	assert.NotNil(t, app.userService)
	assert.NotNil(t, app.trelloService)
	assert.NotNil(t, app.runner)
	assert.Nil(t, app.db)
}

func TestNewApplicationRejectsUnknownDriver(t *testing.T) {
	cfg := testAppConfig()
	cfg.Database.Driver = "sqlite"

	_, err := newApplication(cfg)
	assert.Error(t, err)
}

func TestSyncExhaustionMarksTaskFailed(t *testing.T) {
	cfg := testAppConfig()
	cfg.Worker.RetryIntervalSeconds = 1
	cfg.Worker.MaxAttempts = 2

	app, err := newApplication(cfg)
	require.NoError(t, err)
	require.NoError(t, app.runner.Start())
	defer app.runner.Stop()

	ctx := context.Background()
	user, err := app.userService.Register(ctx, "alice", "password-1")
	require.NoError(t, err)

	// No Trello token is linked, so every sync attempt fails upstream.
	task, err := app.taskService.CreateTask(ctx, user.ID, service.CreateTaskParams{
		Title:       "telemetry dropouts",
		Description: "after max-q",
		Type:        domain.TaskTypeIssue,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := app.taskStore.Get(ctx, store.TaskFilter{ID: &task.ID})
		if err != nil {
			return false
		}
		return got.Status == domain.TaskStatusError
	}, 10*time.Second, 25*time.Millisecond, "task never reached ERROR")

	got, err := app.taskStore.Get(ctx, store.TaskFilter{ID: &task.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusError, got.Status)
	assert.Equal(t, cfg.Worker.MaxAttempts, got.FailCount)
}

func TestRouterServesHealthAndAuth(t *testing.T) {
	app, err := newApplication(testAppConfig())
	require.NoError(t, err)
	router := app.setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusOK, res.Code)

	body, err := json.Marshal(map[string]string{
		"username": "alice",
		"password": "password-1",
	})
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodPost, "/api/users/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusCreated, res.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/users/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)

	var token struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &token))
	assert.Equal(t, "bearer", token.TokenType)

	// Protected route rejects anonymous requests.
	req = httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	// And accepts the issued token.
	req = httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusOK, res.Code)
}
