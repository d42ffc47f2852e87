package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbital-hq/taskboard-api/internal/platform/memory"
	"github.com/orbital-hq/taskboard-api/internal/service/auth"
)

func newTestUserService(t *testing.T) UserService {
	t.Helper()
	verifier := auth.NewBcryptVerifier()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := NewUserService(memory.NewUserStore(), verifier, verifier, logger)
	require.NoError(t, err)
	return svc
}

func TestRegisterHashesPassword(t *testing.T) {
	svc := newTestUserService(t)

	user, err := svc.Register(context.Background(), "astro", "orbital-pass-1")
	require.NoError(t, err)

	assert.Equal(t, "astro", user.Username)
	assert.Empty(t, user.Password)
	assert.NotEmpty(t, user.HashedPassword)
	assert.NotEqual(t, "orbital-pass-1", user.HashedPassword)
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	svc := newTestUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "astro", "orbital-pass-1")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "astro", "another-pass-2")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestAuthenticate(t *testing.T) {
	svc := newTestUserService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "astro", "orbital-pass-1")
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, "astro", "orbital-pass-1")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	_, err = svc.Authenticate(ctx, "astro", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody", "orbital-pass-1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestGetUser(t *testing.T) {
	svc := newTestUserService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "astro", "orbital-pass-1")
	require.NoError(t, err)

	user, err := svc.GetUser(ctx, registered.ID)
	require.NoError(t, err)
	assert.Equal(t, "astro", user.Username)

	_, err = svc.GetUser(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}
