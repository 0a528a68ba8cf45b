package boltdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantit/plantit/internal/client/storage"
)

func TestSaveSession_GetSession(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	session := &storage.Session{
		Username:    "gardener",
		UserID:      "user-1",
		AccessToken: "token-abc",
		ExpiresAt:   time.Now().Add(time.Hour).Unix(),
	}
	require.NoError(t, s.SaveSession(ctx, session))

	got, err := s.GetSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, session, got)
}

func TestGetSession_NotFound(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.GetSession(context.Background())
	assert.ErrorIs(t, err, storage.ErrAuthNotFound)
}

func TestDeleteSession(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSession(ctx, &storage.Session{Username: "gardener"}))
	require.NoError(t, s.DeleteSession(ctx))

	_, err := s.GetSession(ctx)
	assert.ErrorIs(t, err, storage.ErrAuthNotFound)

	// Повторное удаление безопасно
	require.NoError(t, s.DeleteSession(ctx))
}
