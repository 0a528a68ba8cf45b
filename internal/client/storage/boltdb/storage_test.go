package boltdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStorage создает storage во временной директории
func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "plantit-test.db")
	s, err := New(context.Background(), dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

func TestNew(t *testing.T) {
	s := newTestStorage(t)
	assert.NotNil(t, s)
	assert.NotNil(t, s.db)
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New(context.Background(), "/nonexistent-dir/sub/plantit.db")
	assert.Error(t, err)
}

func TestClose_Idempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "plantit-test.db")
	s, err := New(context.Background(), dbPath)
	require.NoError(t, err)

	require.NoError(t, s.Close())

	// Повторный Close не должен паниковать
	_ = s.Close()
}
