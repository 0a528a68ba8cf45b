package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	token, err := m.Generate("user-1", "gardener")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "gardener", claims.Username)
}

func TestValidate_Expired(t *testing.T) {
	m := NewManager("test-secret", -time.Minute)

	token, err := m.Generate("user-1", "gardener")
	require.NoError(t, err)

	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_WrongSecret(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	token, err := m.Generate("user-1", "gardener")
	require.NoError(t, err)

	other := NewManager("other-secret", time.Hour)
	_, err = other.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_Garbage(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	_, err := m.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
