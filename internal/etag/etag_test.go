package etag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCompute_Stable проверяет, что одинаковые payload дают одинаковый ETag
func TestCompute_Stable(t *testing.T) {
	a, err := Compute(map[string]any{"name": "basil", "count": 3})
	require.NoError(t, err)

	b, err := Compute(map[string]any{"count": 3, "name": "basil"})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64) // hex sha256
}

// TestCompute_ChangesWithPayload проверяет чувствительность к содержимому
func TestCompute_ChangesWithPayload(t *testing.T) {
	a, err := Compute(map[string]any{"name": "basil"})
	require.NoError(t, err)

	b, err := Compute(map[string]any{"name": "mint"})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

// TestCompute_StructAndMapAgree проверяет каноникализацию:
// struct и эквивалентная map дают один ETag
func TestCompute_StructAndMapAgree(t *testing.T) {
	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	fromStruct, err := Compute(payload{Name: "basil", Count: 3})
	require.NoError(t, err)

	fromMap, err := Compute(map[string]any{"name": "basil", "count": 3})
	require.NoError(t, err)

	assert.Equal(t, fromStruct, fromMap)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "abc", Normalize(`"abc"`))
	assert.Equal(t, "abc", Normalize(`W/"abc"`))
	assert.Equal(t, "abc", Normalize(" abc "))
	assert.Equal(t, "", Normalize(""))
}
