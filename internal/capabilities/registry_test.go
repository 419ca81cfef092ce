package capabilities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_LoadsProvidersInOrder(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	kimi, err := r.ListProviderModels("kimi")
	require.NoError(t, err)
	require.NotEmpty(t, kimi)
	assert.Equal(t, "kimi-k2-0905-preview", kimi[0].ID)
	assert.Equal(t, "kimi", kimi[0].Provider)

	_, err = r.ListProviderModels("openai")
	assert.Error(t, err)
}

func TestRegistry_FindModel(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	m, ok := r.FindModel("qwen-plus")
	require.True(t, ok)
	assert.Equal(t, "qwen", m.Provider)
	assert.True(t, m.SupportsTools)

	_, ok = r.FindModel("gpt-4o")
	assert.False(t, ok)

	caps, err := r.GetModelCapabilities("kimi", "kimi-k2-thinking")
	require.NoError(t, err)
	assert.True(t, caps.RequiresThinking)
}

func TestRegistry_ListModelsSkipsToolless(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	for _, m := range r.ListModels() {
		assert.True(t, m.SupportsTools, m.ID)
		assert.NotEqual(t, "qwen-vl-max", m.ID)
	}
}
