package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModule(t *testing.T) {
	t.Parallel()

	for _, m := range AllModules() {
		got, err := ParseModule(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}

	_, err := ParseModule("inflation")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported scr module")
}

func TestParseDocType(t *testing.T) {
	t.Parallel()

	for _, dt := range AllDocTypes() {
		got, err := ParseDocType(string(dt))
		require.NoError(t, err)
		assert.Equal(t, dt, got)
	}

	_, err := ParseDocType("blog_post")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported document type")
}

func TestParseProviderAndLevel(t *testing.T) {
	t.Parallel()

	p, err := ParseProvider("claude-sonnet-4")
	require.NoError(t, err)
	assert.Equal(t, ProviderClaudeSonnet, p)

	_, err = ParseProvider("llama")
	assert.Error(t, err)

	l, err := ParseLevel("regulation_specialist")
	require.NoError(t, err)
	assert.Equal(t, LevelRegulationSpecialist, l)

	_, err = ParseLevel("novice")
	assert.Error(t, err)
}
