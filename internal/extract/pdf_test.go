package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvencykit/scrkb-cli/internal/model"
)

func TestPDFExtractorErrors(t *testing.T) {
	ext := NewPDFExtractor()

	t.Run("missing file", func(t *testing.T) {
		_, err := ext.Extract(context.Background(), filepath.Join(t.TempDir(), "absent.pdf"))
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("wrong extension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "notes.txt")
		require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o644))
		_, err := ext.Extract(context.Background(), path)
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrUnsupportedSource)
	})

	t.Run("corrupt pdf", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.pdf")
		require.NoError(t, os.WriteFile(path, []byte("not a pdf at all"), 0o644))
		_, err := ext.Extract(context.Background(), path)
		require.Error(t, err)
	})
}

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "a b\nc", normalizeWhitespace("  a \t b \n c  "))
	assert.Equal(t, "", normalizeWhitespace(" \t \n "))
}
