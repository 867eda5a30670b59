package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvencykit/scrkb-cli/internal/model"
)

const samplePage = `<!DOCTYPE html>
<html lang="en">
<head>
<title>Delegated Regulation 2015/35</title>
<meta name="description" content="Spread risk submodule calibration">
<script>var tracker = "ignore me";</script>
<style>.hidden { display: none; }</style>
</head>
<body>
<nav><a href="/home">Home</a></nav>
<h1>Spread risk</h1>
<h2>Bonds and loans</h2>
<p>Article 176 sets the capital requirement for spread risk on bonds.</p>
<table>
<tr><th>Rating</th><th>Stress</th></tr>
<tr><td>AAA</td><td>0.9%</td></tr>
</table>
<p>See <a href="https://eur-lex.europa.eu/article-176">the full text</a>.</p>
<footer>Copyright notice</footer>
</body>
</html>`

func TestHTMLExtractorRemote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(samplePage))
	}))
	defer server.Close()

	ext := NewHTMLExtractor(100, 10)
	content, err := ext.Extract(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, "Delegated Regulation 2015/35", content.Metadata.Title)
	assert.Equal(t, "Spread risk submodule calibration", content.Metadata.Description)
	assert.Equal(t, "en", content.Metadata.Language)

	assert.Contains(t, content.Text, "Article 176")
	assert.NotContains(t, content.Text, "ignore me")
	assert.NotContains(t, content.Text, "display: none")
	assert.NotContains(t, content.Text, "Copyright notice")

	require.Len(t, content.Headings, 2)
	assert.Equal(t, Heading{Level: 1, Text: "Spread risk"}, content.Headings[0])
	assert.Equal(t, Heading{Level: 2, Text: "Bonds and loans"}, content.Headings[1])

	require.Len(t, content.Tables, 1)
	assert.Equal(t, [][]string{{"Rating", "Stress"}, {"AAA", "0.9%"}}, content.Tables[0].Rows)
	assert.Contains(t, content.Text, "AAA 0.9%")

	require.Len(t, content.Links, 1)
	assert.Equal(t, "https://eur-lex.europa.eu/article-176", content.Links[0].URL)

	assert.Equal(t, 1, content.Statistics.TableCount)
	assert.Equal(t, 2, content.Statistics.HeadingCount)
	assert.Greater(t, content.Statistics.WordCount, 0)
}

func TestHTMLExtractorRemoteErrors(t *testing.T) {
	t.Run("http error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		}))
		defer server.Close()

		ext := NewHTMLExtractor(100, 10)
		_, err := ext.Extract(context.Background(), server.URL)
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrFetchFailed)
	})

	t.Run("unreachable host", func(t *testing.T) {
		ext := NewHTMLExtractor(100, 10)
		_, err := ext.Extract(context.Background(), "http://127.0.0.1:1/nope")
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrFetchFailed)
	})
}

func TestHTMLExtractorLocal(t *testing.T) {
	t.Run("local file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "reg.html")
		require.NoError(t, os.WriteFile(path, []byte(samplePage), 0o644))

		ext := NewHTMLExtractor(1, 1)
		content, err := ext.Extract(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, "Delegated Regulation 2015/35", content.Metadata.Title)
		assert.Contains(t, content.Text, "spread risk on bonds")
	})

	t.Run("missing file", func(t *testing.T) {
		ext := NewHTMLExtractor(1, 1)
		_, err := ext.Extract(context.Background(), filepath.Join(t.TempDir(), "absent.html"))
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}
