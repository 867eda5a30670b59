package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvencykit/scrkb-cli/internal/model"
)

func TestFactoryForLocator(t *testing.T) {
	factory := NewFactory(NewPDFExtractor(), NewHTMLExtractor(1, 1))

	cases := []struct {
		name    string
		locator string
		want    string
	}{
		{"https url", "https://eur-lex.europa.eu/eli/reg_del/2015/35", "html"},
		{"http url", "http://example.com/page", "html"},
		{"pdf file", "/data/delegated_regulation.pdf", "pdf"},
		{"pdf file upper case", "/data/GUIDELINES.PDF", "pdf"},
		{"html file", "notes/eiopa.html", "html"},
		{"htm file", "notes/eiopa.htm", "html"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ext, err := factory.ForLocator(tc.locator)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ext.Name())
		})
	}

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := factory.ForLocator("report.docx")
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrUnsupportedSource)
	})
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://example.com"))
	assert.True(t, IsURL("http://example.com"))
	assert.False(t, IsURL("ftp://example.com"))
	assert.False(t, IsURL("/tmp/file.pdf"))
}
