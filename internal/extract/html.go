package extract

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/time/rate"

	"github.com/solvencykit/scrkb-cli/internal/model"
)

const (
	userAgent       = "scrkb-cli/1.0 (regulatory document ingestion)"
	maxLinks        = 50
	fetchTimeout    = 30 * time.Second
	maxResponseSize = 32 << 20
)

// HTMLExtractor handles web pages and local HTML files. Remote fetches share
// a rate limiter so batch ingestion stays polite to regulator sites.
type HTMLExtractor struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTMLExtractor creates an HTMLExtractor allowing rps requests per second
// with the given burst for remote fetches.
func NewHTMLExtractor(rps float64, burst int) *HTMLExtractor {
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &HTMLExtractor{
		client:  &http.Client{Timeout: fetchTimeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (e *HTMLExtractor) Name() string { return "html" }

// Extract parses the page at locator, which is either an http(s) URL or a
// path to a local .html file.
func (e *HTMLExtractor) Extract(ctx context.Context, locator string) (*Content, error) {
	var (
		raw []byte
		err error
	)
	if IsURL(locator) {
		raw, err = e.fetch(ctx, locator)
	} else {
		raw, err = readLocalHTML(locator)
	}
	if err != nil {
		return nil, err
	}
	return e.parse(raw, locator)
}

func (e *HTMLExtractor) fetch(ctx context.Context, url string) ([]byte, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "html: rate limiter wait canceled")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "html: build request for %s", url)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(model.ErrFetchFailed, "html: fetch %s: %v", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, eris.Wrapf(model.ErrFetchFailed, "html: fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, eris.Wrapf(err, "html: read body of %s", url)
	}

	if decoded, err := decodeCharset(body, resp.Header.Get("Content-Type")); err == nil {
		body = decoded
	} else {
		zap.L().Debug("html: charset decode failed, keeping raw bytes",
			zap.String("url", url), zap.Error(err))
	}
	return body, nil
}

func readLocalHTML(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, eris.Wrapf(model.ErrNotFound, "html: %s", path)
		}
		return nil, eris.Wrapf(err, "html: read %s", path)
	}
	return data, nil
}

// decodeCharset converts body to UTF-8 based on the charset parameter of the
// Content-Type header. Bodies without a charset, or already UTF-8, pass
// through unchanged.
func decodeCharset(body []byte, contentType string) ([]byte, error) {
	const marker = "charset="
	idx := strings.Index(strings.ToLower(contentType), marker)
	if idx < 0 {
		return body, nil
	}
	name := contentType[idx+len(marker):]
	if sep := strings.IndexAny(name, "; "); sep >= 0 {
		name = name[:sep]
	}
	name = strings.Trim(name, `"'`)
	if name == "" || strings.EqualFold(name, "utf-8") {
		return body, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, eris.Wrapf(err, "html: unknown charset %q", name)
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return nil, eris.Wrapf(err, "html: decode charset %q", name)
	}
	return decoded, nil
}

// parse walks the DOM, collecting visible text, metadata and structure while
// skipping script, style and chrome elements.
func (e *HTMLExtractor) parse(raw []byte, locator string) (*Content, error) {
	root, err := html.Parse(strings.NewReader(string(raw)))
	if err != nil {
		return nil, eris.Wrapf(err, "html: parse %s", locator)
	}

	content := &Content{}
	w := &domWalker{content: content}
	w.walk(root)

	content.Text = normalizeWhitespace(w.text.String())
	content.Metadata.Title = strings.TrimSpace(w.title)
	content.Metadata.Description = strings.TrimSpace(w.description)
	content.Metadata.Language = strings.TrimSpace(w.lang)
	content.Statistics.WordCount = len(strings.Fields(content.Text))
	content.Statistics.CharCount = len(content.Text)
	content.Statistics.TableCount = len(content.Tables)
	content.Statistics.LinkCount = len(content.Links)
	content.Statistics.HeadingCount = len(content.Headings)

	zap.L().Info("html: extracted",
		zap.String("locator", locator),
		zap.Int("words", content.Statistics.WordCount),
		zap.Int("tables", content.Statistics.TableCount),
	)
	return content, nil
}

var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"nav":      true,
	"footer":   true,
	"header":   true,
	"aside":    true,
}

type domWalker struct {
	content     *Content
	text        strings.Builder
	title       string
	description string
	lang        string
}

func (w *domWalker) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "html":
			if w.lang == "" {
				w.lang = attr(n, "lang")
			}
		case "title":
			if w.title == "" {
				w.title = textOf(n)
			}
			return
		case "meta":
			if strings.EqualFold(attr(n, "name"), "description") && w.description == "" {
				w.description = attr(n, "content")
			}
			return
		case "table":
			w.collectTable(n)
			return
		case "h1", "h2", "h3", "h4", "h5", "h6":
			level := int(n.Data[1] - '0')
			text := strings.TrimSpace(textOf(n))
			if text != "" {
				w.content.Headings = append(w.content.Headings, Heading{Level: level, Text: text})
				w.text.WriteString(text)
				w.text.WriteString("\n")
			}
			return
		case "a":
			if len(w.content.Links) < maxLinks {
				href := attr(n, "href")
				text := strings.TrimSpace(textOf(n))
				if href != "" && text != "" {
					w.content.Links = append(w.content.Links, Link{Text: text, URL: href})
				}
			}
		case "br", "p", "div", "li", "tr":
			defer w.text.WriteString("\n")
		default:
			if skippedElements[n.Data] {
				return
			}
		}
	}
	if n.Type == html.TextNode {
		w.text.WriteString(n.Data)
		w.text.WriteString(" ")
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

// collectTable flattens a table element into rows of trimmed cell text. The
// table text is also appended to the document body so signal extraction sees
// values such as stress factors that regulators publish in tabular form.
func (w *domWalker) collectTable(n *html.Node) {
	table := Table{Index: len(w.content.Tables)}
	var visit func(*html.Node)
	var row []string
	visit = func(node *html.Node) {
		if node.Type == html.ElementNode {
			switch node.Data {
			case "tr":
				row = nil
				for c := node.FirstChild; c != nil; c = c.NextSibling {
					visit(c)
				}
				if len(row) > 0 {
					table.Rows = append(table.Rows, row)
				}
				return
			case "td", "th":
				row = append(row, strings.TrimSpace(textOf(node)))
				return
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	if len(table.Rows) == 0 {
		return
	}
	w.content.Tables = append(w.content.Tables, table)
	for _, r := range table.Rows {
		w.text.WriteString(strings.Join(r, " "))
		w.text.WriteString("\n")
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
