// Package webpage extracts the readable text of an HTML page.
package webpage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/poiesic/lectern/core"
)

const (
	// DefaultTimeout bounds the whole fetch, including reading the body.
	DefaultTimeout = 10 * time.Second

	// DefaultUserAgent identifies the client as a desktop browser.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	// MaxBodySize caps how much of a response body is read.
	MaxBodySize = 10 << 20
)

// strippedElements never contribute to the extracted text.
const strippedElements = "script, style, noscript, nav, footer, iframe"

// contentSelectors are tried in order; the first one whose first match holds text wins.
var contentSelectors = []string{
	"article",
	"main",
	"[role=main]",
	".content",
	"#content",
	".post-content",
	".entry-content",
}

// Adapter fetches pages over HTTP and extracts their main text.
type Adapter struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	logger    *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithHTTPClient replaces the HTTP client. The client is shared, never modified;
// the adapter's own timeout still bounds each fetch.
func WithHTTPClient(client *http.Client) Option {
	return func(a *Adapter) {
		if client != nil {
			a.client = client
		}
	}
}

// WithTimeout bounds each fetch, including reading the body.
// Non-positive values keep DefaultTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(a *Adapter) {
		if timeout > 0 {
			a.timeout = timeout
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(a *Adapter) {
		a.userAgent = userAgent
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// New creates a webpage adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		client:    &http.Client{},
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("component", "webpage-adapter")
	return a
}

// Extract fetches src.Locator and returns the page's normalized main text.
func (a *Adapter) Extract(ctx context.Context, src core.Source) (string, error) {
	body, err := a.fetch(ctx, src.Locator)
	if err != nil {
		return "", err
	}

	text, err := ExtractText(strings.NewReader(body))
	if err != nil {
		return "", core.NewExtractionError(core.ErrFetchError, core.SourceTypeWebpage, "parse "+src.Locator, err)
	}
	if text == "" {
		return "", core.NewExtractionError(core.ErrNoExtractableText, core.SourceTypeWebpage, src.Locator, nil)
	}

	a.logger.Info("URL scraped", "url", src.Locator, "length", len(text))
	return text, nil
}

// fetch downloads a page body, classifying failures as timeouts or fetch errors.
func (a *Adapter) fetch(ctx context.Context, locator string) (string, error) {
	u, err := url.Parse(locator)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", core.NewExtractionError(core.ErrFetchError, core.SourceTypeWebpage, fmt.Sprintf("invalid url %q", locator), err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", core.NewExtractionError(core.ErrFetchError, core.SourceTypeWebpage, locator, err)
	}
	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", classifyFetchError(locator, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", core.NewExtractionError(core.ErrFetchError, core.SourceTypeWebpage,
			fmt.Sprintf("%s: unexpected status %d", locator, resp.StatusCode), nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return "", classifyFetchError(locator, err)
	}
	if len(data) > MaxBodySize {
		return "", core.NewExtractionError(core.ErrFetchError, core.SourceTypeWebpage,
			fmt.Sprintf("%s: body exceeds %d bytes", locator, MaxBodySize), nil)
	}
	return string(data), nil
}

func classifyFetchError(locator string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return core.NewExtractionError(core.ErrFetchTimeout, core.SourceTypeWebpage, locator, err)
	}
	return core.NewExtractionError(core.ErrFetchError, core.SourceTypeWebpage, locator, err)
}

// ExtractText parses an HTML document and returns its main text with
// whitespace runs collapsed to single spaces. The result depends only on the
// input, so identical documents always yield identical text.
func ExtractText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}

	doc.Find(strippedElements).Remove()

	for _, selector := range contentSelectors {
		match := doc.Find(selector).First()
		if match.Length() == 0 {
			continue
		}
		if text := normalizeWhitespace(match.Text()); text != "" {
			return text, nil
		}
	}

	paragraphs := doc.Find("p").Map(func(_ int, s *goquery.Selection) string {
		return s.Text()
	})
	return normalizeWhitespace(strings.Join(paragraphs, "\n\n")), nil
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
