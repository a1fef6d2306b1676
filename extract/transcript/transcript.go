// Package transcript extracts spoken text from online videos.
package transcript

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/poiesic/lectern/core"
)

const (
	// DefaultLanguage is the preferred transcript language.
	DefaultLanguage = "en"

	// DefaultTimeout bounds the metadata and transcript requests together.
	DefaultTimeout = 30 * time.Second
)

// videoIDPatterns are tried in order; the first match wins.
var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`youtube\.com/watch\?(?:[^#]*&)?v=([^&\n?#]+)`),
	regexp.MustCompile(`youtu\.be/([^&\n?#/]+)`),
	regexp.MustCompile(`youtube\.com/embed/([^&\n?#/]+)`),
}

// ParseVideoID extracts the video identifier from a watch, short-link or embed URL.
// Returns an error wrapping core.ErrInvalidVideoURL for any other form.
func ParseVideoID(locator string) (string, error) {
	for _, pattern := range videoIDPatterns {
		if m := pattern.FindStringSubmatch(locator); m != nil {
			return m[1], nil
		}
	}
	return "", core.NewExtractionError(core.ErrInvalidVideoURL, core.SourceTypeVideo, locator, nil)
}

// Fetcher retrieves the ordered transcript segments of a video.
type Fetcher interface {
	FetchTranscript(ctx context.Context, videoID, language string) ([]string, error)
}

// FetcherFunc adapts an ordinary function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, videoID, language string) ([]string, error)

// FetchTranscript calls f(ctx, videoID, language).
func (f FetcherFunc) FetchTranscript(ctx context.Context, videoID, language string) ([]string, error) {
	return f(ctx, videoID, language)
}

// Adapter turns video URLs into transcript text.
type Adapter struct {
	fetcher  Fetcher
	language string
	timeout  time.Duration
	logger   *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLanguage sets the preferred transcript language.
func WithLanguage(language string) Option {
	return func(a *Adapter) {
		a.language = language
	}
}

// WithTimeout bounds each transcript fetch.
func WithTimeout(timeout time.Duration) Option {
	return func(a *Adapter) {
		a.timeout = timeout
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// New creates a transcript adapter backed by fetcher.
func New(fetcher Fetcher, opts ...Option) *Adapter {
	a := &Adapter{
		fetcher:  fetcher,
		language: DefaultLanguage,
		timeout:  DefaultTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("component", "transcript-adapter")
	return a
}

// Extract resolves the video ID, fetches its transcript and joins the
// segments with single spaces in their original order.
func (a *Adapter) Extract(ctx context.Context, src core.Source) (string, error) {
	videoID, err := ParseVideoID(src.Locator)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	segments, err := a.fetcher.FetchTranscript(ctx, videoID, a.language)
	if err != nil {
		return "", classifyFetchError(videoID, err)
	}

	text := strings.Join(segments, " ")
	if strings.TrimSpace(text) == "" {
		return "", core.NewExtractionError(core.ErrNoExtractableText, core.SourceTypeVideo, videoID, nil)
	}

	a.logger.Info("YouTube transcript fetched", "videoId", videoID, "length", len(text))
	return text, nil
}

func classifyFetchError(videoID string, err error) error {
	var extErr *core.ExtractionError
	if errors.As(err, &extErr) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return core.NewExtractionError(core.ErrFetchTimeout, core.SourceTypeVideo, videoID, err)
	}
	return core.NewExtractionError(core.ErrTranscriptUnavailable, core.SourceTypeVideo, videoID, err)
}
