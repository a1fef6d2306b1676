// Package document extracts text from uploaded files stored on local disk.
//
// Each supported format declares the file extensions it owns and a header
// check. The header check runs before any parsing; bytes that fail it are
// rejected as corrupt without being handed to the parser.
package document

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/lectern/core"
)

// MaxFileSize caps how many bytes of a document are read.
const MaxFileSize = 50 << 20

// Format is one supported document format.
type Format struct {
	Name       string
	Extensions []string

	// Sniff reports whether data carries the format's header.
	Sniff func(data []byte) bool

	// Extract returns the document text. It is only called on data that passed Sniff.
	Extract func(ctx context.Context, data []byte) (string, error)
}

// Adapter reads documents from disk and extracts their text.
type Adapter struct {
	formats []Format
	logger  *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithFormat registers an additional format. Later formats take precedence
// for extensions they share with earlier ones.
func WithFormat(f Format) Option {
	return func(a *Adapter) {
		a.formats = append(a.formats, f)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// New creates a document adapter supporting PDF and plain text.
func New(opts ...Option) *Adapter {
	a := &Adapter{
		formats: []Format{PDF(), PlainText()},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("component", "document-adapter")
	return a
}

// Extract reads the file at src.Locator and extracts its text.
func (a *Adapter) Extract(ctx context.Context, src core.Source) (string, error) {
	data, err := readFile(src.Locator)
	if err != nil {
		return "", err
	}
	text, err := a.ExtractBytes(ctx, filepath.Base(src.Locator), data)
	if err != nil {
		return "", err
	}
	a.logger.Info("document extracted", "path", src.Locator, "length", len(text))
	return text, nil
}

// ExtractBytes extracts text from document bytes. name is only used to pick a
// format by extension; when the extension is unknown the format is sniffed.
func (a *Adapter) ExtractBytes(ctx context.Context, name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", core.NewExtractionError(core.ErrCorruptFile, core.SourceTypeFile, name+": empty file", nil)
	}

	format, ok := a.formatFor(name, data)
	if !ok {
		return "", core.NewExtractionError(core.ErrCorruptFile, core.SourceTypeFile, name+": unrecognized document format", nil)
	}
	if !format.Sniff(data) {
		return "", core.NewExtractionError(core.ErrCorruptFile, core.SourceTypeFile,
			fmt.Sprintf("%s: missing %s header", name, format.Name), nil)
	}

	text, err := format.Extract(ctx, data)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", core.NewExtractionError(core.ErrNoExtractableText, core.SourceTypeFile, name, nil)
	}
	return text, nil
}

// formatFor picks the format by extension, falling back to header sniffing.
func (a *Adapter) formatFor(name string, data []byte) (Format, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext != "" {
		for i := len(a.formats) - 1; i >= 0; i-- {
			for _, e := range a.formats[i].Extensions {
				if e == ext {
					return a.formats[i], true
				}
			}
		}
	}
	for _, f := range a.formats {
		if f.Sniff(data) {
			return f, true
		}
	}
	return Format{}, false
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, core.NewExtractionError(core.ErrFetchError, core.SourceTypeFile, path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return nil, core.NewExtractionError(core.ErrFetchError, core.SourceTypeFile, path, err)
	}
	if len(data) > MaxFileSize {
		return nil, core.NewExtractionError(core.ErrFetchError, core.SourceTypeFile,
			fmt.Sprintf("%s: file exceeds %d bytes", path, MaxFileSize), nil)
	}
	return data, nil
}
