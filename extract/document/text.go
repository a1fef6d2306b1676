package document

import (
	"bytes"
	"context"
	"strings"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// PlainText returns the plain text format. Its header check accepts valid
// UTF-8 without NUL bytes, which rules out binary files.
func PlainText() Format {
	return Format{
		Name:       "plain text",
		Extensions: []string{".txt", ".md", ".markdown", ".text"},
		Sniff: func(data []byte) bool {
			return utf8.Valid(data) && bytes.IndexByte(data, 0) < 0
		},
		Extract: func(ctx context.Context, data []byte) (string, error) {
			text := string(bytes.TrimPrefix(data, utf8BOM))
			text = strings.ReplaceAll(text, "\r\n", "\n")
			return strings.TrimSpace(text), nil
		},
	}
}
