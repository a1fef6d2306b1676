package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/poiesic/lectern/core"
)

var pdfMagic = []byte("%PDF-")

// PDF returns the PDF format. Pages are extracted in order and joined by blank lines.
func PDF() Format {
	return Format{
		Name:       "PDF",
		Extensions: []string{".pdf"},
		Sniff: func(data []byte) bool {
			return bytes.HasPrefix(data, pdfMagic)
		},
		Extract: extractPDF,
	}
}

func extractPDF(ctx context.Context, data []byte) (text string, err error) {
	// The parser panics on some malformed object graphs
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = core.NewExtractionError(core.ErrCorruptFile, core.SourceTypeFile, "malformed PDF structure", fmt.Errorf("%v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", classifyPDFError(err)
	}

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", classifyPDFError(err)
		}
		if pageText = strings.TrimSpace(pageText); pageText != "" {
			pages = append(pages, pageText)
		}
	}

	if len(pages) == 0 {
		return "", core.NewExtractionError(core.ErrNoExtractableText, core.SourceTypeFile,
			"PDF contains no extractable text (might be scanned/image-based)", nil)
	}
	return strings.Join(pages, "\n\n"), nil
}

func classifyPDFError(err error) error {
	msg := strings.ToLower(err.Error())
	if errors.Is(err, pdf.ErrInvalidPassword) || strings.Contains(msg, "password") || strings.Contains(msg, "encrypt") {
		return core.NewExtractionError(core.ErrProtectedContent, core.SourceTypeFile, "PDF is password protected", err)
	}
	return core.NewExtractionError(core.ErrCorruptFile, core.SourceTypeFile, "PDF is corrupted or uses unsupported features", err)
}
