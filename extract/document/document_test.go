package document

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/lectern/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF assembles a single-page PDF with a correct cross-reference table.
// An empty content stream yields a structurally valid page with no glyphs.
func buildPDF(content string) []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestExtract_MissingHeaderIsCorrupt(t *testing.T) {
	called := false
	spy := PDF()
	inner := spy.Extract
	spy.Extract = func(ctx context.Context, data []byte) (string, error) {
		called = true
		return inner(ctx, data)
	}
	a := New(WithFormat(spy))

	_, err := a.ExtractBytes(context.Background(), "notes.pdf", []byte("<html>definitely not a pdf</html>"))
	assert.ErrorIs(t, err, core.ErrCorruptFile)
	assert.False(t, called, "parser must not run on bytes without a PDF header")
}

func TestExtract_PDFWithoutGlyphs(t *testing.T) {
	a := New()
	_, err := a.ExtractBytes(context.Background(), "scan.pdf", buildPDF(""))
	assert.ErrorIs(t, err, core.ErrNoExtractableText)
}

func TestExtract_PDFWithText(t *testing.T) {
	a := New()
	path := writeFile(t, "lecture.pdf", buildPDF("BT /F1 12 Tf 72 720 Td (Photosynthesis) Tj ET"))

	text, err := a.Extract(context.Background(), core.Source{Type: core.SourceTypeFile, Locator: path})
	require.NoError(t, err)
	assert.Contains(t, text, "Photosynthesis")
}

func TestExtract_TruncatedPDFIsCorrupt(t *testing.T) {
	a := New()
	data := buildPDF("")
	_, err := a.ExtractBytes(context.Background(), "broken.pdf", data[:len(data)/2])
	assert.ErrorIs(t, err, core.ErrCorruptFile)
}

func TestExtract_HeaderOnlyPDFIsCorrupt(t *testing.T) {
	a := New()
	_, err := a.ExtractBytes(context.Background(), "stub.pdf", []byte("%PDF-1.7\n%garbage"))
	assert.ErrorIs(t, err, core.ErrCorruptFile)
}

func TestExtract_PlainText(t *testing.T) {
	a := New()
	path := writeFile(t, "notes.md", []byte("\xEF\xBB\xBF# Notes\r\n\r\nOsmosis moves water.\r\n"))

	text, err := a.Extract(context.Background(), core.Source{Type: core.SourceTypeFile, Locator: path})
	require.NoError(t, err)
	assert.Equal(t, "# Notes\n\nOsmosis moves water.", text)
}

func TestExtract_PlainTextRejectsBinary(t *testing.T) {
	a := New()
	_, err := a.ExtractBytes(context.Background(), "data.txt", []byte{'a', 0x00, 'b'})
	assert.ErrorIs(t, err, core.ErrCorruptFile)

	_, err = a.ExtractBytes(context.Background(), "latin1.txt", []byte{0xff, 0xfe, 0xfd})
	assert.ErrorIs(t, err, core.ErrCorruptFile)
}

func TestExtract_BlankPlainText(t *testing.T) {
	a := New()
	_, err := a.ExtractBytes(context.Background(), "blank.txt", []byte("  \n\t "))
	assert.ErrorIs(t, err, core.ErrNoExtractableText)
}

func TestExtract_SniffsUnknownExtension(t *testing.T) {
	a := New()

	_, err := a.ExtractBytes(context.Background(), "upload.bin", buildPDF(""))
	assert.ErrorIs(t, err, core.ErrNoExtractableText, "sniffed as PDF and parsed")

	text, err := a.ExtractBytes(context.Background(), "upload", []byte("plain words"))
	require.NoError(t, err)
	assert.Equal(t, "plain words", text)

	_, err = a.ExtractBytes(context.Background(), "upload.bin", []byte{0x00, 0x01, 0x02})
	assert.ErrorIs(t, err, core.ErrCorruptFile)
}

func TestExtract_EmptyAndMissingFiles(t *testing.T) {
	a := New()

	_, err := a.ExtractBytes(context.Background(), "empty.pdf", nil)
	assert.ErrorIs(t, err, core.ErrCorruptFile)

	_, err = a.Extract(context.Background(), core.Source{Type: core.SourceTypeFile, Locator: filepath.Join(t.TempDir(), "missing.pdf")})
	assert.ErrorIs(t, err, core.ErrFetchError)
}

func TestClassifyPDFError(t *testing.T) {
	assert.ErrorIs(t, classifyPDFError(fmt.Errorf("encrypted PDF: invalid password")), core.ErrProtectedContent)
	assert.ErrorIs(t, classifyPDFError(fmt.Errorf("malformed PDF: missing xref")), core.ErrCorruptFile)
}
