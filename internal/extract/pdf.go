// Package extract reduces PDF bytes to page-ordered plain text.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"policyqa/internal/domain"
)

// PDFExtractor extracts plain text from in-memory PDF content.
type PDFExtractor struct{}

// NewPDFExtractor creates a PDF text extractor.
func NewPDFExtractor() *PDFExtractor { return &PDFExtractor{} }

// Extract returns the concatenated text of all pages in page order.
// Encrypted, corrupted, or textless documents yield an ExtractionError.
// The pdf library panics on some malformed inputs, so parsing failures of
// either kind surface as ExtractionError.
func (e *PDFExtractor) Extract(content []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = &domain.ExtractionError{Err: fmt.Errorf("malformed pdf: %v", r)}
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", &domain.ExtractionError{Err: fmt.Errorf("open pdf: %w", err)}
	}
	var buf bytes.Buffer
	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", &domain.ExtractionError{Err: fmt.Errorf("page %d: %w", i, err)}
		}
		buf.WriteString(text)
		if i < numPages {
			buf.WriteByte('\n')
		}
	}
	if strings.TrimSpace(buf.String()) == "" {
		return "", &domain.ExtractionError{Err: fmt.Errorf("no extractable text")}
	}
	return buf.String(), nil
}
