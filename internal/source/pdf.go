package source

import (
	"bytes"
	"fmt"
	"io"

	"github.com/iwvelando/true-cost/internal/order"
	"github.com/ledongthuc/pdf"
)

var pdfExtensions = []string{".pdf"}

// PDFSource reads order invoices from PDF documents.
type PDFSource struct{}

// NewPDFSource creates a PDF invoice source.
func NewPDFSource() *PDFSource {
	return &PDFSource{}
}

// Extensions lists the file extensions the source reads.
func (s *PDFSource) Extensions() []string {
	return pdfExtensions
}

// Supports reports whether path is a PDF document.
func (s *PDFSource) Supports(path string) bool {
	return hasExtension(path, pdfExtensions)
}

// Load extracts the text of the PDF at path and parses it as an invoice.
func (s *PDFSource) Load(path string) (order.Record, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return order.Record{}, fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	defer f.Close()

	text, err := plainText(r)
	if err != nil {
		return order.Record{}, fmt.Errorf("failed to extract text from %s: %w", path, err)
	}
	return ParseInvoiceText(text, baseName(path))
}

// Parse extracts the text of an in-memory PDF and parses it as an invoice.
func (s *PDFSource) Parse(name string, data []byte) (order.Record, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return order.Record{}, fmt.Errorf("failed to open PDF %s: %w", name, err)
	}

	text, err := plainText(r)
	if err != nil {
		return order.Record{}, fmt.Errorf("failed to extract text from %s: %w", name, err)
	}
	return ParseInvoiceText(text, baseName(name))
}

func plainText(r *pdf.Reader) (string, error) {
	reader, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return "", err
	}
	return buf.String(), nil
}
