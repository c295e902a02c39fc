package services

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFVerifier validates rendered PDFs with pdfcpu.
type PDFVerifier struct {
	conf *model.Configuration
}

// NewPDFVerifier returns a verifier using relaxed validation, which accepts
// the minor deviations common in generated documents.
func NewPDFVerifier() *PDFVerifier {
	api.DisableConfigDir()
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return &PDFVerifier{conf: cfg}
}

// Verify validates the PDF at path and returns its page count.
func (v *PDFVerifier) Verify(path string) (int, error) {
	if err := api.ValidateFile(path, v.conf); err != nil {
		return 0, fmt.Errorf("invalid PDF: %w", err)
	}
	pages, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	if pages == 0 {
		return 0, fmt.Errorf("rendered PDF has no pages")
	}
	return pages, nil
}
