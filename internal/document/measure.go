package document

import (
	"sync"

	"github.com/go-pdf/fpdf"
)

const fontFamily = "Helvetica"

// Measurer reports the rendered width of a string in millimetres.
type Measurer interface {
	TextWidth(s string, st Style) float64
}

// PDFMeasurer measures with the same core-font metrics EncodePDF draws with.
type PDFMeasurer struct {
	mu  sync.Mutex
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func NewPDFMeasurer() *PDFMeasurer {
	pdf := fpdf.New("P", "mm", "A4", "")
	return &PDFMeasurer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (m *PDFMeasurer) TextWidth(s string, st Style) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pdf.SetFont(fontFamily, fontStyle(st), st.Size)
	return m.pdf.GetStringWidth(m.tr(s))
}

// fontStyle maps to fpdf's style string. Underline is drawn as a Line op so
// it stays visible in any backend.
func fontStyle(st Style) string {
	s := ""
	if st.Bold {
		s += "B"
	}
	if st.Italic {
		s += "I"
	}
	return s
}
