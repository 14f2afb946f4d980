package document

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

// EncodePDF writes out as a PDF using the core Helvetica family, the same
// metrics PDFMeasurer lays text out with.
func EncodePDF(out *Output, w io.Writer) error {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: out.Width, Ht: out.Height},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetTitle(out.Title, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, page := range out.Pages {
		pdf.AddPage()
		for _, op := range page.Ops {
			switch o := op.(type) {
			case Text:
				pdf.SetFont(fontFamily, fontStyle(o.Style), o.Style.Size)
				pdf.SetTextColor(int(o.Style.Color.R), int(o.Style.Color.G), int(o.Style.Color.B))
				pdf.Text(o.X, o.Y, tr(o.Text))
			case Line:
				pdf.SetDrawColor(int(o.Color.R), int(o.Color.G), int(o.Color.B))
				pdf.SetLineWidth(o.Width)
				pdf.Line(o.X1, o.Y1, o.X2, o.Y2)
			case Image:
				opts := fpdf.ImageOptions{ImageType: imageType(o.Format)}
				pdf.RegisterImageOptionsReader(o.Name, opts, bytes.NewReader(o.Data))
				pdf.ImageOptions(o.Name, o.X, o.Y, o.W, o.H, false, opts, 0, "")
			case Link:
				pdf.LinkString(o.X, o.Y, o.W, o.H, o.URL)
			}
			if err := pdf.Error(); err != nil {
				return fmt.Errorf("encode page %d: %w", page.Number, err)
			}
		}
	}
	return pdf.Output(w)
}

func imageType(format string) string {
	if format == "jpeg" {
		return "JPG"
	}
	return "PNG"
}
