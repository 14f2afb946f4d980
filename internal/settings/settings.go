package settings

import "github.com/wichananm65/embroidery-shop-backend/internal/document"

// PdfSettings are the site-wide values stamped on every generated document.
type PdfSettings struct {
	Logo       string `json:"logo"`
	PromoText  string `json:"promoText"`
	FooterText string `json:"footerText"`
	UpdatedAt  string `json:"updatedAt,omitempty"`
}

func (s PdfSettings) Document() document.Settings {
	return document.Settings{Logo: s.Logo, PromoText: s.PromoText, FooterText: s.FooterText}
}
