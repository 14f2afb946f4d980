package product

import (
	"github.com/shopspring/decimal"
	"github.com/wichananm65/embroidery-shop-backend/internal/document"
)

// File is a downloadable design file kept in the storage bucket.
type File struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
}

// Product is one embroidery design. Files and BundlePath point into private
// storage and are stripped from public responses.
type Product struct {
	ID               int                 `json:"productId"`
	Title            string              `json:"title"`
	Description      string              `json:"description"`
	Price            decimal.Decimal     `json:"price"`
	PreviousPrice    *decimal.Decimal    `json:"previousPrice,omitempty"`
	CategoryID       *int                `json:"categoryId,omitempty"`
	CategoryLabel    string              `json:"categoryLabel,omitempty"`
	Size             string              `json:"size"`
	StitchCount      int                 `json:"stitchCount"`
	ColorChangeCount int                 `json:"colorChangeCount"`
	ColorsUsed       int                 `json:"colorsUsed"`
	Images           []string            `json:"images"`
	ColorSheet       document.ColorSheet `json:"colorSheet"`
	Promo            string              `json:"promo,omitempty"`
	BundlePath       *string             `json:"bundlePath,omitempty"`
	Files            []File              `json:"files,omitempty"`
	CreatedAt        string              `json:"createdAt,omitempty"`
	UpdatedAt        string              `json:"updatedAt,omitempty"`
}

// Document is the render snapshot of the product. Site-wide logo and promo
// are merged in by the caller.
func (p Product) Document() document.ProductDocument {
	images := make([]string, len(p.Images))
	copy(images, p.Images)
	return document.ProductDocument{
		Title:  p.Title,
		Images: images,
		Specs: document.Specs{
			Size:             p.Size,
			StitchCount:      p.StitchCount,
			ColorChangeCount: p.ColorChangeCount,
			ColorsUsed:       p.ColorsUsed,
		},
		ColorSheet: p.ColorSheet,
		Promo:      p.Promo,
	}
}

// PublicView hides storage paths from catalog responses.
func PublicView(p Product) Product {
	p.Files = nil
	p.BundlePath = nil
	return p
}
