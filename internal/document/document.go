// Package document lays out a product's printable instructions as a list of
// fixed-size pages holding positioned draw operations, and encodes that
// layout to PDF.
package document

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// ProductDocument is the read-only snapshot rendered for one product.
type ProductDocument struct {
	Title      string     `json:"title"`
	Images     []string   `json:"images"`
	Specs      Specs      `json:"specs"`
	ColorSheet ColorSheet `json:"colorSheet"`
	Promo      string     `json:"promo,omitempty"`
	Logo       string     `json:"logo,omitempty"`
}

type Specs struct {
	Size             string `json:"size"`
	StitchCount      int    `json:"stitchCount"`
	ColorChangeCount int    `json:"colorChangeCount"`
	ColorsUsed       int    `json:"colorsUsed"`
}

// Settings are the site-wide values printed on every document. Logo is
// either an image URL or plain text.
type Settings struct {
	Logo       string `json:"logo"`
	PromoText  string `json:"promoText"`
	FooterText string `json:"footerText"`
}

type ColorSheetKind int

const (
	ColorSheetNone ColorSheetKind = iota
	ColorSheetLegacyList
	ColorSheetRichText
)

// ColorSheet is either a legacy list of color entries or rich-text markup.
type ColorSheet struct {
	kind   ColorSheetKind
	items  []string
	markup string
}

func LegacyList(items []string) ColorSheet {
	if len(items) == 0 {
		return ColorSheet{}
	}
	cp := make([]string, len(items))
	copy(cp, items)
	return ColorSheet{kind: ColorSheetLegacyList, items: cp}
}

func RichText(markup string) ColorSheet {
	if markup == "" {
		return ColorSheet{}
	}
	return ColorSheet{kind: ColorSheetRichText, markup: markup}
}

func (c ColorSheet) Kind() ColorSheetKind { return c.kind }
func (c ColorSheet) Items() []string      { return c.items }
func (c ColorSheet) Markup() string       { return c.markup }

// MarshalJSON writes the legacy form as an array and rich text as a string.
func (c ColorSheet) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case ColorSheetLegacyList:
		return json.Marshal(c.items)
	case ColorSheetRichText:
		return json.Marshal(c.markup)
	default:
		return []byte("null"), nil
	}
}

func (c *ColorSheet) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*c = ColorSheet{}
	case string:
		*c = RichText(v)
	case []any:
		items := make([]string, 0, len(v))
		for _, it := range v {
			s, ok := it.(string)
			if !ok {
				return fmt.Errorf("color sheet entry must be a string, got %T", it)
			}
			items = append(items, s)
		}
		*c = LegacyList(items)
	default:
		return fmt.Errorf("color sheet must be a string or an array, got %T", raw)
	}
	return nil
}

// Value stores the sheet in a jsonb column.
func (c ColorSheet) Value() (driver.Value, error) {
	b, err := c.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *ColorSheet) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c = ColorSheet{}
		return nil
	case []byte:
		return c.UnmarshalJSON(v)
	case string:
		return c.UnmarshalJSON([]byte(v))
	default:
		return errors.New("unsupported color sheet column type")
	}
}
