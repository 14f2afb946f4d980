package document

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	maxPreviewImages = 3
	imageRowHeight   = 60.0
	imageGap         = 6.0

	logoBoxWidth   = 40.0
	logoBoxHeight  = 18.0
	logoGap        = 6.0
	titleLineH     = 8.0
	headingLineH   = 7.0
	sectionSpacing = 5.0
)

var materialsNeeded = []string{
	"Embroidery machine that reads one of the included formats",
	"Stabilizer suited to your fabric",
	"Embroidery thread in the colors listed below",
	"Fabric or garment to stitch on",
	"Machine needles and bobbin thread",
}

// Renderer turns a ProductDocument into paginated draw operations.
type Renderer struct {
	measure Measurer
	images  ImageLoader
	log     *zap.Logger
	numbers *message.Printer
}

func NewRenderer(m Measurer, images ImageLoader, log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{
		measure: m,
		images:  images,
		log:     log,
		numbers: message.NewPrinter(language.English),
	}
}

// Render lays out doc. Images are fetched one at a time in input order; an
// image that cannot be loaded is left out of the row.
func (r *Renderer) Render(ctx context.Context, doc ProductDocument, settings Settings) (*Output, error) {
	l := newLayout(doc.Title, settings.FooterText, r.measure)

	logo := doc.Logo
	if logo == "" {
		logo = settings.Logo
	}
	r.header(ctx, l, doc.Title, logo)

	promo := doc.Promo
	if promo == "" {
		promo = settings.PromoText
	}
	if strings.TrimSpace(promo) != "" {
		l.ensure(2 * LineHeight)
		f := newFlow(l, 1)
		writeRichText(f, promo, bodyStyle)
		f.end()
	}

	l.ensure(sectionSpacing)
	l.y += 2
	l.rule(l.y)
	l.y += sectionSpacing

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.imageRow(ctx, l, doc.Images)
	r.details(l, doc.Specs)
	r.colorSheet(l, doc.ColorSheet)

	return l.finish(), nil
}

func (r *Renderer) header(ctx context.Context, l *layout, title, logo string) {
	titleW := contentWidth
	if logo != "" {
		titleW -= logoBoxWidth + logoGap
	}
	lines := wrapText(r.measure, title, titleStyle, titleW)

	logoH := 0.0
	if logo != "" {
		logoH = r.logo(ctx, l, logo)
	}
	first, top := l.page, l.y
	for _, line := range lines {
		l.ensure(titleLineH)
		l.text(contentLeft, l.y+titleLineH*0.75, line, titleStyle)
		l.y += titleLineH
	}
	if l.page == first && l.y < top+logoH {
		l.y = top + logoH
	}
	l.y += 3
}

// logo draws the logo in the top-right box and returns the height used.
func (r *Renderer) logo(ctx context.Context, l *layout, logo string) float64 {
	boxX := contentLeft + contentWidth - logoBoxWidth
	if isURL(logo) && r.images != nil {
		img, err := r.images.LoadImage(ctx, logo)
		if err == nil {
			x, y, w, h := fitBox(img.Width, img.Height, boxX, l.y, logoBoxWidth, logoBoxHeight)
			l.add(Image{X: x, Y: y, W: w, H: h, Name: l.nextImageName(), Format: img.Format, Data: img.Data})
			return logoBoxHeight
		}
		r.log.Debug("logo image unavailable, using text", zap.String("logo", logo), zap.Error(err))
	}
	lines := wrapText(r.measure, logo, logoStyle, logoBoxWidth)
	for i, line := range lines {
		w := r.measure.TextWidth(line, logoStyle)
		l.text(boxX+logoBoxWidth-w, l.y+float64(i)*LineHeight+baselineOffset, line, logoStyle)
	}
	return float64(len(lines)) * LineHeight
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func (r *Renderer) imageRow(ctx context.Context, l *layout, urls []string) {
	if len(urls) > maxPreviewImages {
		urls = urls[:maxPreviewImages]
	}
	var loaded []LoadedImage
	for _, u := range urls {
		if r.images == nil {
			break
		}
		img, err := r.images.LoadImage(ctx, u)
		if err != nil {
			r.log.Debug("skipping preview image", zap.String("url", u), zap.Error(err))
			continue
		}
		loaded = append(loaded, img)
	}
	if len(loaded) == 0 {
		return
	}

	l.ensure(imageRowHeight)
	n := float64(len(loaded))
	boxW := (contentWidth - imageGap*(n-1)) / n
	for i, img := range loaded {
		boxX := contentLeft + float64(i)*(boxW+imageGap)
		x, y, w, h := fitBox(img.Width, img.Height, boxX, l.y, boxW, imageRowHeight)
		l.add(Image{X: x, Y: y, W: w, H: h, Name: l.nextImageName(), Format: img.Format, Data: img.Data})
	}
	l.y += imageRowHeight + sectionSpacing
}

func (r *Renderer) heading(l *layout, x, y float64, s string) {
	l.text(x, y+headingLineH*0.7, s, headingStyle)
}

// details places "Additional Details" and "Materials Needed" side by side.
func (r *Renderer) details(l *layout, s Specs) {
	colW := (contentWidth - ColumnGap) / 2
	left := []string{
		"Size: " + orDash(s.Size),
		"Stitch count: " + r.numbers.Sprintf("%d", s.StitchCount),
		"Color changes: " + strconv.Itoa(s.ColorChangeCount),
		"Colors used: " + strconv.Itoa(s.ColorsUsed),
	}
	var leftLines []string
	for _, line := range left {
		leftLines = append(leftLines, wrapText(r.measure, line, bodyStyle, colW)...)
	}

	indent := ListIndentStep
	type item struct {
		lines []string
	}
	var right []item
	rightCount := 0
	for _, m := range materialsNeeded {
		it := item{lines: wrapText(r.measure, m, bodyStyle, colW-indent)}
		right = append(right, it)
		rightCount += len(it.lines)
	}

	rows := len(leftLines)
	if rightCount > rows {
		rows = rightCount
	}
	l.ensure(headingLineH + float64(rows)*LineHeight)

	top := l.y
	rightX := contentLeft + colW + ColumnGap
	r.heading(l, contentLeft, top, "Additional Details")
	r.heading(l, rightX, top, "Materials Needed")
	y := top + headingLineH
	for i, line := range leftLines {
		l.text(contentLeft, y+float64(i)*LineHeight+baselineOffset, line, bodyStyle)
	}
	row := 0
	for _, it := range right {
		l.text(rightX, y+float64(row)*LineHeight+baselineOffset, bullet, bodyStyle)
		for _, line := range it.lines {
			l.text(rightX+indent, y+float64(row)*LineHeight+baselineOffset, line, bodyStyle)
			row++
		}
	}
	l.y = y + float64(rows)*LineHeight + sectionSpacing
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func (r *Renderer) colorSheet(l *layout, cs ColorSheet) {
	if cs.Kind() == ColorSheetNone {
		return
	}
	l.ensure(headingLineH + 2*LineHeight)
	r.heading(l, contentLeft, l.y, "Color Change Sheet")
	l.y += headingLineH

	f := newFlow(l, ColorSheetColumns(cs))
	switch cs.Kind() {
	case ColorSheetLegacyList:
		writeLegacyList(f, cs.Items(), bodyStyle)
	case ColorSheetRichText:
		writeRichText(f, cs.Markup(), bodyStyle)
	}
	f.end()
}

// ColorSheetColumns is the column count the color sheet is flowed into.
func ColorSheetColumns(cs ColorSheet) int {
	switch cs.Kind() {
	case ColorSheetLegacyList:
		return legacyListColumns(cs.Items())
	case ColorSheetRichText:
		return richTextColumns(cs.Markup())
	default:
		return 1
	}
}
