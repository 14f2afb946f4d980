package document

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Page geometry in millimetres (A4 portrait).
const (
	PageWidth  = 210.0
	PageHeight = 297.0
	Margin     = 15.0

	footerHeight = 12.0
	contentLeft  = Margin
	contentTop   = Margin
	contentWidth = PageWidth - 2*Margin
	// contentBottom is the top of the footer band.
	contentBottom = PageHeight - Margin - footerHeight

	LineHeight     = 5.0
	ColumnGap      = 8.0
	ListIndentStep = 6.0
	baselineOffset = 3.8
	underlineDrop  = 0.8
)

var (
	textColor  = Color{R: 33, G: 33, B: 33}
	mutedColor = Color{R: 130, G: 130, B: 130}
	linkColor  = Color{R: 25, G: 90, B: 200}
	ruleColor  = Color{R: 200, G: 200, B: 200}

	bodyStyle    = Style{Size: 10, Color: textColor}
	titleStyle   = Style{Bold: true, Size: 18, Color: textColor}
	headingStyle = Style{Bold: true, Size: 12, Color: textColor}
	footerStyle  = Style{Size: 8, Color: mutedColor}
	logoStyle    = Style{Bold: true, Italic: true, Size: 12, Color: mutedColor}
)

// layout owns the page list and the vertical cursor of the current page.
type layout struct {
	out     *Output
	page    *Page
	y       float64
	footer  string
	measure Measurer
	images  int
}

func newLayout(title, footer string, m Measurer) *layout {
	l := &layout{
		out:     &Output{Title: title, Width: PageWidth, Height: PageHeight},
		footer:  footer,
		measure: m,
	}
	l.newPage()
	return l
}

// newPage flushes the footer onto the outgoing page and starts a fresh one.
func (l *layout) newPage() {
	if l.page != nil {
		l.drawFooter()
	}
	l.page = &Page{Number: len(l.out.Pages) + 1}
	l.out.Pages = append(l.out.Pages, l.page)
	l.y = contentTop
}

func (l *layout) finish() *Output {
	l.drawFooter()
	return l.out
}

// ensure starts a new page when h millimetres do not fit below the cursor.
// A block taller than a whole page is placed at the top of a fresh page and
// allowed to run into the footer band.
func (l *layout) ensure(h float64) {
	if l.y+h > contentBottom && l.y > contentTop {
		l.newPage()
	}
}

func (l *layout) add(op Op) {
	l.page.Ops = append(l.page.Ops, op)
}

func (l *layout) text(x, y float64, s string, st Style) {
	l.add(Text{X: x, Y: y, Text: s, Style: st})
}

func (l *layout) rule(y float64) {
	l.add(Line{X1: contentLeft, Y1: y, X2: contentLeft + contentWidth, Y2: y, Width: 0.3, Color: ruleColor})
}

func (l *layout) drawFooter() {
	top := contentBottom + 2
	l.rule(top)
	if l.footer == "" {
		return
	}
	w := l.measure.TextWidth(l.footer, footerStyle)
	l.text((PageWidth-w)/2, top+6, l.footer, footerStyle)
}

func (l *layout) nextImageName() string {
	l.images++
	return "img" + strconv.Itoa(l.images)
}

// wrapText greedily breaks s into lines no wider than width. Words wider
// than a full line are split by rune.
func wrapText(m Measurer, s string, st Style, width float64) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}
	space := m.TextWidth(" ", st)
	var (
		lines []string
		cur   string
		curW  float64
	)
	for _, w := range words {
		ww := m.TextWidth(w, st)
		if cur != "" && curW+space+ww <= width {
			cur += " " + w
			curW += space + ww
			continue
		}
		if cur != "" {
			lines = append(lines, cur)
			cur, curW = "", 0
		}
		for ww > width && utf8.RuneCountInString(w) > 1 {
			head, rest := splitToWidth(m, w, st, width)
			lines = append(lines, head)
			w = rest
			ww = m.TextWidth(w, st)
		}
		cur, curW = w, ww
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

// splitToWidth returns the longest prefix of w (at least one rune) that fits
// in width, and the remainder.
func splitToWidth(m Measurer, w string, st Style, width float64) (string, string) {
	runes := []rune(w)
	n := 1
	for n < len(runes) && m.TextWidth(string(runes[:n+1]), st) <= width {
		n++
	}
	return string(runes[:n]), string(runes[n:])
}
