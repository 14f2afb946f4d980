package document

import "unicode/utf8"

// flow pours words into N equal-width columns. When a column is full the
// cursor moves to the next column on the same page, and after the last
// column to column 1 of a new page. N=1 is the single-column case.
type flow struct {
	l    *layout
	cols int
	colW float64
	col  int

	top    float64 // top of the column band on the current page
	lowest float64 // deepest y reached by earlier columns on this page
	y      float64 // top of the current line

	x      float64 // pen offset from the column's left edge
	indent float64
	dirty  bool // the current line holds at least one word
	space  bool // a space is owed before the next word
}

func newFlow(l *layout, cols int) *flow {
	if cols < 1 {
		cols = 1
	}
	return &flow{
		l:      l,
		cols:   cols,
		colW:   (contentWidth - ColumnGap*float64(cols-1)) / float64(cols),
		top:    l.y,
		lowest: l.y,
		y:      l.y,
	}
}

func (f *flow) colLeft() float64 {
	return contentLeft + float64(f.col)*(f.colW+ColumnGap)
}

// lineBreak always advances one line, even when the current line is empty.
func (f *flow) lineBreak() {
	f.y += LineHeight
	f.x = f.indent
	f.dirty = false
	f.space = false
	if f.y+LineHeight > contentBottom {
		f.nextColumn()
	}
}

// blockBreak ends the current line if it has content.
func (f *flow) blockBreak() {
	if f.dirty {
		f.lineBreak()
	}
	f.x = f.indent
	f.space = false
}

func (f *flow) setIndent(indent float64) {
	f.indent = indent
	if !f.dirty {
		f.x = indent
	}
}

func (f *flow) nextColumn() {
	if f.y > f.lowest {
		f.lowest = f.y
	}
	if f.col < f.cols-1 {
		f.col++
	} else {
		f.l.newPage()
		f.col = 0
		f.top = f.l.y
		f.lowest = f.top
	}
	f.y = f.top
	f.x = f.indent
	f.dirty = false
	f.space = false
}

// fitLine makes sure a full line fits below y in the current column.
func (f *flow) fitLine() {
	if f.y+LineHeight > contentBottom && f.y > f.top {
		f.nextColumn()
	}
}

// word places one unbreakable word, wrapping before it when it does not fit.
func (f *flow) word(w string, st Style, href string) {
	if w == "" {
		return
	}
	ww := f.l.measure.TextWidth(w, st)
	sp := 0.0
	if f.dirty && f.space {
		sp = f.l.measure.TextWidth(" ", st)
	}
	if f.dirty && f.x+sp+ww > f.colW {
		f.lineBreak()
		sp = 0
	}
	avail := f.colW - f.indent
	if !f.dirty && ww > avail && utf8.RuneCountInString(w) > 1 {
		head, rest := splitToWidth(f.l.measure, w, st, avail)
		f.word(head, st, href)
		f.lineBreak()
		f.word(rest, st, href)
		return
	}

	f.fitLine()
	x := f.colLeft() + f.x + sp
	base := f.y + baselineOffset
	f.l.text(x, base, w, st)
	if st.Underline {
		f.l.add(Line{X1: x, Y1: base + underlineDrop, X2: x + ww, Y2: base + underlineDrop, Width: 0.2, Color: st.Color})
	}
	if href != "" {
		f.l.add(Link{X: x, Y: f.y, W: ww, H: LineHeight, URL: href})
	}
	f.x += sp + ww
	f.dirty = true
	f.space = false
}

// marker writes a list marker in the gutter left of the current indent.
func (f *flow) marker(m string, st Style) {
	f.blockBreak()
	f.fitLine()
	mw := f.l.measure.TextWidth(m, st)
	gap := f.l.measure.TextWidth(" ", st)
	x := f.indent - mw - gap
	if x < 0 {
		x = 0
	}
	f.l.text(f.colLeft()+x, f.y+baselineOffset, m, st)
	if end := x + mw + gap; end > f.x {
		f.x = end
	}
	f.dirty = true
	f.space = false
}

// end closes the flow and moves the layout cursor below the deepest column.
func (f *flow) end() {
	bottom := f.y
	if f.dirty {
		bottom += LineHeight
	}
	if f.lowest > bottom {
		bottom = f.lowest
	}
	f.l.y = bottom
}
