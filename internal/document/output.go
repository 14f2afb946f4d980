package document

// Output is a format-agnostic paginated layout. Coordinates are millimetres
// from the top-left corner of the page; Text.Y is the baseline.
type Output struct {
	Title  string
	Width  float64
	Height float64
	Pages  []*Page
}

type Page struct {
	Number int
	Ops    []Op
}

// Op is one positioned draw operation.
type Op interface {
	isOp()
}

type Color struct {
	R, G, B uint8
}

type Style struct {
	Bold      bool
	Italic    bool
	Underline bool
	Size      float64
	Color     Color
}

type Text struct {
	X, Y  float64
	Text  string
	Style Style
}

type Line struct {
	X1, Y1, X2, Y2 float64
	Width          float64
	Color          Color
}

type Image struct {
	X, Y, W, H float64
	Name       string
	Format     string
	Data       []byte
}

type Link struct {
	X, Y, W, H float64
	URL        string
}

func (Text) isOp()  {}
func (Line) isOp()  {}
func (Image) isOp() {}
func (Link) isOp()  {}

// Texts returns the text runs of the page in drawing order.
func (p *Page) Texts() []Text {
	out := make([]Text, 0, len(p.Ops))
	for _, op := range p.Ops {
		if t, ok := op.(Text); ok {
			out = append(out, t)
		}
	}
	return out
}

func (p *Page) Images() []Image {
	var out []Image
	for _, op := range p.Ops {
		if img, ok := op.(Image); ok {
			out = append(out, img)
		}
	}
	return out
}
