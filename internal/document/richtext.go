package document

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const bullet = "•"

// Long color sheets switch to two columns past these limits.
const (
	legacyListColumnThreshold = 12
	richTextCharThreshold     = 400
	richTextBlockThreshold    = 10
)

// parseMarkup parses a markup fragment. The html tokenizer is lenient, so
// malformed input still yields a tree of text and element nodes.
func parseMarkup(markup string) ([]*html.Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	return html.ParseFragment(strings.NewReader(markup), ctx)
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Li, atom.Ul, atom.Ol, atom.Blockquote,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return true
	}
	return false
}

func countBlocks(nodes []*html.Node) int {
	n := 0
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && isBlock(node.DataAtom) {
			n++
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, node := range nodes {
		walk(node)
	}
	return n
}

// richTextColumns picks the column count for a rich-text color sheet.
func richTextColumns(markup string) int {
	if utf8.RuneCountInString(markup) > richTextCharThreshold {
		return 2
	}
	nodes, err := parseMarkup(markup)
	if err == nil && countBlocks(nodes) > richTextBlockThreshold {
		return 2
	}
	return 1
}

func legacyListColumns(items []string) int {
	if len(items) > legacyListColumnThreshold {
		return 2
	}
	return 1
}

type inline struct {
	bold, italic, underline bool
	href                    string
}

type listLevel struct {
	ordered bool
	n       int
}

type richTextWriter struct {
	f     *flow
	base  Style
	lists []listLevel
}

// writeRichText flows markup into f. Unknown elements are walked for their
// text, so bad markup degrades to plain text.
func writeRichText(f *flow, markup string, base Style) {
	w := &richTextWriter{f: f, base: base}
	nodes, err := parseMarkup(markup)
	if err != nil {
		w.text(markup, inline{})
		f.blockBreak()
		return
	}
	for _, n := range nodes {
		w.walk(n, inline{})
	}
	f.blockBreak()
}

func (w *richTextWriter) walk(n *html.Node, in inline) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data, in)
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Head:
			return
		case atom.B, atom.Strong:
			in.bold = true
		case atom.I, atom.Em:
			in.italic = true
		case atom.U, atom.Ins:
			in.underline = true
		case atom.A:
			in.href = attr(n, "href")
		case atom.Br:
			w.f.lineBreak()
			return
		case atom.Ul, atom.Ol:
			w.f.blockBreak()
			w.lists = append(w.lists, listLevel{ordered: n.DataAtom == atom.Ol})
			w.resetIndent()
			w.children(n, in)
			w.lists = w.lists[:len(w.lists)-1]
			w.f.blockBreak()
			w.resetIndent()
			return
		case atom.Li:
			w.listItem(n, in)
			return
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			in.bold = true
			w.block(n, in)
			return
		case atom.P, atom.Div, atom.Blockquote:
			w.block(n, in)
			return
		}
	}
	w.children(n, in)
}

func (w *richTextWriter) children(n *html.Node, in inline) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c, in)
	}
}

func (w *richTextWriter) block(n *html.Node, in inline) {
	w.f.blockBreak()
	w.resetIndent()
	w.children(n, in)
	w.f.blockBreak()
	w.resetIndent()
}

func (w *richTextWriter) listItem(n *html.Node, in inline) {
	if len(w.lists) == 0 {
		// stray <li>: treat as a paragraph
		w.block(n, in)
		return
	}
	lvl := &w.lists[len(w.lists)-1]
	lvl.n++
	m := bullet
	if lvl.ordered {
		m = strconv.Itoa(lvl.n) + "."
	}
	w.resetIndent()
	w.f.marker(m, w.style(in))
	w.children(n, in)
	w.f.blockBreak()
}

func (w *richTextWriter) resetIndent() {
	w.f.setIndent(float64(len(w.lists)) * ListIndentStep)
}

func (w *richTextWriter) text(s string, in inline) {
	if s == "" {
		return
	}
	st := w.style(in)
	first, _ := utf8.DecodeRuneInString(s)
	last, _ := utf8.DecodeLastRuneInString(s)
	if unicode.IsSpace(first) {
		w.f.space = true
	}
	for i, word := range strings.Fields(s) {
		if i > 0 {
			w.f.space = true
		}
		w.f.word(word, st, in.href)
	}
	if unicode.IsSpace(last) {
		w.f.space = true
	}
}

func (w *richTextWriter) style(in inline) Style {
	st := w.base
	st.Bold = st.Bold || in.bold
	st.Italic = st.Italic || in.italic
	st.Underline = st.Underline || in.underline
	if in.href != "" {
		st.Color = linkColor
		st.Underline = true
	}
	return st
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

// writeLegacyList flows a numbered plain list.
func writeLegacyList(f *flow, items []string, base Style) {
	f.setIndent(ListIndentStep)
	for i, item := range items {
		f.marker(strconv.Itoa(i+1)+".", base)
		for j, word := range strings.Fields(item) {
			if j > 0 {
				f.space = true
			}
			f.word(word, base, "")
		}
		f.blockBreak()
	}
	f.setIndent(0)
}
