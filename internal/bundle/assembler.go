// Package bundle packs a purchased design's instructions PDF and its
// design files into one ZIP download.
package bundle

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/wichananm65/embroidery-shop-backend/internal/document"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// SignedFile is a time-limited download link and the name the file should
// carry inside the archive.
type SignedFile struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type Renderer interface {
	Render(ctx context.Context, doc document.ProductDocument, settings document.Settings) (*document.Output, error)
}

// Archive is a finished bundle held in memory.
type Archive struct {
	Filename string
	Data     []byte
	Skipped  []string
}

// Assembler renders the document, downloads the files and writes the ZIP.
// Downloads run concurrently but entries are always written in input order.
type Assembler struct {
	renderer    Renderer
	fetcher     Fetcher
	concurrency int
	log         *zap.Logger
}

func NewAssembler(renderer Renderer, fetcher Fetcher, concurrency int, log *zap.Logger) *Assembler {
	if concurrency <= 0 {
		concurrency = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Assembler{renderer: renderer, fetcher: fetcher, concurrency: concurrency, log: log}
}

// Slug lowercases the title and collapses every run of other characters to
// a single underscore. An empty title becomes "design".
func Slug(title string) string {
	s := nonAlnum.ReplaceAllString(strings.ToLower(title), "_")
	if s == "" {
		return "design"
	}
	return s
}

// Assemble builds the archive. A file that fails to download is logged and
// left out; the document is always present.
func (a *Assembler) Assemble(ctx context.Context, doc document.ProductDocument, files []SignedFile, settings document.Settings) (Archive, error) {
	base := Slug(doc.Title)

	out, err := a.renderer.Render(ctx, doc, settings)
	if err != nil {
		return Archive{}, fmt.Errorf("render document: %w", err)
	}
	var pdf bytes.Buffer
	if err := document.EncodePDF(out, &pdf); err != nil {
		return Archive{}, fmt.Errorf("encode document: %w", err)
	}

	bodies := a.fetchAll(ctx, files)
	if err := ctx.Err(); err != nil {
		return Archive{}, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	names := newNameSet()
	if err := writeEntry(zw, names.claim(base+".pdf"), pdf.Bytes()); err != nil {
		return Archive{}, err
	}

	archive := Archive{Filename: base + ".zip"}
	for i, f := range files {
		if bodies[i] == nil {
			archive.Skipped = append(archive.Skipped, f.Filename)
			continue
		}
		if err := writeEntry(zw, names.claim(entryName(f.Filename)), bodies[i]); err != nil {
			return Archive{}, err
		}
	}
	if err := zw.Close(); err != nil {
		return Archive{}, fmt.Errorf("close archive: %w", err)
	}
	archive.Data = buf.Bytes()
	return archive, nil
}

// fetchAll returns bodies index-aligned with files; failed downloads are nil.
func (a *Assembler) fetchAll(ctx context.Context, files []SignedFile) [][]byte {
	bodies := make([][]byte, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, f := range files {
		g.Go(func() error {
			data, err := a.fetcher.Fetch(gctx, f.URL)
			if err != nil {
				a.log.Warn("skipping design file", zap.String("filename", f.Filename), zap.Error(err))
				return nil
			}
			bodies[i] = data
			return nil
		})
	}
	_ = g.Wait()
	return bodies
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// entryName keeps only the last path element so entries cannot escape the
// archive root when extracted.
func entryName(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == ".." || name == "" {
		return "file"
	}
	return name
}

type nameSet map[string]bool

func newNameSet() nameSet { return nameSet{} }

// claim returns name, or name with a numeric suffix before the extension
// when it is already taken.
func (s nameSet) claim(name string) string {
	if !s[name] {
		s[name] = true
		return name
	}
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 2; ; n++ {
		candidate := stem + "_" + strconv.Itoa(n) + ext
		if !s[candidate] {
			s[candidate] = true
			return candidate
		}
	}
}
