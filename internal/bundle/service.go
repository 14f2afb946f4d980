package bundle

import (
	"context"
	"errors"
	"fmt"

	"github.com/wichananm65/embroidery-shop-backend/internal/document"
	"github.com/wichananm65/embroidery-shop-backend/internal/product"
	"github.com/wichananm65/embroidery-shop-backend/internal/settings"
	"go.uber.org/zap"
)

var ErrNotPurchased = errors.New("design has not been purchased")

type ProductSource interface {
	GetByID(ctx context.Context, id int) (product.Product, error)
	DocumentData(ctx context.Context, id int) (document.ProductDocument, *string, error)
}

type PurchaseChecker interface {
	HasPurchased(ctx context.Context, userID, productID int) (bool, error)
}

type SettingsReader interface {
	Get(ctx context.Context) (settings.PdfSettings, error)
}

type URLSigner interface {
	SignURL(path string) (string, error)
}

// Download is either a signed link to a precomputed bundle or an archive
// built on demand.
type Download struct {
	URL      string   `json:"url,omitempty"`
	Filename string   `json:"filename"`
	Archive  *Archive `json:"-"`
}

type Service struct {
	products  ProductSource
	purchases PurchaseChecker
	settings  SettingsReader
	signer    URLSigner
	assembler *Assembler
	log       *zap.Logger
}

func NewService(products ProductSource, purchases PurchaseChecker, settings SettingsReader, signer URLSigner, assembler *Assembler, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		products:  products,
		purchases: purchases,
		settings:  settings,
		signer:    signer,
		assembler: assembler,
		log:       log,
	}
}

// Download returns the bundle for a product the user owns, preferring a
// precomputed archive.
func (s *Service) Download(ctx context.Context, userID, productID int) (Download, error) {
	owned, err := s.purchases.HasPurchased(ctx, userID, productID)
	if err != nil {
		return Download{}, err
	}
	if !owned {
		return Download{}, ErrNotPurchased
	}

	doc, bundlePath, err := s.products.DocumentData(ctx, productID)
	if err != nil {
		return Download{}, err
	}
	if bundlePath != nil && *bundlePath != "" {
		url, err := s.signer.SignURL(*bundlePath)
		if err == nil {
			return Download{URL: url, Filename: Slug(doc.Title) + ".zip"}, nil
		}
		s.log.Warn("precomputed bundle unusable, building on demand", zap.Int("product_id", productID), zap.Error(err))
	}

	archive, err := s.Build(ctx, productID)
	if err != nil {
		return Download{}, err
	}
	return Download{Filename: archive.Filename, Archive: &archive}, nil
}

// Build always assembles a fresh archive.
func (s *Service) Build(ctx context.Context, productID int) (Archive, error) {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return Archive{}, err
	}
	files, err := s.SignedFiles(p)
	if err != nil {
		return Archive{}, err
	}
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return Archive{}, fmt.Errorf("load pdf settings: %w", err)
	}

	archive, err := s.assembler.Assemble(ctx, p.Document(), files, cfg.Document())
	if err != nil {
		return Archive{}, err
	}
	if len(archive.Skipped) > 0 {
		s.log.Warn("bundle built without some files", zap.Int("product_id", productID), zap.Strings("skipped", archive.Skipped))
	}
	return archive, nil
}

// SignedFiles issues a fresh signed URL for every design file of p.
func (s *Service) SignedFiles(p product.Product) ([]SignedFile, error) {
	files := make([]SignedFile, 0, len(p.Files))
	for _, f := range p.Files {
		url, err := s.signer.SignURL(f.Path)
		if err != nil {
			return nil, fmt.Errorf("sign %s: %w", f.Path, err)
		}
		name := f.Filename
		if name == "" {
			name = entryName(f.Path)
		}
		files = append(files, SignedFile{URL: url, Filename: name})
	}
	return files, nil
}
