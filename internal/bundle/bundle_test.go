package bundle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/klauspost/compress/zip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wichananm65/embroidery-shop-backend/internal/document"
	"github.com/wichananm65/embroidery-shop-backend/internal/events"
	"github.com/wichananm65/embroidery-shop-backend/internal/product"
	"github.com/wichananm65/embroidery-shop-backend/internal/settings"
	"github.com/wichananm65/embroidery-shop-backend/internal/storage"
)

// fakeFetcher serves bodies by the last path element of the URL.
type fakeFetcher struct {
	bodies map[string][]byte
	delay  map[string]time.Duration
}

func (f *fakeFetcher) Fetch(ctx context.Context, raw string) ([]byte, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	name := path.Base(u.Path)
	if d := f.delay[name]; d > 0 {
		time.Sleep(d)
	}
	if b, ok := f.bodies[name]; ok {
		return b, nil
	}
	return nil, errors.New("404 " + name)
}

type noImages struct{}

func (noImages) LoadImage(context.Context, string) (document.LoadedImage, error) {
	return document.LoadedImage{}, errors.New("offline")
}

type owners map[int][]int

func (o owners) HasPurchased(_ context.Context, userID, productID int) (bool, error) {
	for _, id := range o[userID] {
		if id == productID {
			return true, nil
		}
	}
	return false, nil
}

func newAssembler(f Fetcher) *Assembler {
	return NewAssembler(document.NewRenderer(document.NewPDFMeasurer(), noImages{}, nil), f, 3, nil)
}

func entries(t *testing.T, data []byte) ([]string, map[string][]byte) {
	t.Helper()
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	names := make([]string, 0, len(r.File))
	contents := map[string][]byte{}
	for _, f := range r.File {
		names = append(names, f.Name)
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		contents[f.Name] = b
	}
	return names, contents
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "rose_vine_border", Slug("Rose & Vine Border"))
	assert.Equal(t, "owl_2024", Slug("Owl -- 2024"))
	assert.Equal(t, "design", Slug(""))
	assert.Equal(t, "_", Slug("!!!"))
}

func TestAssembleSkipsFailedFiles(t *testing.T) {
	f := &fakeFetcher{bodies: map[string][]byte{"a.dst": []byte("AAA"), "c.pes": []byte("CCC")}}
	doc := document.ProductDocument{Title: "Rose Border", ColorSheet: document.LegacyList([]string{"Red", "Green"})}
	files := []SignedFile{
		{URL: "http://files.test/x/a.dst", Filename: "a.dst"},
		{URL: "http://files.test/x/b.dst", Filename: "b.dst"},
		{URL: "http://files.test/x/c.pes", Filename: "c.pes"},
	}

	archive, err := newAssembler(f).Assemble(context.Background(), doc, files, document.Settings{FooterText: "Thanks"})
	require.NoError(t, err)
	assert.Equal(t, "rose_border.zip", archive.Filename)
	assert.Equal(t, []string{"b.dst"}, archive.Skipped)

	names, contents := entries(t, archive.Data)
	assert.Equal(t, []string{"rose_border.pdf", "a.dst", "c.pes"}, names)
	assert.True(t, bytes.HasPrefix(contents["rose_border.pdf"], []byte("%PDF-")))
	assert.Equal(t, "CCC", string(contents["c.pes"]))
}

func TestAssembleWithNoFilesStillHasDocument(t *testing.T) {
	files := []SignedFile{{URL: "http://files.test/gone.dst", Filename: "gone.dst"}}
	archive, err := newAssembler(&fakeFetcher{}).Assemble(context.Background(), document.ProductDocument{Title: "Fox"}, files, document.Settings{})
	require.NoError(t, err)
	names, _ := entries(t, archive.Data)
	assert.Equal(t, []string{"fox.pdf"}, names)
}

func TestAssembleKeepsInputOrderAndDedupesNames(t *testing.T) {
	f := &fakeFetcher{
		bodies: map[string][]byte{"1.dst": []byte("one"), "2.dst": []byte("two"), "3.dst": []byte("three")},
		delay:  map[string]time.Duration{"1.dst": 30 * time.Millisecond, "2.dst": 15 * time.Millisecond},
	}
	files := []SignedFile{
		{URL: "http://files.test/1.dst", Filename: "rose.dst"},
		{URL: "http://files.test/2.dst", Filename: "sub/rose.dst"},
		{URL: "http://files.test/3.dst", Filename: "rose.pdf"},
	}
	archive, err := newAssembler(f).Assemble(context.Background(), document.ProductDocument{Title: "Rose"}, files, document.Settings{})
	require.NoError(t, err)

	names, contents := entries(t, archive.Data)
	assert.Equal(t, []string{"rose.pdf", "rose.dst", "rose_2.dst", "rose_2.pdf"}, names)
	assert.Equal(t, "one", string(contents["rose.dst"]))
	assert.Equal(t, "two", string(contents["rose_2.dst"]))
	assert.Equal(t, "three", string(contents["rose_2.pdf"]))
}

type fixture struct {
	products *product.Service
	service  *Service
	bucket   *storage.Bucket
	signer   *storage.Signer
	fetcher  *fakeFetcher
	settings *settings.Service
}

func newFixture(t *testing.T, bundlePath *string) *fixture {
	t.Helper()
	repo := product.NewInMemoryRepository([]product.Product{{
		ID:         1,
		Title:      "Rose Border",
		Price:      decimal.NewFromInt(9),
		BundlePath: bundlePath,
		Files: []product.File{
			{Path: "designs/1/a.dst", Filename: "a.dst"},
			{Path: "designs/1/b.dst", Filename: "b.dst"},
			{Path: "designs/1/c.pes"},
		},
	}})
	products := product.NewService(repo)
	bucket, err := storage.NewBucket(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSigner("secret", "http://files.test", time.Minute)
	cfg := settings.NewService(settings.NewInMemoryRepository(settings.PdfSettings{FooterText: "Happy stitching"}), nil, products, nil)
	f := &fakeFetcher{bodies: map[string][]byte{"a.dst": []byte("AAA"), "c.pes": []byte("CCC")}}

	svc := NewService(products, owners{5: {1}}, cfg, signer, newAssembler(f), nil)
	return &fixture{products: products, service: svc, bucket: bucket, signer: signer, fetcher: f, settings: cfg}
}

func TestDownloadRequiresPurchase(t *testing.T) {
	fx := newFixture(t, nil)
	_, err := fx.service.Download(context.Background(), 6, 1)
	assert.ErrorIs(t, err, ErrNotPurchased)
}

func TestDownloadFastPath(t *testing.T) {
	stored := "bundles/1/rose_border.zip"
	fx := newFixture(t, &stored)

	d, err := fx.service.Download(context.Background(), 5, 1)
	require.NoError(t, err)
	assert.Nil(t, d.Archive)
	assert.Equal(t, "rose_border.zip", d.Filename)
	u, err := url.Parse(d.URL)
	require.NoError(t, err)
	assert.Equal(t, "/storage/v1/object/bundles/1/rose_border.zip", u.Path)
	assert.NoError(t, fx.signer.Verify(u.Query().Get("token"), stored))
}

func TestEditsFallBackToSlowPath(t *testing.T) {
	ctx := context.Background()
	stored := "bundles/1/rose_border.zip"

	fx := newFixture(t, &stored)
	p, err := fx.products.GetByID(ctx, 1)
	require.NoError(t, err)
	p.Title = "Rose Border II"
	_, err = fx.products.Update(ctx, 1, p)
	require.NoError(t, err)
	d, err := fx.service.Download(ctx, 5, 1)
	require.NoError(t, err)
	require.NotNil(t, d.Archive, "edited product is rebuilt on demand")
	assert.Equal(t, "rose_border_ii.zip", d.Filename)

	fx = newFixture(t, &stored)
	_, err = fx.settings.Update(ctx, settings.PdfSettings{FooterText: "New footer"})
	require.NoError(t, err)
	d, err = fx.service.Download(ctx, 5, 1)
	require.NoError(t, err)
	assert.NotNil(t, d.Archive, "settings change is rebuilt on demand")
}

func TestDownloadSlowPath(t *testing.T) {
	fx := newFixture(t, nil)

	d, err := fx.service.Download(context.Background(), 5, 1)
	require.NoError(t, err)
	require.NotNil(t, d.Archive)
	names, _ := entries(t, d.Archive.Data)
	assert.Equal(t, []string{"rose_border.pdf", "a.dst", "c.pes"}, names)
}

func TestWorkerPrecomputesOnce(t *testing.T) {
	fx := newFixture(t, nil)
	fx.fetcher.bodies["b.dst"] = []byte("BBB")
	w := NewWorker(fx.service, fx.bucket, fx.products, nil)
	ctx := context.Background()

	require.NoError(t, w.HandleOrderPaid(ctx, events.NewOrderPaid("ref", 5, []int{1})))
	p, err := fx.products.GetByID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, p.BundlePath)
	assert.Equal(t, "bundles/1/rose_border.zip", *p.BundlePath)
	assert.True(t, fx.bucket.Exists(*p.BundlePath))

	rc, size, err := fx.bucket.Open(*p.BundlePath)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.EqualValues(t, len(data), size)
	names, _ := entries(t, data)
	assert.Equal(t, []string{"rose_border.pdf", "a.dst", "b.dst", "c.pes"}, names)

	assert.NoError(t, w.Precompute(ctx, 1))
	assert.Error(t, w.HandleOrderPaid(ctx, events.NewOrderPaid("ref", 5, []int{42})))
}

func TestWorkerDoesNotStorePartialBundle(t *testing.T) {
	fx := newFixture(t, nil)
	w := NewWorker(fx.service, fx.bucket, fx.products, nil)
	ctx := context.Background()

	err := w.HandleOrderPaid(ctx, events.NewOrderPaid("ref", 5, []int{1}))
	require.ErrorIs(t, err, ErrIncomplete)
	p, err := fx.products.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, p.BundlePath)
	assert.False(t, fx.bucket.Exists("bundles/1/rose_border.zip"))

	// the redelivered event succeeds once the file is reachable
	fx.fetcher.bodies["b.dst"] = []byte("BBB")
	require.NoError(t, w.HandleOrderPaid(ctx, events.NewOrderPaid("ref", 5, []int{1})))

	d, err := fx.service.Download(ctx, 5, 1)
	require.NoError(t, err)
	assert.Nil(t, d.Archive)
	rc, _, err := fx.bucket.Open("bundles/1/rose_border.zip")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	names, _ := entries(t, data)
	assert.Equal(t, []string{"rose_border.pdf", "a.dst", "b.dst", "c.pes"}, names)
}

func makeAppWithBundleHandler(h *Handler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if v := c.Get("X-User-ID"); v != "" {
			id, err := strconv.Atoi(v)
			if err == nil {
				claims := jwt.MapClaims{"user_id": id}
				tok := &jwt.Token{Claims: claims}
				c.Locals("user", tok)
			}
		}
		return c.Next()
	})
	h.RegisterProtectedRoutes(app)
	return app
}

func TestBundleRoute(t *testing.T) {
	fx := newFixture(t, nil)
	app := makeAppWithBundleHandler(NewHandler(fx.service, nil))

	get := func(userID int) (int, http.Header, []byte) {
		req := httptest.NewRequest("GET", "/api/v1/products/1/bundle", nil)
		req.Header.Set("X-User-ID", strconv.Itoa(userID))
		res, err := app.Test(req, -1)
		require.NoError(t, err)
		body, err := io.ReadAll(res.Body)
		require.NoError(t, err)
		return res.StatusCode, res.Header, body
	}

	status, _, _ := get(6)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, header, body := get(5)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "application/zip", header.Get("Content-Type"))
	assert.Contains(t, header.Get("Content-Disposition"), "rose_border.zip")
	names, _ := entries(t, body)
	assert.Len(t, names, 3)

	require.NoError(t, fx.products.SetBundlePath(context.Background(), 1, "bundles/1/rose_border.zip"))
	status, _, body = get(5)
	require.Equal(t, fiber.StatusOK, status)
	var d Download
	require.NoError(t, json.Unmarshal(body, &d))
	assert.Equal(t, "rose_border.zip", d.Filename)
	assert.NotEmpty(t, d.URL)
}
