package storage

import (
	"context"
	"io"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanPath(t *testing.T) {
	for in, want := range map[string]string{
		"products/1/rose.dst":  "products/1/rose.dst",
		"/products//1/./a.pes": "products/1/a.pes",
	} {
		got, err := cleanPath(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	for _, in := range []string{"", "/", "../etc/passwd", "a/../../b", `a\b`} {
		_, err := cleanPath(in)
		assert.ErrorIs(t, err, ErrInvalidPath, in)
	}
}

func TestSignerRoundTrip(t *testing.T) {
	s := NewSigner("secret", "http://files.test/", time.Minute)

	raw, err := s.SignURL("bundles/rose design.zip")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "files.test", u.Host)
	assert.Equal(t, "/storage/v1/object/bundles/rose design.zip", u.Path)

	token := u.Query().Get("token")
	require.NotEmpty(t, token)
	assert.NoError(t, s.Verify(token, "bundles/rose design.zip"))
	assert.ErrorIs(t, s.Verify(token, "bundles/other.zip"), ErrInvalidToken)
	assert.ErrorIs(t, NewSigner("other", "", time.Minute).Verify(token, "bundles/rose design.zip"), ErrInvalidToken)
}

func TestSignerRejectsExpiredToken(t *testing.T) {
	s := NewSigner("secret", "", time.Minute)
	s.now = func() time.Time { return time.Now().Add(-time.Hour) }

	raw, err := s.SignURL("a.dst")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Verify(u.Query().Get("token"), "a.dst"), ErrInvalidToken)
}

func TestBucketPutOpen(t *testing.T) {
	b, err := NewBucket(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, "designs/7/rose.dst", strings.NewReader("stitches")))
	assert.True(t, b.Exists("designs/7/rose.dst"))
	assert.False(t, b.Exists("designs/7"))

	rc, size, err := b.Open("designs/7/rose.dst")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "stitches", string(data))
	assert.EqualValues(t, 8, size)

	_, _, err = b.Open("designs/7/missing.dst")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, b.Put(ctx, "../escape", strings.NewReader("x")), ErrInvalidPath)
}

func TestObjectRoute(t *testing.T) {
	b, err := NewBucket(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, b.Put(context.Background(), "designs/rose.dst", strings.NewReader("stitches")))
	s := NewSigner("secret", "", time.Minute)

	app := fiber.New()
	NewHandler(b, s, nil).RegisterPublicRoutes(app)

	signed, err := s.SignURL("designs/rose.dst")
	require.NoError(t, err)
	res, err := app.Test(httptest.NewRequest("GET", signed, nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, "stitches", string(body))
	assert.Contains(t, res.Header.Get("Content-Disposition"), "rose.dst")

	res, err = app.Test(httptest.NewRequest("GET", "/storage/v1/object/designs/rose.dst", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)

	other, err := s.SignURL("designs/other.dst")
	require.NoError(t, err)
	u, err := url.Parse(other)
	require.NoError(t, err)
	res, err = app.Test(httptest.NewRequest("GET", "/storage/v1/object/designs/rose.dst?token="+u.Query().Get("token"), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, res.StatusCode)

	res, err = app.Test(httptest.NewRequest("GET", other, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, res.StatusCode)
}

func TestAdminUpload(t *testing.T) {
	b, err := NewBucket(t.TempDir())
	require.NoError(t, err)
	app := fiber.New()
	NewHandler(b, NewSigner("secret", "", time.Minute), nil).RegisterAdminRoutes(app.Group("/api/v1/admin"))

	req := httptest.NewRequest("PUT", "/api/v1/admin/storage/object/designs/9/owl.pes", strings.NewReader("owl"))
	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, res.StatusCode)
	assert.True(t, b.Exists("designs/9/owl.pes"))

	req = httptest.NewRequest("PUT", "/api/v1/admin/storage/object/designs/empty.pes", nil)
	res, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
}
