package cart

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wichananm65/embroidery-shop-backend/internal/product"
)

type fakePurchases map[int][]int

func (f fakePurchases) PurchasedProductIDs(_ context.Context, userID int) ([]int, error) {
	return f[userID], nil
}

func makeAppWithCartHandler(cHandler *Handler) *fiber.App {
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
	cHandler.RegisterProtectedRoutes(app)
	return app
}

func newTestService(repo Repository, purchases fakePurchases) *Service {
	products := product.NewInMemoryRepository([]product.Product{
		{ID: 1, Title: "Rose", Price: decimal.RequireFromString("12.50")},
		{ID: 2, Title: "Fox", Price: decimal.RequireFromString("8.00")},
		{ID: 3, Title: "Owl", Price: decimal.RequireFromString("5.25")},
	})
	return NewService(repo, product.NewService(products), purchases, nil)
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string, userID int) (int, []Line) {
	t.Helper()
	var req = httptest.NewRequest(method, path, nil)
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if userID > 0 {
		req.Header.Set("X-User-ID", strconv.Itoa(userID))
	}
	res, err := app.Test(req)
	require.NoError(t, err)
	var lines []Line
	if res.StatusCode == fiber.StatusOK {
		require.NoError(t, json.NewDecoder(res.Body).Decode(&lines))
	}
	return res.StatusCode, lines
}

func TestCartRoutes_Basic(t *testing.T) {
	app := makeAppWithCartHandler(NewHandler(newTestService(NewInMemoryRepository(nil), nil)))

	status, _ := doJSON(t, app, "GET", "/api/v1/cart", "", 0)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	status, _ = doJSON(t, app, "POST", "/api/v1/cart", `{"productId":2}`, 0)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, lines := doJSON(t, app, "POST", "/api/v1/cart", `{"productId":2}`, 42)
	require.Equal(t, fiber.StatusOK, status)
	require.Len(t, lines, 1)
	assert.Equal(t, "Fox", lines[0].Title)
	assert.True(t, lines[0].UnitPrice.Equal(decimal.NewFromInt(8)))

	// adding the same design twice keeps one line
	status, lines = doJSON(t, app, "POST", "/api/v1/cart", `{"productId":2}`, 42)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, lines, 1)

	status, lines = doJSON(t, app, "POST", "/api/v1/cart", `{"productId":1}`, 42)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []int{2, 1}, ProductIDs(lines))

	status, _ = doJSON(t, app, "POST", "/api/v1/cart", `{"productId":99}`, 42)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, lines = doJSON(t, app, "DELETE", "/api/v1/cart/2", "", 42)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []int{1}, ProductIDs(lines))

	status, _ = doJSON(t, app, "DELETE", "/api/v1/cart/2", "", 42)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = doJSON(t, app, "DELETE", "/api/v1/cart", "", 42)
	assert.Equal(t, fiber.StatusNoContent, status)
	status, lines = doJSON(t, app, "GET", "/api/v1/cart", "", 42)
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, lines)
}

func TestCart_PurchasedProductsAreFilteredAndRejected(t *testing.T) {
	repo := NewInMemoryRepository(map[int][]Line{
		7: {
			{ProductID: 1, Title: "Rose", UnitPrice: decimal.RequireFromString("12.50")},
			{ProductID: 3, Title: "Owl", UnitPrice: decimal.RequireFromString("5.25")},
		},
	})
	svc := newTestService(repo, fakePurchases{7: {1}})
	app := makeAppWithCartHandler(NewHandler(svc))

	status, lines := doJSON(t, app, "GET", "/api/v1/cart", "", 7)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []int{3}, ProductIDs(lines))

	stored, err := repo.List(t.Context(), 7)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, ProductIDs(stored))

	status, _ = doJSON(t, app, "POST", "/api/v1/cart", `{"productId":1}`, 7)
	assert.Equal(t, fiber.StatusConflict, status)
}

func TestCart_PriceIsLockedAtAddTime(t *testing.T) {
	products := product.NewInMemoryRepository([]product.Product{
		{ID: 1, Title: "Rose", Price: decimal.RequireFromString("12.50")},
	})
	repo := NewInMemoryRepository(nil)
	svc := NewService(repo, product.NewService(products), nil, nil)

	_, err := svc.Add(t.Context(), 5, 1)
	require.NoError(t, err)
	_, err = products.Update(t.Context(), 1, product.Product{Title: "Rose", Price: decimal.RequireFromString("20")})
	require.NoError(t, err)

	lines, err := svc.GetCart(t.Context(), 5)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "12.5", lines[0].UnitPrice.String())
}

func TestPostgresRepository_RemoveManyUsesArray(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM cart_items WHERE user_id = \\$1 AND product_id = ANY").
		WithArgs(3, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, NewPostgresRepository(db).RemoveMany(t.Context(), 3, []int{1, 2}))
	require.NoError(t, NewPostgresRepository(db).RemoveMany(t.Context(), 3, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}
