package order

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wichananm65/embroidery-shop-backend/internal/product"
)

func makeAppWithOrderHandler(h *Handler) *fiber.App {
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

func newTestService() *Service {
	products := product.NewInMemoryRepository([]product.Product{
		{ID: 1, Title: "Rose", Price: decimal.RequireFromString("12.50"), Files: []product.File{{Path: "rose.dst", Filename: "rose.dst"}}},
		{ID: 2, Title: "Fox", Price: decimal.RequireFromString("8.00")},
	})
	return NewService(NewInMemoryRepository(nil), product.NewService(products), nil)
}

func draft(userID int, productIDs ...int) Draft {
	d := Draft{UserID: userID, Currency: "USD", Subtotal: decimal.Zero, Discount: decimal.Zero}
	for _, id := range productIDs {
		d.Lines = append(d.Lines, Line{ProductID: id, UnitPrice: decimal.NewFromInt(10), Discount: decimal.Zero})
		d.Subtotal = d.Subtotal.Add(decimal.NewFromInt(10))
	}
	d.Total = d.Subtotal
	return d
}

func TestCreatePendingAndTransitions(t *testing.T) {
	ctx := context.Background()
	s := newTestService()

	_, err := s.CreatePending(ctx, draft(1))
	assert.ErrorIs(t, err, ErrEmptyOrder)

	o, err := s.CreatePending(ctx, draft(1, 1, 2))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.Status)
	assert.NotEmpty(t, o.Ref)
	assert.Equal(t, []int{1, 2}, o.ProductIDs())

	require.NoError(t, s.AttachExternalRef(ctx, o.Ref, "EXT-1"))
	ids, err := s.PurchasedProductIDs(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, ids)

	paid, err := s.MarkPaid(ctx, o.Ref, "CAP-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, paid.Status)
	assert.Equal(t, "EXT-1", paid.ExternalRef)
	assert.Equal(t, "CAP-1", paid.ProviderPaymentID)

	_, err = s.MarkPaid(ctx, o.Ref, "CAP-2")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, s.MarkFailed(ctx, o.Ref), ErrInvalidTransition)
	assert.ErrorIs(t, s.MarkFailed(ctx, "missing"), ErrNotFound)

	owned, err := s.HasPurchased(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, owned)
	owned, err = s.HasPurchased(ctx, 2, 2)
	require.NoError(t, err)
	assert.False(t, owned)
}

func TestFailedOrdersDoNotCountAsPurchases(t *testing.T) {
	ctx := context.Background()
	s := newTestService()

	o, err := s.CreatePending(ctx, draft(1, 1))
	require.NoError(t, err)
	require.NoError(t, s.MarkFailed(ctx, o.Ref))

	ids, err := s.PurchasedProductIDs(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestOrderRoutes(t *testing.T) {
	ctx := context.Background()
	s := newTestService()
	first, err := s.CreatePending(ctx, draft(1, 1))
	require.NoError(t, err)
	_, err = s.MarkPaid(ctx, first.Ref, "CAP-1")
	require.NoError(t, err)
	_, err = s.CreatePending(ctx, draft(1, 2))
	require.NoError(t, err)

	app := makeAppWithOrderHandler(NewHandler(s))

	res, err := app.Test(httptest.NewRequest("GET", "/api/v1/orders", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)

	req := httptest.NewRequest("GET", "/api/v1/orders", nil)
	req.Header.Set("X-User-ID", "1")
	res, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	var orders []Order
	require.NoError(t, json.NewDecoder(res.Body).Decode(&orders))
	require.Len(t, orders, 2)
	assert.Equal(t, StatusPending, orders[0].Status)
	assert.Equal(t, StatusPaid, orders[1].Status)

	req = httptest.NewRequest("GET", "/api/v1/my-designs", nil)
	req.Header.Set("X-User-ID", "1")
	res, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	var designs []product.Product
	require.NoError(t, json.NewDecoder(res.Body).Decode(&designs))
	require.Len(t, designs, 1)
	assert.Equal(t, "Rose", designs[0].Title)
	assert.Empty(t, designs[0].Files)
}

func orderRow(status string) *sqlmock.Rows {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return sqlmock.NewRows([]string{"id", "ref", "user_id", "coupon_id", "coupon_code", "subtotal", "discount",
		"total", "currency", "status", "external_ref", "provider_payment_id", "created_at", "updated_at"}).
		AddRow(7, "ref-1", 3, int64(4), "WELCOME-1", "20.00", "3.00", "17.00", "USD", status, "EXT-1", "CAP-1", now, now)
}

func TestPostgresMarkPaid(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = 'paid'")).
		WithArgs("ref-1", "CAP-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE ref = $1")).
		WithArgs("ref-1").
		WillReturnRows(orderRow("paid"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM order_lines")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "product_id", "title", "unit_price", "discount"}).
			AddRow(7, 11, "Rose", "20.00", "3.00"))

	o, err := repo.MarkPaid(context.Background(), "ref-1", "CAP-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, o.Status)
	require.NotNil(t, o.CouponID)
	assert.Equal(t, 4, *o.CouponID)
	assert.Equal(t, "17.00", o.Total.StringFixed(2))
	require.Len(t, o.Lines, 1)
	assert.Equal(t, 11, o.Lines[0].ProductID)
	assert.Equal(t, "2026-01-02T03:04:05Z", o.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMarkPaidRejectsSettledOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = 'paid'")).
		WithArgs("ref-1", "CAP-2").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE ref = $1")).
		WithArgs("ref-1").
		WillReturnRows(orderRow("failed"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM order_lines")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "product_id", "title", "unit_price", "discount"}))

	_, err = repo.MarkPaid(context.Background(), "ref-1", "CAP-2")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateWritesLinesInTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(9, now, now))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_lines")).
		WithArgs(9, 0, 1, "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_lines")).
		WithArgs(9, 1, 2, "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	d := draft(1, 1, 2)
	o, err := repo.Create(context.Background(), Order{Ref: "r", UserID: 1, Lines: d.Lines, Subtotal: d.Subtotal,
		Discount: d.Discount, Total: d.Total, Currency: "USD", Status: StatusPending})
	require.NoError(t, err)
	assert.Equal(t, 9, o.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
