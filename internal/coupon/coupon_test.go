package coupon

import (
	"database/sql"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCoupons() []Coupon {
	return []Coupon{
		{ID: 1, Code: "WELCOME-AAA", Kind: KindWelcomePercent, DiscountPercent: decimal.NewFromInt(15), OwnerUserID: 10},
		{ID: 2, Code: "BULK-BBB", Kind: KindBulkPercentCapped, DiscountPercent: decimal.NewFromInt(50), MaxItems: 2, OwnerUserID: 10, Used: true},
		{ID: 3, Code: "GIFT-CCC", Kind: KindAdminManual, DiscountPercent: decimal.NewFromInt(10), OwnerUserID: 20},
	}
}

func TestValidate(t *testing.T) {
	svc := NewService(NewInMemoryRepository(seedCoupons()), decimal.NewFromInt(15), nil)
	ctx := t.Context()

	c, err := svc.Validate(ctx, 10, "  welcome-aaa ")
	require.NoError(t, err)
	assert.Equal(t, 1, c.ID)

	// used coupons never validate, even for their owner
	_, err = svc.Validate(ctx, 10, "BULK-BBB")
	assert.ErrorIs(t, err, ErrNotFound)

	// someone else's code looks exactly like an unknown one
	_, err = svc.Validate(ctx, 10, "GIFT-CCC")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Validate(ctx, 10, "NOPE")
	assert.ErrorIs(t, err, ErrNotFound)

	// anonymous callers never see a coupon
	_, err = svc.Validate(ctx, 0, "WELCOME-AAA")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkUsed_RedeemsOnlyOnce(t *testing.T) {
	repo := NewInMemoryRepository(seedCoupons())
	svc := NewService(repo, decimal.NewFromInt(15), nil)
	ctx := t.Context()

	require.NoError(t, svc.MarkUsed(ctx, 1))
	_, err := svc.Validate(ctx, 10, "WELCOME-AAA")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, svc.MarkUsed(ctx, 1), ErrNotFound)
	assert.ErrorIs(t, svc.MarkUsed(ctx, 2), ErrNotFound)
	assert.ErrorIs(t, svc.MarkUsed(ctx, 99), ErrNotFound)

	list, err := svc.ListForUser(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRelease_MakesCouponUsableAgain(t *testing.T) {
	svc := NewService(NewInMemoryRepository(seedCoupons()), decimal.NewFromInt(15), nil)
	ctx := t.Context()

	require.NoError(t, svc.MarkUsed(ctx, 1))
	require.NoError(t, svc.Release(ctx, 1))

	c, err := svc.Validate(ctx, 10, "WELCOME-AAA")
	require.NoError(t, err)
	assert.False(t, c.Used)
	assert.Nil(t, c.UsedAt)
	require.NoError(t, svc.MarkUsed(ctx, 1))
	assert.ErrorIs(t, svc.Release(ctx, 99), ErrNotFound)
}

func TestGrantWelcome(t *testing.T) {
	repo := NewInMemoryRepository(nil)
	svc := NewService(repo, decimal.NewFromInt(15), nil)

	require.NoError(t, svc.GrantWelcome(t.Context(), 5))
	list, err := svc.ListForUser(t.Context(), 5)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, KindWelcomePercent, list[0].Kind)
	assert.True(t, list[0].DiscountPercent.Equal(decimal.NewFromInt(15)))
	assert.True(t, strings.HasPrefix(list[0].Code, "WELCOME-"))

	got, err := svc.Validate(t.Context(), 5, strings.ToLower(list[0].Code))
	require.NoError(t, err)
	assert.Equal(t, list[0].ID, got.ID)
}

func TestIssueBatch(t *testing.T) {
	svc := NewService(NewInMemoryRepository(nil), decimal.NewFromInt(15), nil)
	ctx := t.Context()

	bad := []IssueRequest{
		{Kind: KindAdminManual, DiscountPercent: decimal.NewFromInt(10)},
		{UserIDs: []int{1}, Kind: "NOPE", DiscountPercent: decimal.NewFromInt(10)},
		{UserIDs: []int{1}, Kind: KindAdminManual, DiscountPercent: decimal.Zero},
		{UserIDs: []int{1}, Kind: KindAdminManual, DiscountPercent: decimal.NewFromInt(101)},
		{UserIDs: []int{1}, Kind: KindBulkPercentCapped, DiscountPercent: decimal.NewFromInt(50)},
		{UserIDs: []int{0}, Kind: KindAdminManual, DiscountPercent: decimal.NewFromInt(10)},
	}
	for i, req := range bad {
		_, err := svc.IssueBatch(ctx, req)
		assert.ErrorIs(t, err, ErrInvalidBatch, "case %d", i)
	}

	created, err := svc.IssueBatch(ctx, IssueRequest{
		UserIDs: []int{1, 2, 3}, Kind: KindBulkPercentCapped, DiscountPercent: decimal.NewFromInt(50), MaxItems: 2, Prefix: "spring",
	})
	require.NoError(t, err)
	require.Len(t, created, 3)
	codes := map[string]bool{}
	for i, c := range created {
		assert.Equal(t, i+1, c.OwnerUserID)
		assert.True(t, strings.HasPrefix(c.Code, "SPRING-"))
		codes[c.Code] = true
	}
	assert.Len(t, codes, 3)
}

func makeApp(h *Handler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if v := c.Get("X-User-ID"); v != "" {
			if id, err := strconv.Atoi(v); err == nil {
				c.Locals("user", &jwt.Token{Claims: jwt.MapClaims{"user_id": id}})
			}
		}
		return c.Next()
	})
	h.RegisterProtectedRoutes(app)
	h.RegisterAdminRoutes(app.Group("/api/v1/admin"))
	return app
}

func TestCouponRoutes(t *testing.T) {
	app := makeApp(NewHandler(NewService(NewInMemoryRepository(seedCoupons()), decimal.NewFromInt(15), nil)))

	res, err := app.Test(httptest.NewRequest("GET", "/api/v1/coupons", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)

	req := httptest.NewRequest("GET", "/api/v1/coupons", nil)
	req.Header.Set("X-User-ID", "10")
	res, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, res.StatusCode)
	var mine []Coupon
	require.NoError(t, json.NewDecoder(res.Body).Decode(&mine))
	require.Len(t, mine, 1)
	assert.Equal(t, "WELCOME-AAA", mine[0].Code)

	body := `{"userIds":[10,20],"kind":"ADMIN_MANUAL","discountPercent":"25"}`
	req = httptest.NewRequest("POST", "/api/v1/admin/coupons", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, res.StatusCode)

	req = httptest.NewRequest("POST", "/api/v1/admin/coupons", strings.NewReader(`{"userIds":[],"kind":"ADMIN_MANUAL"}`))
	req.Header.Set("Content-Type", "application/json")
	res, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
}

func TestPostgresRepository(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)
	ctx := t.Context()
	now := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

	cols := []string{"id", "code", "discount_percent", "max_items", "kind", "used", "owner_user_id", "created_at", "used_at"}
	mock.ExpectQuery("FROM coupons WHERE code = \\$1 AND owner_user_id = \\$2 AND NOT used").
		WithArgs("BULK-1", 4).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(8, "BULK-1", "50", 2, "BULK_PERCENT_CAPPED", false, 4, now, nil))
	mock.ExpectQuery("FROM coupons WHERE code").
		WithArgs("BULK-1", 5).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("UPDATE coupons SET used = true, used_at = \\$2 WHERE id = \\$1 AND NOT used").
		WithArgs(8, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE coupons SET used = true").
		WithArgs(8, now).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE coupons SET used = false, used_at = NULL WHERE id = \\$1").
		WithArgs(8).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, err := repo.FindUsable(ctx, "BULK-1", 4)
	require.NoError(t, err)
	assert.Equal(t, KindBulkPercentCapped, c.Kind)
	assert.Equal(t, 2, c.MaxItems)
	assert.Equal(t, "50", c.DiscountPercent.String())
	assert.Nil(t, c.UsedAt)

	_, err = repo.FindUsable(ctx, "BULK-1", 5)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.MarkUsed(ctx, 8, now))
	assert.ErrorIs(t, repo.MarkUsed(ctx, 8, now), ErrNotFound)
	require.NoError(t, repo.Release(ctx, 8))
	assert.NoError(t, mock.ExpectationsWereMet())
}
