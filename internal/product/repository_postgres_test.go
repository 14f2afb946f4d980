package product

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wichananm65/embroidery-shop-backend/internal/document"
)

var productRowColumns = []string{
	"id", "title", "description", "price", "previous_price", "category_id", "category_label",
	"size", "stitch_count", "color_change_count", "colors_used", "images", "color_sheet",
	"promo", "bundle_path", "files", "created_at", "updated_at",
}

func TestPostgresGetByID_ScansJSONColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(productRowColumns).AddRow(
		7, "Rose", "d", "12.50", "15.00", 3, "Florals",
		"10 x 10 cm", 12000, 8, 6, []byte(`["https://cdn.test/a.png"]`), []byte(`"<p>DMC 310</p>"`),
		"", "bundles/rose.zip", []byte(`[{"path":"designs/rose.pes","filename":"rose.pes"}]`), now, now,
	)
	mock.ExpectQuery("FROM products p LEFT JOIN categories").WithArgs(7).WillReturnRows(rows)

	p, err := repo.GetByID(t.Context(), 7)
	require.NoError(t, err)
	assert.Equal(t, "12.5", p.Price.String())
	require.NotNil(t, p.PreviousPrice)
	assert.Equal(t, "15", p.PreviousPrice.String())
	require.NotNil(t, p.CategoryID)
	assert.Equal(t, 3, *p.CategoryID)
	assert.Equal(t, []string{"https://cdn.test/a.png"}, p.Images)
	assert.Equal(t, document.ColorSheetRichText, p.ColorSheet.Kind())
	require.Len(t, p.Files, 1)
	assert.Equal(t, "rose.pes", p.Files[0].Filename)
	require.NotNil(t, p.BundlePath)
	assert.Equal(t, "2026-03-01T12:00:00Z", p.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM products p").WithArgs(9).WillReturnError(sql.ErrNoRows)
	_, err = NewPostgresRepository(db).GetByID(t.Context(), 9)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresSetBundlePath(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectExec("UPDATE products SET bundle_path").WithArgs("bundles/a.zip", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE products SET bundle_path").WithArgs("bundles/b.zip", 2).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.SetBundlePath(t.Context(), 1, "bundles/a.zip"))
	assert.ErrorIs(t, repo.SetBundlePath(t.Context(), 2, "bundles/b.zip"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresClearBundlePaths(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE products SET bundle_path = NULL WHERE bundle_path IS NOT NULL").
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, NewPostgresRepository(db).ClearBundlePaths(t.Context()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateForgetsBundlePath(t *testing.T) {
	stored := "bundles/1/owl.zip"
	svc := NewService(NewInMemoryRepository([]Product{{ID: 1, Title: "Owl", BundlePath: &stored}}))
	ctx := t.Context()

	p, err := svc.GetByID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, p.BundlePath)
	p.Title = "Night Owl"
	updated, err := svc.Update(ctx, 1, p)
	require.NoError(t, err)
	assert.Nil(t, updated.BundlePath)

	require.NoError(t, svc.SetBundlePath(ctx, 1, stored))
	require.NoError(t, svc.ClearBundlePaths(ctx))
	_, path, err := svc.DocumentData(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, path)
}
