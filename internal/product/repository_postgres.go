package product

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type PostgresRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	productColumns = `p.id, p.title, p.description, p.price, p.previous_price, p.category_id,
		COALESCE(c.name, ''), p.size, p.stitch_count, p.color_change_count, p.colors_used,
		p.images, p.color_sheet, p.promo, p.bundle_path, p.files, p.created_at, p.updated_at`
	productFrom = ` FROM products p LEFT JOIN categories c ON c.id = p.category_id`

	listProductsQuery     = `SELECT ` + productColumns + productFrom + ` WHERE ($1 = 0 OR p.category_id = $1) ORDER BY p.id`
	getProductQuery       = `SELECT ` + productColumns + productFrom + ` WHERE p.id = $1`
	getProductsByIDsQuery = `SELECT ` + productColumns + productFrom + ` WHERE p.id = ANY($1::int[]) ORDER BY array_position($1::int[], p.id)`
	insertProductQuery    = `
		INSERT INTO products (title, description, price, previous_price, category_id, size, stitch_count,
			color_change_count, colors_used, images, color_sheet, promo, files)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`
	updateProductQuery = `
		UPDATE products
		SET title = $1, description = $2, price = $3, previous_price = $4, category_id = $5, size = $6,
			stitch_count = $7, color_change_count = $8, colors_used = $9, images = $10, color_sheet = $11,
			promo = $12, files = $13, bundle_path = NULL, updated_at = now()
		WHERE id = $14`
	deleteProductQuery = `DELETE FROM products WHERE id = $1`
	setBundlePathQuery    = `UPDATE products SET bundle_path = NULLIF($1, ''), updated_at = now() WHERE id = $2`
	clearBundlePathsQuery = `UPDATE products SET bundle_path = NULL WHERE bundle_path IS NOT NULL`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context, categoryID int) ([]Product, error) {
	rows, err := r.db.QueryContext(ctx, listProductsQuery, categoryID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int) (Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, getProductQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (r *PostgresRepository) GetByIDs(ctx context.Context, ids []int) ([]Product, error) {
	if len(ids) == 0 {
		return []Product{}, nil
	}
	rows, err := r.db.QueryContext(ctx, getProductsByIDsQuery, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *PostgresRepository) Create(ctx context.Context, p Product) (Product, error) {
	args, err := writeArgs(p)
	if err != nil {
		return Product{}, err
	}
	var id int
	if err := r.db.QueryRowContext(ctx, insertProductQuery, args...).Scan(&id); err != nil {
		return Product{}, err
	}
	return r.GetByID(ctx, id)
}

func (r *PostgresRepository) Update(ctx context.Context, id int, p Product) (Product, error) {
	args, err := writeArgs(p)
	if err != nil {
		return Product{}, err
	}
	res, err := r.db.ExecContext(ctx, updateProductQuery, append(args, id)...)
	if err != nil {
		return Product{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Product{}, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, deleteProductQuery, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) SetBundlePath(ctx context.Context, id int, path string) error {
	res, err := r.db.ExecContext(ctx, setBundlePathQuery, path, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ClearBundlePaths(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, clearBundlePathsQuery)
	return err
}

func writeArgs(p Product) ([]any, error) {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	imagesJSON, err := json.Marshal(images)
	if err != nil {
		return nil, err
	}
	files := p.Files
	if files == nil {
		files = []File{}
	}
	filesJSON, err := json.Marshal(files)
	if err != nil {
		return nil, err
	}
	var prev any
	if p.PreviousPrice != nil {
		prev = *p.PreviousPrice
	}
	var categoryID any
	if p.CategoryID != nil {
		categoryID = *p.CategoryID
	}
	return []any{
		p.Title, p.Description, p.Price, prev, categoryID, p.Size, p.StitchCount,
		p.ColorChangeCount, p.ColorsUsed, string(imagesJSON), p.ColorSheet, p.Promo, string(filesJSON),
	}, nil
}

func collect(rows *sql.Rows) ([]Product, error) {
	defer rows.Close()
	out := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProduct(scanner rowScanner) (Product, error) {
	var (
		p          Product
		prev       decimal.NullDecimal
		categoryID sql.NullInt64
		images     []byte
		bundlePath sql.NullString
		files      []byte
		createdAt  time.Time
		updatedAt  time.Time
	)
	err := scanner.Scan(&p.ID, &p.Title, &p.Description, &p.Price, &prev, &categoryID,
		&p.CategoryLabel, &p.Size, &p.StitchCount, &p.ColorChangeCount, &p.ColorsUsed,
		&images, &p.ColorSheet, &p.Promo, &bundlePath, &files, &createdAt, &updatedAt)
	if err != nil {
		return Product{}, err
	}
	if prev.Valid {
		p.PreviousPrice = &prev.Decimal
	}
	if categoryID.Valid {
		id := int(categoryID.Int64)
		p.CategoryID = &id
	}
	if bundlePath.Valid {
		p.BundlePath = &bundlePath.String
	}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &p.Images); err != nil {
			return Product{}, err
		}
	}
	if len(files) > 0 {
		if err := json.Unmarshal(files, &p.Files); err != nil {
			return Product{}, err
		}
	}
	p.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	p.UpdatedAt = updatedAt.UTC().Format(time.RFC3339)
	return p, nil
}
