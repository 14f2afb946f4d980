package category

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	listCategoriesQuery = `SELECT id, name, slug, position FROM categories ORDER BY position, id`
	getCategoryQuery    = `SELECT id, name, slug, position FROM categories WHERE id = $1`
	insertCategoryQuery = `INSERT INTO categories (name, slug, position) VALUES ($1, $2, $3) RETURNING id`
	deleteCategoryQuery = `DELETE FROM categories WHERE id = $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx, listCategoriesQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Category, 0)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Position); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int) (Category, error) {
	var c Category
	err := r.db.QueryRowContext(ctx, getCategoryQuery, id).Scan(&c.ID, &c.Name, &c.Slug, &c.Position)
	if errors.Is(err, sql.ErrNoRows) {
		return Category{}, ErrNotFound
	}
	return c, err
}

func (r *PostgresRepository) Create(ctx context.Context, c Category) (Category, error) {
	if err := r.db.QueryRowContext(ctx, insertCategoryQuery, c.Name, c.Slug, c.Position).Scan(&c.ID); err != nil {
		if strings.Contains(err.Error(), "categories_slug_key") {
			return Category{}, ErrSlugExists
		}
		return Category{}, err
	}
	return c, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, deleteCategoryQuery, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
