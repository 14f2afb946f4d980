package favorite

import (
	"context"
	"database/sql"
	"strings"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	addFavoriteQuery = `
		INSERT INTO favorites (user_id, product_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, product_id) DO NOTHING
	`
	removeFavoriteQuery = `DELETE FROM favorites WHERE user_id = $1 AND product_id = $2`
	listFavoritesQuery  = `SELECT product_id FROM favorites WHERE user_id = $1 ORDER BY created_at, product_id`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Add(ctx context.Context, userID, productID int) error {
	res, err := r.db.ExecContext(ctx, addFavoriteQuery, userID, productID)
	if err != nil {
		if strings.Contains(err.Error(), "favorites_product_id_fkey") {
			return ErrProductNotFound
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAlreadyFavorite
	}
	return nil
}

func (r *PostgresRepository) Remove(ctx context.Context, userID, productID int) error {
	res, err := r.db.ExecContext(ctx, removeFavoriteQuery, userID, productID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFavorite
	}
	return nil
}

func (r *PostgresRepository) ProductIDs(ctx context.Context, userID int) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, listFavoritesQuery, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
