package cart

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	listCartQuery = `
		SELECT ci.product_id, p.title, ci.unit_price, p.previous_price, COALESCE(c.name, ''), p.size, ci.added_at
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE ci.user_id = $1
		ORDER BY ci.added_at, ci.product_id`
	addCartItemQuery = `
		INSERT INTO cart_items (user_id, product_id, unit_price)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id) DO NOTHING`
	removeCartItemQuery  = `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`
	removeCartItemsQuery = `DELETE FROM cart_items WHERE user_id = $1 AND product_id = ANY($2::int[])`
	clearCartQuery       = `DELETE FROM cart_items WHERE user_id = $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context, userID int) ([]Line, error) {
	rows, err := r.db.QueryContext(ctx, listCartQuery, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Line, 0)
	for rows.Next() {
		var (
			l       Line
			prev    decimal.NullDecimal
			addedAt time.Time
		)
		if err := rows.Scan(&l.ProductID, &l.Title, &l.UnitPrice, &prev, &l.CategoryLabel, &l.Size, &addedAt); err != nil {
			return nil, err
		}
		if prev.Valid {
			l.PreviousPrice = &prev.Decimal
		}
		l.AddedAt = addedAt.UTC().Format(time.RFC3339)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Add(ctx context.Context, userID int, line Line) error {
	_, err := r.db.ExecContext(ctx, addCartItemQuery, userID, line.ProductID, line.UnitPrice)
	return err
}

func (r *PostgresRepository) Remove(ctx context.Context, userID int, productID int) error {
	res, err := r.db.ExecContext(ctx, removeCartItemQuery, userID, productID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotInCart
	}
	return nil
}

func (r *PostgresRepository) RemoveMany(ctx context.Context, userID int, productIDs []int) error {
	if len(productIDs) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, removeCartItemsQuery, userID, pq.Array(productIDs))
	return err
}

func (r *PostgresRepository) Clear(ctx context.Context, userID int) error {
	_, err := r.db.ExecContext(ctx, clearCartQuery, userID)
	return err
}
