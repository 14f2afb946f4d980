package coupon

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

type PostgresRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	couponColumns = `id, code, discount_percent, max_items, kind, used, owner_user_id, created_at, used_at`

	findUsableQuery = `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1 AND owner_user_id = $2 AND NOT used`
	listUnusedQuery = `SELECT ` + couponColumns + ` FROM coupons WHERE owner_user_id = $1 AND NOT used ORDER BY id`
	insertQuery     = `
		INSERT INTO coupons (code, discount_percent, max_items, kind, owner_user_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + couponColumns
	markUsedQuery = `UPDATE coupons SET used = true, used_at = $2 WHERE id = $1 AND NOT used`
	releaseQuery  = `UPDATE coupons SET used = false, used_at = NULL WHERE id = $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindUsable(ctx context.Context, code string, ownerUserID int) (Coupon, error) {
	c, err := scanCoupon(r.db.QueryRowContext(ctx, findUsableQuery, code, ownerUserID))
	if errors.Is(err, sql.ErrNoRows) {
		return Coupon{}, ErrNotFound
	}
	return c, err
}

func (r *PostgresRepository) ListUnused(ctx context.Context, ownerUserID int) ([]Coupon, error) {
	rows, err := r.db.QueryContext(ctx, listUnusedQuery, ownerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Coupon, 0)
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Create(ctx context.Context, c Coupon) (Coupon, error) {
	created, err := scanCoupon(r.db.QueryRowContext(ctx, insertQuery,
		c.Code, c.DiscountPercent, c.MaxItems, string(c.Kind), c.OwnerUserID))
	if err != nil {
		if strings.Contains(err.Error(), "coupons_code_key") {
			return Coupon{}, ErrCodeExists
		}
		return Coupon{}, err
	}
	return created, nil
}

func (r *PostgresRepository) MarkUsed(ctx context.Context, id int, at time.Time) error {
	res, err := r.db.ExecContext(ctx, markUsedQuery, id, at)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Release(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, releaseQuery, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCoupon(scanner rowScanner) (Coupon, error) {
	var (
		c         Coupon
		kind      string
		createdAt time.Time
		usedAt    sql.NullTime
	)
	if err := scanner.Scan(&c.ID, &c.Code, &c.DiscountPercent, &c.MaxItems, &kind, &c.Used,
		&c.OwnerUserID, &createdAt, &usedAt); err != nil {
		return Coupon{}, err
	}
	c.Kind = Kind(kind)
	c.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	if usedAt.Valid {
		ts := usedAt.Time.UTC().Format(time.RFC3339)
		c.UsedAt = &ts
	}
	return c, nil
}
