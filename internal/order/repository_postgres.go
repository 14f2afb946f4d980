package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

const (
	orderColumns = `id, ref, user_id, coupon_id, COALESCE(coupon_code, ''), subtotal, discount, total, currency,
		status, COALESCE(external_ref, ''), COALESCE(provider_payment_id, ''), created_at, updated_at`

	insertOrderQuery = `
		INSERT INTO orders (ref, user_id, coupon_id, coupon_code, subtotal, discount, total, currency, status)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`
	insertLineQuery = `
		INSERT INTO order_lines (order_id, position, product_id, title, unit_price, discount)
		VALUES ($1, $2, $3, $4, $5, $6)`
	getOrderByRefQuery = `SELECT ` + orderColumns + ` FROM orders WHERE ref = $1`
	listByUserQuery    = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY id DESC`
	linesQuery         = `
		SELECT order_id, product_id, title, unit_price, discount
		FROM order_lines
		WHERE order_id = ANY($1::int[])
		ORDER BY order_id, position`
	setExternalRefQuery = `UPDATE orders SET external_ref = $2, updated_at = now() WHERE ref = $1`
	markPaidQuery       = `
		UPDATE orders SET status = 'paid', provider_payment_id = $2, updated_at = now()
		WHERE ref = $1 AND status = 'pending'`
	markFailedQuery = `UPDATE orders SET status = 'failed', updated_at = now() WHERE ref = $1 AND status = 'pending'`
	purchasedQuery  = `
		SELECT DISTINCT ol.product_id
		FROM order_lines ol
		JOIN orders o ON o.id = ol.order_id
		WHERE o.user_id = $1 AND o.status = 'paid'
		ORDER BY ol.product_id`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create writes the order and its lines in one transaction.
func (r *PostgresRepository) Create(ctx context.Context, o Order) (Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Order{}, err
	}
	defer tx.Rollback()

	var couponID any
	if o.CouponID != nil {
		couponID = *o.CouponID
	}
	var createdAt, updatedAt time.Time
	err = tx.QueryRowContext(ctx, insertOrderQuery, o.Ref, o.UserID, couponID, o.CouponCode,
		o.Subtotal, o.Discount, o.Total, o.Currency, string(o.Status)).Scan(&o.ID, &createdAt, &updatedAt)
	if err != nil {
		return Order{}, err
	}
	for i, l := range o.Lines {
		if _, err := tx.ExecContext(ctx, insertLineQuery, o.ID, i, l.ProductID, l.Title, l.UnitPrice, l.Discount); err != nil {
			return Order{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return Order{}, err
	}
	o.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	o.UpdatedAt = updatedAt.UTC().Format(time.RFC3339)
	return o, nil
}

func (r *PostgresRepository) GetByRef(ctx context.Context, ref string) (Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, getOrderByRefQuery, ref))
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	orders := []Order{o}
	if err := r.attachLines(ctx, orders); err != nil {
		return Order{}, err
	}
	return orders[0], nil
}

func (r *PostgresRepository) SetExternalRef(ctx context.Context, ref, externalRef string) error {
	res, err := r.db.ExecContext(ctx, setExternalRefQuery, ref, externalRef)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) MarkPaid(ctx context.Context, ref, providerPaymentID string) (Order, error) {
	res, err := r.db.ExecContext(ctx, markPaidQuery, ref, providerPaymentID)
	if err != nil {
		return Order{}, err
	}
	o, err := r.GetByRef(ctx, ref)
	if err != nil {
		return Order{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return o, ErrInvalidTransition
	}
	return o, nil
}

func (r *PostgresRepository) MarkFailed(ctx context.Context, ref string) error {
	res, err := r.db.ExecContext(ctx, markFailedQuery, ref)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByRef(ctx, ref); err != nil {
			return err
		}
		return ErrInvalidTransition
	}
	return nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, listByUserQuery, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachLines(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *PostgresRepository) PurchasedProductIDs(ctx context.Context, userID int) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, purchasedQuery, userID)
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

// attachLines loads the lines of all orders with a single query.
func (r *PostgresRepository) attachLines(ctx context.Context, orders []Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int, len(orders))
	index := make(map[int]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
		orders[i].Lines = []Line{}
	}

	rows, err := r.db.QueryContext(ctx, linesQuery, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			orderID int
			l       Line
		)
		if err := rows.Scan(&orderID, &l.ProductID, &l.Title, &l.UnitPrice, &l.Discount); err != nil {
			return err
		}
		if i, ok := index[orderID]; ok {
			orders[i].Lines = append(orders[i].Lines, l)
		}
	}
	return rows.Err()
}

func scanOrder(scanner rowScanner) (Order, error) {
	var (
		o         Order
		couponID  sql.NullInt64
		status    string
		createdAt time.Time
		updatedAt time.Time
	)
	if err := scanner.Scan(&o.ID, &o.Ref, &o.UserID, &couponID, &o.CouponCode, &o.Subtotal, &o.Discount,
		&o.Total, &o.Currency, &status, &o.ExternalRef, &o.ProviderPaymentID, &createdAt, &updatedAt); err != nil {
		return Order{}, err
	}
	if couponID.Valid {
		id := int(couponID.Int64)
		o.CouponID = &id
	}
	o.Status = Status(status)
	o.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	o.UpdatedAt = updatedAt.UTC().Format(time.RFC3339)
	return o, nil
}
