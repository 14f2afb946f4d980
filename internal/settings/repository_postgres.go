package settings

import (
	"context"
	"database/sql"
	"time"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	getSettingsQuery    = `SELECT logo, promo_text, footer_text, updated_at FROM pdf_settings WHERE id = 1`
	updateSettingsQuery = `
		INSERT INTO pdf_settings (id, logo, promo_text, footer_text, updated_at)
		VALUES (1, $1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE
		SET logo = EXCLUDED.logo, promo_text = EXCLUDED.promo_text,
			footer_text = EXCLUDED.footer_text, updated_at = EXCLUDED.updated_at
		RETURNING logo, promo_text, footer_text, updated_at`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get returns empty settings when the row has not been seeded.
func (r *PostgresRepository) Get(ctx context.Context) (PdfSettings, error) {
	s, err := scanSettings(r.db.QueryRowContext(ctx, getSettingsQuery))
	if err == sql.ErrNoRows {
		return PdfSettings{}, nil
	}
	return s, err
}

func (r *PostgresRepository) Update(ctx context.Context, s PdfSettings) (PdfSettings, error) {
	return scanSettings(r.db.QueryRowContext(ctx, updateSettingsQuery, s.Logo, s.PromoText, s.FooterText))
}

func scanSettings(row *sql.Row) (PdfSettings, error) {
	var (
		s         PdfSettings
		updatedAt time.Time
	)
	if err := row.Scan(&s.Logo, &s.PromoText, &s.FooterText, &updatedAt); err != nil {
		return PdfSettings{}, err
	}
	s.UpdatedAt = updatedAt.UTC().Format(time.RFC3339)
	return s, nil
}
