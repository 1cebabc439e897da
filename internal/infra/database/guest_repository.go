package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xavierca1/funnelsync/internal/entity"
)

type GuestRepository struct {
	DB *sql.DB
}

func NewGuestRepository(db *sql.DB) *GuestRepository {
	return &GuestRepository{DB: db}
}

// FindUnconverted returns guests without converted_at, oldest first.
// limit <= 0 means no limit.
func (r *GuestRepository) FindUnconverted(ctx context.Context, limit int) ([]*entity.Guest, error) {
	query := `
		SELECT id, external_member_id, tenant_code, city, credits_left, package_size, start_date, converted_at, created_at, updated_at
		FROM guests
		WHERE converted_at IS NULL
		ORDER BY created_at
	`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load unconverted guests: %w", err)
	}
	defer rows.Close()

	var guests []*entity.Guest
	for rows.Next() {
		guest, err := scanGuest(rows)
		if err != nil {
			return nil, err
		}
		guests = append(guests, guest)
	}
	return guests, rows.Err()
}

func (r *GuestRepository) FindByExternalMemberID(ctx context.Context, tenantCode, externalMemberID string) (*entity.Guest, error) {
	query := `
		SELECT id, external_member_id, tenant_code, city, credits_left, package_size, start_date, converted_at, created_at, updated_at
		FROM guests
		WHERE tenant_code = $1 AND external_member_id = $2
	`

	row := r.DB.QueryRowContext(ctx, query, tenantCode, externalMemberID)
	guest, err := scanGuest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return guest, nil
}

// Upsert inserts the guest or refreshes package and city data on the
// existing row. Rows with converted_at set are terminal and never change.
func (r *GuestRepository) Upsert(ctx context.Context, guest *entity.Guest) error {
	if guest.ID == "" {
		guest.ID = uuid.New().String()
	}

	query := `
		INSERT INTO guests (id, external_member_id, tenant_code, city, credits_left, package_size, start_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (tenant_code, external_member_id)
		DO UPDATE SET
			city = COALESCE(NULLIF(EXCLUDED.city, ''), guests.city),
			credits_left = EXCLUDED.credits_left,
			package_size = EXCLUDED.package_size,
			start_date = COALESCE(EXCLUDED.start_date, guests.start_date),
			updated_at = NOW()
		WHERE guests.converted_at IS NULL
		RETURNING id, created_at, updated_at
	`

	err := r.DB.QueryRowContext(ctx, query,
		guest.ID,
		guest.ExternalMemberID,
		guest.TenantCode,
		guest.City,
		guest.CreditsLeft,
		guest.PackageSize,
		nullTime(guest.StartDate),
	).Scan(&guest.ID, &guest.CreatedAt, &guest.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		// Conflict on a converted guest: the WHERE clause blocked the
		// update, which is exactly what we want.
		return nil
	}
	return err
}

func (r *GuestRepository) UpdateCredits(ctx context.Context, tenantCode, externalMemberID string, creditsLeft int) error {
	query := `
		UPDATE guests SET credits_left = $1, updated_at = NOW()
		WHERE tenant_code = $2 AND external_member_id = $3 AND converted_at IS NULL
	`
	_, err := r.DB.ExecContext(ctx, query, creditsLeft, tenantCode, externalMemberID)
	return err
}

// MarkConverted stamps converted_at once; re-running the sync hits the
// IS NULL guard and changes nothing.
func (r *GuestRepository) MarkConverted(ctx context.Context, tenantCode, externalMemberID string, when time.Time) error {
	query := `
		UPDATE guests SET converted_at = $1, updated_at = NOW()
		WHERE tenant_code = $2 AND external_member_id = $3 AND converted_at IS NULL
	`
	_, err := r.DB.ExecContext(ctx, query, when, tenantCode, externalMemberID)
	return err
}

func scanGuest(row rowScanner) (*entity.Guest, error) {
	var (
		guest     entity.Guest
		start     sql.NullTime
		converted sql.NullTime
	)
	err := row.Scan(
		&guest.ID,
		&guest.ExternalMemberID,
		&guest.TenantCode,
		&guest.City,
		&guest.CreditsLeft,
		&guest.PackageSize,
		&start,
		&converted,
		&guest.CreatedAt,
		&guest.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if start.Valid {
		guest.StartDate = &start.Time
	}
	if converted.Valid {
		guest.ConvertedAt = &converted.Time
	}
	return &guest, nil
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
