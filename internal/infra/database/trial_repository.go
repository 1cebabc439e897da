package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xavierca1/funnelsync/internal/entity"
)

type TrialRepository struct {
	DB *sql.DB
}

func NewTrialRepository(db *sql.DB) *TrialRepository {
	return &TrialRepository{DB: db}
}

// FindCheckable returns attended trials that already carry a platform
// member id, oldest first. limit <= 0 means no limit.
func (r *TrialRepository) FindCheckable(ctx context.Context, limit int) ([]*entity.Trial, error) {
	query := `
		SELECT id, email, name, city, country, external_member_id, attended, created_at, updated_at
		FROM trials
		WHERE attended = TRUE AND external_member_id <> ''
		ORDER BY created_at
	`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkable trials: %w", err)
	}
	defer rows.Close()

	var trials []*entity.Trial
	for rows.Next() {
		trial, err := scanTrial(rows)
		if err != nil {
			return nil, err
		}
		trials = append(trials, trial)
	}
	return trials, rows.Err()
}

func (r *TrialRepository) FindByEmail(ctx context.Context, email string) (*entity.Trial, error) {
	query := `
		SELECT id, email, name, city, country, external_member_id, attended, created_at, updated_at
		FROM trials
		WHERE email = LOWER($1)
		ORDER BY created_at DESC
		LIMIT 1
	`

	row := r.DB.QueryRowContext(ctx, query, email)
	trial, err := scanTrial(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return trial, nil
}

func (r *TrialRepository) SetExternalMemberID(ctx context.Context, trialID, externalMemberID string) error {
	query := `UPDATE trials SET external_member_id = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.DB.ExecContext(ctx, query, externalMemberID, trialID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("trial %s not found", trialID)
	}
	return nil
}

func (r *TrialRepository) Upsert(ctx context.Context, trial *entity.Trial) error {
	query := `
		INSERT INTO trials (id, email, name, city, country, external_member_id, attended, created_at, updated_at)
		VALUES ($1, LOWER($2), $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (email)
		DO UPDATE SET
			name = COALESCE(NULLIF(EXCLUDED.name, ''), trials.name),
			attended = trials.attended OR EXCLUDED.attended,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	return r.DB.QueryRowContext(ctx, query,
		trial.ID,
		trial.Email,
		trial.Name,
		trial.City,
		trial.Country,
		trial.ExternalMemberID,
		trial.Attended,
	).Scan(&trial.ID, &trial.CreatedAt, &trial.UpdatedAt)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrial(row rowScanner) (*entity.Trial, error) {
	var trial entity.Trial
	err := row.Scan(
		&trial.ID,
		&trial.Email,
		&trial.Name,
		&trial.City,
		&trial.Country,
		&trial.ExternalMemberID,
		&trial.Attended,
		&trial.CreatedAt,
		&trial.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &trial, nil
}
