package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/lib/pq"

	"github.com/xavierca1/funnelsync/internal/entity"
)

// ConversionRepository persists funnel-stage transitions. City is stored
// as '' (not NULL) so the unique index over the identity key stays simple;
// a unique index on (external_member_id, city, membership_type = 'course')
// allows one course row and one terminal row per key and nothing else.
type ConversionRepository struct {
	DB *sql.DB
}

func NewConversionRepository(db *sql.DB) *ConversionRepository {
	return &ConversionRepository{DB: db}
}

func (r *ConversionRepository) FindAll(ctx context.Context) ([]*entity.ConversionRecord, error) {
	query := `
		SELECT id, external_member_id, city, member_since, membership_type, source, had_course_step, created_at
		FROM conversions
		ORDER BY created_at
	`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversions: %w", err)
	}
	defer rows.Close()

	return scanConversions(rows)
}

func (r *ConversionRepository) FindByExternalMemberID(ctx context.Context, externalMemberID string) ([]*entity.ConversionRecord, error) {
	query := `
		SELECT id, external_member_id, city, member_since, membership_type, source, had_course_step, created_at
		FROM conversions
		WHERE external_member_id = $1
		ORDER BY created_at
	`

	rows, err := r.DB.QueryContext(ctx, query, externalMemberID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversions for %s: %w", externalMemberID, err)
	}
	defer rows.Close()

	return scanConversions(rows)
}

// Upsert inserts the record; a conflicting row for the same identity key
// and stage leaves the table untouched and reports created=false. That
// no-op is the idempotency guarantee the sync leans on — also against a
// concurrently scheduled run.
func (r *ConversionRepository) Upsert(ctx context.Context, record *entity.ConversionRecord) (bool, error) {
	query := `
		INSERT INTO conversions (id, external_member_id, city, member_since, membership_type, source, had_course_step, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (external_member_id, city, (membership_type = 'course'))
		DO NOTHING
	`

	result, err := r.DB.ExecContext(ctx, query,
		record.ID,
		record.ExternalMemberID,
		record.City,
		record.MemberSince,
		record.MembershipType,
		record.Source,
		record.HadCourseStep,
		record.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			// Lost a race against another insert of the same key.
			return false, nil
		}
		log.Printf("❌ [DB] conversion upsert failed: %v", err)
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *ConversionRepository) Update(ctx context.Context, id string, patch entity.ConversionPatch) error {
	query := `
		UPDATE conversions
		SET member_since = $1, membership_type = $2, source = $3, had_course_step = $4
		WHERE id = $5
	`

	result, err := r.DB.ExecContext(ctx, query,
		patch.MemberSince,
		patch.MembershipType,
		patch.Source,
		patch.HadCourseStep,
		id,
	)
	if err != nil {
		log.Printf("❌ [DB] conversion update failed: %v", err)
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("conversion %s not found", id)
	}
	return nil
}

func scanConversions(rows *sql.Rows) ([]*entity.ConversionRecord, error) {
	var records []*entity.ConversionRecord
	for rows.Next() {
		var record entity.ConversionRecord
		if err := rows.Scan(
			&record.ID,
			&record.ExternalMemberID,
			&record.City,
			&record.MemberSince,
			&record.MembershipType,
			&record.Source,
			&record.HadCourseStep,
			&record.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, &record)
	}
	return records, rows.Err()
}
