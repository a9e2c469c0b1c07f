package repository

import (
	"context"
	"database/sql"
	"fmt"

	"newsletteradmin/internal/models"
)

type faultRepository struct {
	db DB
}

// NewFaultRepository creates a new sync fault repository
func NewFaultRepository(db DB) FaultRepository {
	return &faultRepository{db: db}
}

// Create stores a fault report. Redelivered reports are ignored.
func (r *faultRepository) Create(ctx context.Context, fault *models.SyncFault) error {
	query := `
		INSERT INTO sync_faults (id, newsletter_id, kind, error, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		fault.ID,
		fault.NewsletterID,
		fault.Kind,
		fault.Error,
		fault.OccurredAt,
	)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("failed to create sync fault: %w", ErrInvalidReference)
	}
	if err != nil {
		return fmt.Errorf("failed to create sync fault: %w", err)
	}

	return nil
}

// ListRecent retrieves the newest fault reports first
func (r *faultRepository) ListRecent(ctx context.Context, limit int) ([]*models.SyncFault, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	query := `
		SELECT id, newsletter_id, kind, error, occurred_at
		FROM sync_faults
		ORDER BY occurred_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync faults: %w", err)
	}
	defer rows.Close()

	faults := []*models.SyncFault{}
	for rows.Next() {
		fault := &models.SyncFault{}
		var newsletterID sql.NullInt64
		err := rows.Scan(
			&fault.ID,
			&newsletterID,
			&fault.Kind,
			&fault.Error,
			&fault.OccurredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync fault: %w", err)
		}
		fault.NewsletterID = nullableInt(newsletterID)
		faults = append(faults, fault)
	}

	return faults, nil
}
