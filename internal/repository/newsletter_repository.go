package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"newsletteradmin/internal/models"

	sq "github.com/Masterminds/squirrel"
)

type newsletterRepository struct {
	db DB
}

// NewNewsletterRepository creates a new newsletter repository
func NewNewsletterRepository(db DB) NewsletterRepository {
	return &newsletterRepository{db: db}
}

// GetByID retrieves a newsletter with its segment and instance
func (r *newsletterRepository) GetByID(ctx context.Context, id int) (*models.Newsletter, error) {
	query := `
		SELECT
			n.id, n.subject, n.html_content, n.text_content, n.campaign_segment, n.instance,
			n.campaign_id, n.send_date, n.createdate,
			s.id, s.title, s.shortname, s.cached_segment_size, s.instance, s.displayorder,
			i.id, i.shortname, i.title
		FROM newsletters n
		LEFT JOIN campaign_segments s ON s.id = n.campaign_segment
		LEFT JOIN instances i ON i.id = n.instance
		WHERE n.id = $1
	`

	var (
		newsletter        models.Newsletter
		segmentRef        sql.NullInt64
		instanceRef       sql.NullInt64
		campaignID        sql.NullString
		sendDate          sql.NullTime
		createDate        sql.NullTime
		segmentID         sql.NullInt64
		segmentTitle      sql.NullString
		segmentShortname  sql.NullString
		segmentSize       sql.NullInt64
		segmentInstance   sql.NullInt64
		segmentOrder      sql.NullInt64
		instanceID        sql.NullInt64
		instanceShortname sql.NullString
		instanceTitle     sql.NullString
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&newsletter.ID,
		&newsletter.Subject,
		&newsletter.HTMLContent,
		&newsletter.TextContent,
		&segmentRef,
		&instanceRef,
		&campaignID,
		&sendDate,
		&createDate,
		&segmentID,
		&segmentTitle,
		&segmentShortname,
		&segmentSize,
		&segmentInstance,
		&segmentOrder,
		&instanceID,
		&instanceShortname,
		&instanceTitle,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("newsletter %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get newsletter: %w", err)
	}

	newsletter.SegmentID = nullableInt(segmentRef)
	newsletter.InstanceID = nullableInt(instanceRef)
	if campaignID.Valid {
		newsletter.CampaignID = &campaignID.String
	}
	if sendDate.Valid {
		newsletter.SendDate = &sendDate.Time
	}
	if createDate.Valid {
		newsletter.CreatedAt = &createDate.Time
	}

	if instanceID.Valid {
		newsletter.Instance = &models.Instance{
			ID:        int(instanceID.Int64),
			Shortname: instanceShortname.String,
			Title:     instanceTitle.String,
		}
	}

	if segmentID.Valid {
		newsletter.Segment = &models.Segment{
			ID:                int(segmentID.Int64),
			Title:             segmentTitle.String,
			Shortname:         segmentShortname.String,
			CachedSegmentSize: int(segmentSize.Int64),
			InstanceID:        nullableInt(segmentInstance),
			DisplayOrder:      int(segmentOrder.Int64),
		}
		if newsletter.Instance != nil && newsletter.SameInstance(newsletter.Segment) {
			newsletter.Segment.Instance = newsletter.Instance
		}
	}

	return &newsletter, nil
}

// Create inserts a newsletter and assigns its ID
func (r *newsletterRepository) Create(ctx context.Context, newsletter *models.Newsletter) error {
	sqlStr, args, err := psql.Insert("newsletters").
		Columns("subject", "html_content", "text_content", "campaign_segment", "instance", "campaign_id", "createdate").
		Values(
			newsletter.Subject,
			newsletter.HTMLContent,
			newsletter.TextContent,
			newsletter.SegmentID,
			newsletter.InstanceID,
			newsletter.CampaignID,
			newsletter.CreatedAt,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build newsletter insert: %w", err)
	}

	err = r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&newsletter.ID)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("failed to create newsletter: %w", ErrInvalidReference)
	}
	if err != nil {
		return fmt.Errorf("failed to create newsletter: %w", err)
	}

	return nil
}

// Update writes the editable fields and the remote campaign id
func (r *newsletterRepository) Update(ctx context.Context, newsletter *models.Newsletter) error {
	sqlStr, args, err := psql.Update("newsletters").
		Set("subject", newsletter.Subject).
		Set("html_content", newsletter.HTMLContent).
		Set("text_content", newsletter.TextContent).
		Set("campaign_segment", newsletter.SegmentID).
		Set("instance", newsletter.InstanceID).
		Set("campaign_id", newsletter.CampaignID).
		Where(sq.Eq{"id": newsletter.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build newsletter update: %w", err)
	}

	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("failed to update newsletter: %w", ErrInvalidReference)
	}
	if err != nil {
		return fmt.Errorf("failed to update newsletter: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("newsletter %d: %w", newsletter.ID, ErrNotFound)
	}

	return nil
}
