package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"newsletteradmin/internal/models"

	sq "github.com/Masterminds/squirrel"
)

type segmentRepository struct {
	db DB
}

// NewSegmentRepository creates a new segment repository
func NewSegmentRepository(db DB) SegmentRepository {
	return &segmentRepository{db: db}
}

func (r *segmentRepository) selectSegments() sq.SelectBuilder {
	return psql.Select(
		"s.id", "s.title", "s.shortname", "s.cached_segment_size", "s.instance", "s.displayorder",
		"i.id", "i.shortname", "i.title",
	).
		From("campaign_segments s").
		LeftJoin("instances i ON i.id = s.instance")
}

// ListForCatalog retrieves the selectable segment catalog
func (r *segmentRepository) ListForCatalog(ctx context.Context, instanceID *int) ([]*models.Segment, error) {
	query := r.selectSegments().OrderBy("s.instance", "s.displayorder")
	if instanceID != nil {
		query = query.Where(sq.Eq{"s.instance": *instanceID})
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build segment query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}
	defer rows.Close()

	segments := []*models.Segment{}
	for rows.Next() {
		segment, err := scanSegment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan segment: %w", err)
		}
		segments = append(segments, segment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate segments: %w", err)
	}

	return segments, nil
}

// GetByID retrieves a segment by ID
func (r *segmentRepository) GetByID(ctx context.Context, id int) (*models.Segment, error) {
	sqlStr, args, err := r.selectSegments().Where(sq.Eq{"s.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build segment query: %w", err)
	}

	segment, err := scanSegment(r.db.QueryRowContext(ctx, sqlStr, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("segment %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get segment: %w", err)
	}

	return segment, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSegment(row rowScanner) (*models.Segment, error) {
	var (
		segment           models.Segment
		segmentInstance   sql.NullInt64
		instanceID        sql.NullInt64
		instanceShortname sql.NullString
		instanceTitle     sql.NullString
	)

	err := row.Scan(
		&segment.ID,
		&segment.Title,
		&segment.Shortname,
		&segment.CachedSegmentSize,
		&segmentInstance,
		&segment.DisplayOrder,
		&instanceID,
		&instanceShortname,
		&instanceTitle,
	)
	if err != nil {
		return nil, err
	}

	segment.InstanceID = nullableInt(segmentInstance)
	if instanceID.Valid {
		segment.Instance = &models.Instance{
			ID:        int(instanceID.Int64),
			Shortname: instanceShortname.String,
			Title:     instanceTitle.String,
		}
	}

	return &segment, nil
}
