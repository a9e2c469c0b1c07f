package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"newsletteradmin/internal/models"
)

type instanceRepository struct {
	db DB
}

// NewInstanceRepository creates a new instance repository
func NewInstanceRepository(db DB) InstanceRepository {
	return &instanceRepository{db: db}
}

// GetByID retrieves an instance by ID
func (r *instanceRepository) GetByID(ctx context.Context, id int) (*models.Instance, error) {
	query := `
		SELECT id, shortname, title
		FROM instances
		WHERE id = $1
	`

	instance := &models.Instance{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&instance.ID,
		&instance.Shortname,
		&instance.Title,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("instance %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instance: %w", err)
	}

	return instance, nil
}

// GetConfigSetting retrieves a keyed per-instance setting value
func (r *instanceRepository) GetConfigSetting(ctx context.Context, instanceID int, name string) (string, error) {
	query := `
		SELECT value
		FROM instance_config_settings
		WHERE name = $1 AND instance = $2
	`

	var value sql.NullString
	err := r.db.QueryRowContext(ctx, query, name, instanceID).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) || (err == nil && !value.Valid) {
		return "", fmt.Errorf("setting %s for instance %d: %w", name, instanceID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get instance setting: %w", err)
	}

	return value.String, nil
}
