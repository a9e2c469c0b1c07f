package repository

import (
	"context"
	"database/sql"
	"errors"

	"newsletteradmin/internal/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a row addressed by key does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidReference is returned when a write points at a missing row
	ErrInvalidReference = errors.New("invalid reference")
)

// psql builds Postgres ($n) placeholders
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// NewsletterRepository defines newsletter data access operations
type NewsletterRepository interface {
	GetByID(ctx context.Context, id int) (*models.Newsletter, error)
	Create(ctx context.Context, newsletter *models.Newsletter) error
	Update(ctx context.Context, newsletter *models.Newsletter) error
}

// SegmentRepository defines campaign segment data access operations
type SegmentRepository interface {
	// ListForCatalog returns segments ordered by instance then display order.
	// A nil instanceID lists segments of every instance.
	ListForCatalog(ctx context.Context, instanceID *int) ([]*models.Segment, error)
	GetByID(ctx context.Context, id int) (*models.Segment, error)
}

// InstanceRepository defines instance and per-instance setting access
type InstanceRepository interface {
	GetByID(ctx context.Context, id int) (*models.Instance, error)
	GetConfigSetting(ctx context.Context, instanceID int, name string) (string, error)
}

// FaultRepository stores synchronization fault reports
type FaultRepository interface {
	Create(ctx context.Context, fault *models.SyncFault) error
	ListRecent(ctx context.Context, limit int) ([]*models.SyncFault, error)
}

// DB is a wrapper around *sql.DB to allow passing in transaction
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// isForeignKeyViolation reports a Postgres foreign_key_violation (23503)
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
