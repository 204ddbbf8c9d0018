package reports

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no report matches owner + id.
var ErrNotFound = errors.New("report not found")

// Repository port (append-only report persistence)
type Repository interface {
	// Create inserts r in a single statement. It never overwrites.
	Create(ctx context.Context, r *Report) error
	// ListRecent returns the owner's newest reports first, at most limit.
	ListRecent(ctx context.Context, owner string, limit int) ([]*Report, error)
	Get(ctx context.Context, owner string, id ReportID) (*Report, error)
	Ping(ctx context.Context) error
}

// ArtifactStore port (archive of uploaded datasets)
type ArtifactStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}
