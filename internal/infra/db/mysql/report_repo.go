package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bryanwahyu/insight-bridge/internal/domain/analysis"
	domain "github.com/bryanwahyu/insight-bridge/internal/domain/reports"
)

type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = `id, owner_id, data_source_label, source_kind, summary, anomaly_count, raw_result, artifact_url, created_at`

// Create inserts a report. Plain INSERT: an id collision is an error, never an update.
func (r *ReportRepository) Create(ctx context.Context, rep *domain.Report) error {
	const q = `
INSERT INTO analysis_reports
  (` + reportColumns + `)
VALUES (?,?,?,?,?,?,?,?,?);`
	created := rep.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, q,
		rep.ID, rep.OwnerID, stringOrDash(rep.DataSourceLabel), string(rep.SourceKind),
		rep.Summary, rep.AnomalyCount, jsonOrEmpty(rep.RawResult), rep.ArtifactURL, created,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// ListRecent returns newest reports first for one owner. Equal timestamps
// fall back to insertion order through the seq column.
func (r *ReportRepository) ListRecent(ctx context.Context, owner string, limit int) ([]*domain.Report, error) {
	if limit <= 0 {
		limit = 10
	}
	const q = `
SELECT ` + reportColumns + `
FROM analysis_reports
WHERE owner_id=?
ORDER BY created_at DESC, seq DESC
LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("querying reports: %w", err)
	}
	defer rows.Close()

	var out []*domain.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

// Get by ID + owner
func (r *ReportRepository) Get(ctx context.Context, owner string, id domain.ReportID) (*domain.Report, error) {
	const q = `
SELECT ` + reportColumns + `
FROM analysis_reports
WHERE owner_id=? AND id=? LIMIT 1;`
	rep, err := scanReport(r.db.QueryRowContext(ctx, q, owner, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return rep, err
}

func (r *ReportRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(s scanner) (*domain.Report, error) {
	var rep domain.Report
	var kind string
	var raw []byte
	if err := s.Scan(
		&rep.ID, &rep.OwnerID, &rep.DataSourceLabel, &kind, &rep.Summary,
		&rep.AnomalyCount, &raw, &rep.ArtifactURL, &rep.CreatedAt,
	); err != nil {
		return nil, err
	}
	rep.SourceKind = analysis.SourceKind(kind)
	rep.RawResult = raw
	return &rep, nil
}
