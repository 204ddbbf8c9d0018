// Package sqlite is a single-file report store for local development and
// small single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bryanwahyu/insight-bridge/internal/domain/analysis"
	domain "github.com/bryanwahyu/insight-bridge/internal/domain/reports"
)

const schema = `
CREATE TABLE IF NOT EXISTS analysis_reports (
  id                TEXT    PRIMARY KEY,
  owner_id          TEXT    NOT NULL,
  data_source_label TEXT    NOT NULL,
  source_kind       TEXT    NOT NULL,
  summary           TEXT    NOT NULL,
  anomaly_count     INTEGER NOT NULL,
  raw_result        TEXT    NOT NULL,
  artifact_url      TEXT    NOT NULL DEFAULT '',
  created_at_ns     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_owner_created
  ON analysis_reports (owner_id, created_at_ns DESC, rowid DESC);`

// Open opens (or creates) the database file at path and ensures the table exists.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer; WAL lets readers proceed
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return db, nil
}

type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Create(ctx context.Context, rep *domain.Report) error {
	const q = `
INSERT INTO analysis_reports
  (id, owner_id, data_source_label, source_kind, summary, anomaly_count, raw_result, artifact_url, created_at_ns)
VALUES (?,?,?,?,?,?,?,?,?);`
	raw := string(rep.RawResult)
	if raw == "" {
		raw = "{}"
	}
	created := rep.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, q,
		string(rep.ID), rep.OwnerID, rep.DataSourceLabel, string(rep.SourceKind),
		rep.Summary, rep.AnomalyCount, raw, rep.ArtifactURL, created.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// ListRecent breaks created_at ties by rowid, i.e. insertion order.
func (r *ReportRepository) ListRecent(ctx context.Context, owner string, limit int) ([]*domain.Report, error) {
	if limit <= 0 {
		limit = 10
	}
	const q = `
SELECT id, owner_id, data_source_label, source_kind, summary, anomaly_count, raw_result, artifact_url, created_at_ns
FROM analysis_reports
WHERE owner_id=?
ORDER BY created_at_ns DESC, rowid DESC
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

func (r *ReportRepository) Get(ctx context.Context, owner string, id domain.ReportID) (*domain.Report, error) {
	const q = `
SELECT id, owner_id, data_source_label, source_kind, summary, anomaly_count, raw_result, artifact_url, created_at_ns
FROM analysis_reports
WHERE owner_id=? AND id=? LIMIT 1;`
	rep, err := scanReport(r.db.QueryRowContext(ctx, q, owner, string(id)))
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
	var id, kind, raw string
	var ns int64
	if err := s.Scan(&id, &rep.OwnerID, &rep.DataSourceLabel, &kind, &rep.Summary,
		&rep.AnomalyCount, &raw, &rep.ArtifactURL, &ns); err != nil {
		return nil, err
	}
	rep.ID = domain.ReportID(id)
	rep.SourceKind = analysis.SourceKind(kind)
	rep.RawResult = []byte(raw)
	rep.CreatedAt = time.Unix(0, ns).UTC()
	return &rep, nil
}
