package mysql

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/insight-bridge/internal/domain/analysis"
	domain "github.com/bryanwahyu/insight-bridge/internal/domain/reports"
)

var cols = []string{"id", "owner_id", "data_source_label", "source_kind", "summary", "anomaly_count", "raw_result", "artifact_url", "created_at"}

func TestReportRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewReportRepository(db)
	at := time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO analysis_reports")).
		WithArgs("r-1", "alice", "sales.csv", "upload", "3 anomalies detected", 3,
			`{"summary":"3 anomalies detected","anomaly_count":3}`, "", at).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = repo.Create(context.Background(), &domain.Report{
		ID:              "r-1",
		OwnerID:         "alice",
		DataSourceLabel: "sales.csv",
		SourceKind:      analysis.SourceUpload,
		Summary:         "3 anomalies detected",
		AnomalyCount:    3,
		RawResult:       []byte(`{"summary":"3 anomalies detected","anomaly_count":3}`),
		CreatedAt:       at,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepository_CreateError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO analysis_reports")).
		WillReturnError(errors.New("connection refused"))

	err = NewReportRepository(db).Create(context.Background(), &domain.Report{ID: "r-1", OwnerID: "alice"})
	assert.ErrorContains(t, err, "connection refused")
}

func TestReportRepository_ListRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(cols).
		AddRow("r-2", "alice", "simulate_financial_data", "simulated", "ok", 1, []byte(`{"summary":"ok","anomaly_count":1}`), "", now).
		AddRow("r-1", "alice", "sales.csv", "upload", "ok", 0, []byte(`{"summary":"ok","anomaly_count":0}`), "http://minio/x", now.Add(-time.Minute))

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, seq DESC")).
		WithArgs("alice", 2).
		WillReturnRows(rows)

	list, err := NewReportRepository(db).ListRecent(context.Background(), "alice", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, domain.ReportID("r-2"), list[0].ID)
	assert.Equal(t, analysis.SourceSimulated, list[0].SourceKind)
	assert.Equal(t, "http://minio/x", list[1].ArtifactURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepository_GetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM analysis_reports")).
		WithArgs("alice", "missing").
		WillReturnRows(sqlmock.NewRows(cols))

	_, err = NewReportRepository(db).Get(context.Background(), "alice", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCheckSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT seq, id, owner_id")).
		WillReturnRows(sqlmock.NewRows(append([]string{"seq"}, cols...)))
	require.NoError(t, CheckSchema(context.Background(), db))

	mock.ExpectQuery(regexp.QuoteMeta("FROM analysis_reports LIMIT 0")).
		WillReturnError(errors.New("Table 'insight.analysis_reports' doesn't exist"))
	assert.ErrorContains(t, CheckSchema(context.Background(), db), "apply schema.sql")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepository_ListRecentSameTimestampKeepsInsertOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// id DESC would list r-b first; r-a carries the higher seq.
	at := time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(cols).
		AddRow("r-a", "alice", "sales.csv", "upload", "ok", 0, []byte(`{}`), "", at).
		AddRow("r-b", "alice", "sales.csv", "upload", "ok", 0, []byte(`{}`), "", at)

	mock.ExpectQuery(`ORDER BY created_at DESC, seq DESC\s+LIMIT \?`).
		WithArgs("alice", 2).
		WillReturnRows(rows)

	list, err := NewReportRepository(db).ListRecent(context.Background(), "alice", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, domain.ReportID("r-a"), list[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
