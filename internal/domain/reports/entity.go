package reports

import (
	"encoding/json"
	"time"

	"github.com/bryanwahyu/insight-bridge/internal/domain/analysis"
)

// ReportID identifier type
type ReportID string

// Report is the immutable record of one completed analysis. It is written
// once and never updated.
type Report struct {
	ID              ReportID            `json:"id"`
	OwnerID         string              `json:"owner_id"`
	DataSourceLabel string              `json:"data_source_label"`
	SourceKind      analysis.SourceKind `json:"source_kind"`
	Summary         string              `json:"summary"`
	AnomalyCount    int                 `json:"anomaly_count"`
	RawResult       json.RawMessage     `json:"raw_result,omitempty"`
	ArtifactURL     string              `json:"artifact_url,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

// Summary is the history-feed view of a Report (no raw document).
type Summary struct {
	ID              ReportID            `json:"id"`
	DataSourceLabel string              `json:"data_source_label"`
	SourceKind      analysis.SourceKind `json:"source_kind"`
	Summary         string              `json:"summary"`
	AnomalyCount    int                 `json:"anomaly_count"`
	ArtifactURL     string              `json:"artifact_url,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

func (r *Report) ToSummary() Summary {
	return Summary{
		ID:              r.ID,
		DataSourceLabel: r.DataSourceLabel,
		SourceKind:      r.SourceKind,
		Summary:         r.Summary,
		AnomalyCount:    r.AnomalyCount,
		ArtifactURL:     r.ArtifactURL,
		CreatedAt:       r.CreatedAt,
	}
}
