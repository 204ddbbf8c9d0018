package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/insight-bridge/internal/application"
	"github.com/bryanwahyu/insight-bridge/internal/application/ingest"
	domain "github.com/bryanwahyu/insight-bridge/internal/domain/analysis"
	"github.com/bryanwahyu/insight-bridge/internal/domain/reports"
)

const (
	DefaultHistoryLimit   = 10
	MaxHistoryLimit       = 100
	DefaultArchiveTimeout = 5 * time.Second
)

// Service runs the analyze pipeline: normalize -> engine -> persist.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	Engine  domain.Engine
	Reports reports.Repository
	// Archive is optional; nil disables dataset archiving.
	Archive reports.ArtifactStore
	// ArchiveTimeout caps each archive write, DefaultArchiveTimeout when zero.
	ArchiveTimeout time.Duration
	Clock          application.Clock
	Logger         *slog.Logger
	// Observe, when set, is called once per analyze call with the source
	// kind, outcome kind ("ok" or an error kind) and engine latency.
	Observe func(kind domain.SourceKind, outcome string, engine time.Duration)
}

// Outcome is returned by the analyze operations.
type Outcome struct {
	ReportID reports.ReportID `json:"report_id"`
	Result   domain.Result    `json:"result"`
}

// AnalyzeSimulated runs the built-in simulation data set.
func (s *Service) AnalyzeSimulated(ctx context.Context, owner string) (Outcome, error) {
	return s.run(ctx, owner, ingest.Simulated(), "")
}

// AnalyzeUpload analyzes an uploaded table.
func (s *Service) AnalyzeUpload(ctx context.Context, owner, filename string, content []byte) (Outcome, error) {
	if err := requireOwner(owner); err != nil {
		return Outcome{}, err
	}
	req, err := ingest.Upload(filename, content)
	if err != nil {
		return Outcome{}, err
	}
	artifactURL := s.archive(ctx, owner, req.DataSourceLabel, content)
	return s.run(ctx, owner, req, artifactURL)
}

// AnalyzeLiveSource relays a connection descriptor and query to the engine.
func (s *Service) AnalyzeLiveSource(ctx context.Context, owner, descriptor, query string) (Outcome, error) {
	if err := requireOwner(owner); err != nil {
		return Outcome{}, err
	}
	req, err := ingest.LiveSource(descriptor, query)
	if err != nil {
		return Outcome{}, err
	}
	return s.run(ctx, owner, req, "")
}

// ListRecent returns at most limit of the owner's reports, newest first.
// limit must be positive; values above MaxHistoryLimit are capped.
func (s *Service) ListRecent(ctx context.Context, owner string, limit int) ([]*reports.Report, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be a positive integer", domain.ErrInvalidInput)
	}
	list, err := s.Reports.ListRecent(ctx, owner, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("%w: list reports: %v", domain.ErrPersistenceUnavailable, err)
	}
	return list, nil
}

// Get returns one report owned by owner.
func (s *Service) Get(ctx context.Context, owner string, id reports.ReportID) (*reports.Report, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	r, err := s.Reports.Get(ctx, owner, id)
	if err != nil {
		if errors.Is(err, reports.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: get report: %v", domain.ErrPersistenceUnavailable, err)
	}
	return r, nil
}

// ClampLimit caps limit at MaxHistoryLimit.
func ClampLimit(limit int) int {
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}

func (s *Service) run(ctx context.Context, owner string, req domain.Request, artifactURL string) (out Outcome, err error) {
	kind := req.Kind()
	var engineTook time.Duration
	defer func() {
		if s.Observe != nil {
			outcome := "ok"
			if err != nil {
				outcome = domain.KindOf(err)
			}
			s.Observe(kind, outcome, engineTook)
		}
	}()

	if err := requireOwner(owner); err != nil {
		return Outcome{}, err
	}
	// fail fast sebelum manggil engine
	if err := req.Validate(); err != nil {
		return Outcome{}, err
	}

	start := time.Now()
	res, err := s.Engine.Analyze(ctx, req)
	engineTook = time.Since(start)
	if err != nil {
		s.logger().WarnContext(ctx, "engine call failed",
			"owner", owner, "source", kind, "label", req.DataSourceLabel,
			"kind", domain.KindOf(err), "error", err)
		return Outcome{}, err
	}

	report := &reports.Report{
		ID:              reports.ReportID(uuid.New().String()),
		OwnerID:         owner,
		DataSourceLabel: req.DataSourceLabel,
		SourceKind:      kind,
		Summary:         res.Summary,
		AnomalyCount:    res.AnomalyCount,
		RawResult:       res.Raw,
		ArtifactURL:     artifactURL,
		CreatedAt:       s.now(),
	}
	// The analysis already happened; record it even if the caller went away.
	if err := s.Reports.Create(context.WithoutCancel(ctx), report); err != nil {
		s.logger().ErrorContext(ctx, "report persist failed",
			"owner", owner, "source", kind, "label", req.DataSourceLabel, "error", err)
		return Outcome{}, fmt.Errorf("%w: analysis succeeded but could not be saved: %v",
			domain.ErrPersistenceUnavailable, err)
	}

	s.logger().InfoContext(ctx, "analysis stored",
		"owner", owner, "report_id", report.ID, "source", kind,
		"label", req.DataSourceLabel, "anomalies", res.AnomalyCount,
		"engine_ms", engineTook.Milliseconds())
	return Outcome{ReportID: report.ID, Result: res}, nil
}

// archive copies the uploaded dataset to the artifact store. Failures and
// timeouts are logged only; the analysis goes ahead without an artifact URL.
func (s *Service) archive(ctx context.Context, owner, filename string, content []byte) string {
	if s.Archive == nil {
		return ""
	}
	timeout := s.ArchiveTimeout
	if timeout <= 0 {
		timeout = DefaultArchiveTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	now := s.now()
	key := fmt.Sprintf("%s/uploads/%s/%s-%s", owner, now.Format("2006/01/02"), uuid.New().String(), filename)
	url, err := s.Archive.Put(ctx, key, "text/csv", content)
	if err != nil {
		s.logger().WarnContext(ctx, "dataset archive failed", "owner", owner, "key", key, "error", err)
		return ""
	}
	return url
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return application.SystemClock{}.Now()
	}
	return s.Clock.Now()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func requireOwner(owner string) error {
	if strings.TrimSpace(owner) == "" {
		return domain.ErrUnauthenticated
	}
	return nil
}
