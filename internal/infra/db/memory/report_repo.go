// Package memory is an in-process report store for local runs and tests.
// Reports are lost on restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domain "github.com/bryanwahyu/insight-bridge/internal/domain/reports"
)

type entry struct {
	seq    uint64
	report domain.Report
}

type ReportRepository struct {
	mu      sync.RWMutex
	seq     uint64
	byID    map[domain.ReportID]*entry
	byOwner map[string][]*entry
}

func NewReportRepository() *ReportRepository {
	return &ReportRepository{
		byID:    make(map[domain.ReportID]*entry),
		byOwner: make(map[string][]*entry),
	}
}

// Create stores a copy of r. Duplicate ids are rejected.
func (m *ReportRepository) Create(ctx context.Context, r *domain.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[r.ID]; ok {
		return fmt.Errorf("duplicate report id %s", r.ID)
	}
	m.seq++
	e := &entry{seq: m.seq, report: cloneReport(r)}
	m.byID[r.ID] = e
	m.byOwner[r.OwnerID] = append(m.byOwner[r.OwnerID], e)
	return nil
}

// ListRecent orders by created_at desc, then insertion order desc.
func (m *ReportRepository) ListRecent(ctx context.Context, owner string, limit int) ([]*domain.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	entries := append([]*entry(nil), m.byOwner[owner]...)
	m.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.report.CreatedAt.Equal(b.report.CreatedAt) {
			return a.report.CreatedAt.After(b.report.CreatedAt)
		}
		return a.seq > b.seq
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]*domain.Report, 0, len(entries))
	for _, e := range entries {
		r := cloneReport(&e.report)
		out = append(out, &r)
	}
	return out, nil
}

func (m *ReportRepository) Get(ctx context.Context, owner string, id domain.ReportID) (*domain.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	e, ok := m.byID[id]
	m.mu.RUnlock()
	if !ok || e.report.OwnerID != owner {
		return nil, domain.ErrNotFound
	}
	r := cloneReport(&e.report)
	return &r, nil
}

func (m *ReportRepository) Ping(ctx context.Context) error { return ctx.Err() }

func cloneReport(r *domain.Report) domain.Report {
	c := *r
	if r.RawResult != nil {
		c.RawResult = append([]byte(nil), r.RawResult...)
	}
	return c
}
