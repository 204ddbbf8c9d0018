package analysis

import "context"

// Engine port (external anomaly-detection service)
type Engine interface {
	Analyze(ctx context.Context, req Request) (Result, error)
}
