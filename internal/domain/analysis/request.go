package analysis

import (
	"fmt"
	"strings"
)

// Labels for the ingestion paths that don't carry a caller-supplied name.
const (
	LabelSimulated  = "simulate_financial_data"
	LabelLiveSource = "postgres_live"
)

// SourceKind enum
type SourceKind string

const (
	SourceSimulated  SourceKind = "simulated"
	SourceUpload     SourceKind = "upload"
	SourceLiveSource SourceKind = "live_source"
)

// Payload is the ingestion artifact attached to a Request. Only the three
// variants in this package implement it.
type Payload interface {
	Kind() SourceKind
	validate() error
}

// SimulatedPayload carries nothing; the engine generates its own data set.
type SimulatedPayload struct{}

func (SimulatedPayload) Kind() SourceKind { return SourceSimulated }
func (SimulatedPayload) validate() error  { return nil }

// UploadPayload holds the decoded text of an uploaded table.
type UploadPayload struct {
	Filename string
	CSVText  string
}

func (UploadPayload) Kind() SourceKind { return SourceUpload }

func (p UploadPayload) validate() error {
	if p.CSVText == "" {
		return fmt.Errorf("%w: file content is empty", ErrInvalidInput)
	}
	return nil
}

// LiveSourcePayload is relayed to the engine verbatim. The engine, not the
// bridge, is the trust boundary for running QueryText.
type LiveSourcePayload struct {
	ConnectionDescriptor string
	QueryText            string
}

func (LiveSourcePayload) Kind() SourceKind { return SourceLiveSource }

func (p LiveSourcePayload) validate() error {
	if strings.TrimSpace(p.ConnectionDescriptor) == "" {
		return fmt.Errorf("%w: connection_descriptor is required", ErrInvalidInput)
	}
	if strings.TrimSpace(p.QueryText) == "" {
		return fmt.Errorf("%w: query_text is required", ErrInvalidInput)
	}
	return nil
}

// Request is the canonical, engine-ready analysis request.
type Request struct {
	DataSourceLabel string
	Payload         Payload
}

// Validate checks the request before it is handed to an Engine.
func (r Request) Validate() error {
	if strings.TrimSpace(r.DataSourceLabel) == "" {
		return fmt.Errorf("%w: data source label is required", ErrInvalidInput)
	}
	if r.Payload == nil {
		return fmt.Errorf("%w: payload is required", ErrInvalidInput)
	}
	return r.Payload.validate()
}

// Kind returns the payload kind, or "" for a request without payload.
func (r Request) Kind() SourceKind {
	if r.Payload == nil {
		return ""
	}
	return r.Payload.Kind()
}
