// Package ingest turns the three inbound channels into canonical analysis
// requests. Nothing here reads the data itself: uploaded text and live-source
// queries pass through to the engine as-is.
package ingest

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bryanwahyu/insight-bridge/internal/domain/analysis"
)

const defaultUploadName = "upload.csv"

// Simulated builds the request for the built-in simulation data set.
func Simulated() analysis.Request {
	return analysis.Request{
		DataSourceLabel: analysis.LabelSimulated,
		Payload:         analysis.SimulatedPayload{},
	}
}

// Upload builds a request from an uploaded table. content must hold the
// whole file; it is decoded to text exactly once.
func Upload(filename string, content []byte) (analysis.Request, error) {
	if len(content) == 0 {
		return analysis.Request{}, fmt.Errorf("%w: no file content uploaded", analysis.ErrInvalidInput)
	}
	name := cleanFilename(filename)
	req := analysis.Request{
		DataSourceLabel: name,
		Payload: analysis.UploadPayload{
			Filename: name,
			CSVText:  strings.ToValidUTF8(string(content), "\uFFFD"),
		},
	}
	return req, req.Validate()
}

// LiveSource builds a request that relays a connection descriptor and query
// to the engine. The query is not run, parsed or restricted here.
func LiveSource(descriptor, query string) (analysis.Request, error) {
	req := analysis.Request{
		DataSourceLabel: analysis.LabelLiveSource,
		Payload: analysis.LiveSourcePayload{
			ConnectionDescriptor: descriptor,
			QueryText:            query,
		},
	}
	if err := req.Validate(); err != nil {
		return analysis.Request{}, err
	}
	return req, nil
}

// cleanFilename strips client-side directories (some browsers send full paths).
func cleanFilename(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	name = filepath.Base(name)
	if name == "." || name == "/" || name == "" {
		return defaultUploadName
	}
	return name
}
