package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/insight-bridge/internal/domain/analysis"
)

func TestSimulated(t *testing.T) {
	req := Simulated()
	require.NoError(t, req.Validate())
	assert.Equal(t, "simulate_financial_data", req.DataSourceLabel)
	assert.Equal(t, analysis.SourceSimulated, req.Kind())
	assert.IsType(t, analysis.SimulatedPayload{}, req.Payload)
}

func TestUpload(t *testing.T) {
	req, err := Upload("sales.csv", []byte("date,revenue\n2024-01-01,100\n"))
	require.NoError(t, err)
	assert.Equal(t, "sales.csv", req.DataSourceLabel)
	assert.Equal(t, analysis.SourceUpload, req.Kind())

	p, ok := req.Payload.(analysis.UploadPayload)
	require.True(t, ok)
	assert.Equal(t, "date,revenue\n2024-01-01,100\n", p.CSVText)
	assert.Equal(t, "sales.csv", p.Filename)
}

func TestUpload_EmptyContent(t *testing.T) {
	for _, content := range [][]byte{nil, {}} {
		_, err := Upload("sales.csv", content)
		assert.ErrorIs(t, err, analysis.ErrInvalidInput)
	}
}

func TestUpload_Filename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "q1.csv", want: "q1.csv"},
		{name: "unix path", in: "/home/me/q1.csv", want: "q1.csv"},
		{name: "windows path", in: `C:\Users\me\q1.csv`, want: "q1.csv"},
		{name: "empty", in: "", want: "upload.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Upload(tt.in, []byte("a,b\n1,2\n"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.DataSourceLabel)
		})
	}
}

func TestUpload_InvalidUTF8IsReplaced(t *testing.T) {
	req, err := Upload("x.csv", []byte{'a', 0xff, 'b'})
	require.NoError(t, err)
	p := req.Payload.(analysis.UploadPayload)
	assert.Equal(t, "a\uFFFDb", p.CSVText)
}

func TestLiveSource(t *testing.T) {
	query := "SELECT date, revenue FROM sales; DROP TABLE x"
	req, err := LiveSource("postgres://u:p@db:5432/shop", query)
	require.NoError(t, err)
	assert.Equal(t, "postgres_live", req.DataSourceLabel)

	p, ok := req.Payload.(analysis.LiveSourcePayload)
	require.True(t, ok)
	assert.Equal(t, "postgres://u:p@db:5432/shop", p.ConnectionDescriptor)
	// relayed verbatim, never rewritten
	assert.Equal(t, query, p.QueryText)
}

func TestLiveSource_MissingFields(t *testing.T) {
	tests := []struct {
		name       string
		descriptor string
		query      string
	}{
		{name: "missing descriptor", query: "SELECT 1"},
		{name: "missing query", descriptor: "postgres://db"},
		{name: "blank both", descriptor: "  ", query: "\t"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LiveSource(tt.descriptor, tt.query)
			assert.ErrorIs(t, err, analysis.ErrInvalidInput)
		})
	}
}
