package analysis

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResult(t *testing.T) {
	body := `{"summary":"3 anomalies detected","anomaly_count":3,"details":[{"date":"2024-01-20","severity":"HIGH"}]}`
	res, err := ParseResult([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "3 anomalies detected", res.Summary)
	assert.Equal(t, 3, res.AnomalyCount)
	assert.JSONEq(t, body, string(res.Raw))

	out, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, body, string(out), "extra fields pass through")
}

func TestParseResult_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty", body: ``},
		{name: "array", body: `[1,2]`},
		{name: "null", body: `null`},
		{name: "missing summary", body: `{"anomaly_count":1}`},
		{name: "summary not string", body: `{"summary":5,"anomaly_count":1}`},
		{name: "missing count", body: `{"summary":"x"}`},
		{name: "negative count", body: `{"summary":"x","anomaly_count":-2}`},
		{name: "fractional count", body: `{"summary":"x","anomaly_count":2.5}`},
		{name: "string count", body: `{"summary":"x","anomaly_count":"3"}`},
		{name: "null count", body: `{"summary":"x","anomaly_count":null}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResult([]byte(tt.body))
			assert.ErrorIs(t, err, ErrEngineMalformedResponse)
		})
	}
}

func TestParseResult_CountForms(t *testing.T) {
	res, err := ParseResult([]byte(`{"summary":"x","anomaly_count":4.0}`))
	require.NoError(t, err)
	assert.Equal(t, 4, res.AnomalyCount)

	res, err = ParseResult([]byte(`{"summary":"x","anomalies_found":0}`))
	require.NoError(t, err)
	assert.Equal(t, 0, res.AnomalyCount)

	// anomaly_count wins over the legacy name
	res, err = ParseResult([]byte(`{"summary":"x","anomaly_count":2,"anomalies_found":9}`))
	require.NoError(t, err)
	assert.Equal(t, 2, res.AnomalyCount)
}

func TestRequestValidate(t *testing.T) {
	ok := []Request{
		{DataSourceLabel: LabelSimulated, Payload: SimulatedPayload{}},
		{DataSourceLabel: "a.csv", Payload: UploadPayload{Filename: "a.csv", CSVText: "x"}},
		{DataSourceLabel: LabelLiveSource, Payload: LiveSourcePayload{ConnectionDescriptor: "d", QueryText: "q"}},
	}
	for _, r := range ok {
		assert.NoError(t, r.Validate(), r.Kind())
	}

	bad := []Request{
		{Payload: SimulatedPayload{}},
		{DataSourceLabel: "x"},
		{DataSourceLabel: "a.csv", Payload: UploadPayload{Filename: "a.csv"}},
		{DataSourceLabel: LabelLiveSource, Payload: LiveSourcePayload{QueryText: "q"}},
		{DataSourceLabel: LabelLiveSource, Payload: LiveSourcePayload{ConnectionDescriptor: "d"}},
	}
	for i, r := range bad {
		assert.ErrorIs(t, r.Validate(), ErrInvalidInput, "case %d", i)
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindEngineUnreachable, KindOf(fmt.Errorf("%w: timeout", ErrEngineUnreachable)))
	assert.Equal(t, KindPersistenceUnavailable, KindOf(fmt.Errorf("wrap: %w", ErrPersistenceUnavailable)))
	assert.Equal(t, KindUnauthenticated, KindOf(ErrUnauthenticated))
	assert.Equal(t, KindInternal, KindOf(fmt.Errorf("boom")))
}
