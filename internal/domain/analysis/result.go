package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Result is the validated engine response. Summary and AnomalyCount are the
// only fields the bridge reads; Raw keeps the whole document untouched.
type Result struct {
	Summary      string          `json:"summary"`
	AnomalyCount int             `json:"anomaly_count"`
	Raw          json.RawMessage `json:"-"`
}

// MarshalJSON writes the raw engine document so extra fields survive.
func (r Result) MarshalJSON() ([]byte, error) {
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	type plain Result
	return json.Marshal(plain(r))
}

// ParseResult validates an engine response body. It requires a JSON object
// with a string "summary" and a non-negative integer "anomaly_count"; older
// engines report the count as "anomalies_found", which is accepted too.
func ParseResult(body []byte) (Result, error) {
	body = bytes.TrimSpace(body)
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil || doc == nil {
		return Result{}, fmt.Errorf("%w: body is not a JSON object", ErrEngineMalformedResponse)
	}

	rawSummary, ok := doc["summary"]
	if !ok {
		return Result{}, fmt.Errorf("%w: missing summary", ErrEngineMalformedResponse)
	}
	var summary string
	if err := json.Unmarshal(rawSummary, &summary); err != nil {
		return Result{}, fmt.Errorf("%w: summary is not a string", ErrEngineMalformedResponse)
	}

	rawCount, ok := doc["anomaly_count"]
	if !ok {
		rawCount, ok = doc["anomalies_found"]
	}
	if !ok {
		return Result{}, fmt.Errorf("%w: missing anomaly_count", ErrEngineMalformedResponse)
	}
	count, err := parseCount(rawCount)
	if err != nil {
		return Result{}, err
	}

	raw := make(json.RawMessage, len(body))
	copy(raw, body)
	return Result{Summary: summary, AnomalyCount: count, Raw: raw}, nil
}

func parseCount(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || (raw[0] != '-' && (raw[0] < '0' || raw[0] > '9')) {
		return 0, fmt.Errorf("%w: anomaly_count is not a number", ErrEngineMalformedResponse)
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return 0, fmt.Errorf("%w: anomaly_count is not a number", ErrEngineMalformedResponse)
	}
	i, err := n.Int64()
	if err != nil {
		// 3.0 is fine, 3.5 is not
		f, ferr := n.Float64()
		if ferr != nil || f != math.Trunc(f) {
			return 0, fmt.Errorf("%w: anomaly_count is not an integer", ErrEngineMalformedResponse)
		}
		i = int64(f)
	}
	if i < 0 {
		return 0, fmt.Errorf("%w: anomaly_count is negative", ErrEngineMalformedResponse)
	}
	if i > math.MaxInt32 {
		return 0, fmt.Errorf("%w: anomaly_count out of range", ErrEngineMalformedResponse)
	}
	return int(i), nil
}
