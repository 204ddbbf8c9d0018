// Package enginehttp calls the analysis engine's HTTP endpoint.
package enginehttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/bryanwahyu/insight-bridge/internal/domain/analysis"
)

const (
	DefaultTimeout = 30 * time.Second
	analyzePath    = "/analyze"
)

// Options for Client. Zero Retries means a single attempt per request.
type Options struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	Retries      int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
}

type Client struct {
	baseURL string
	client  *resty.Client
}

// wireRequest is the engine's /analyze body.
type wireRequest struct {
	DataSource      string `json:"data_source"`
	CSVContent      string `json:"csv_content,omitempty"`
	DBConnectionStr string `json:"db_connection_str,omitempty"`
	DBQuery         string `json:"db_query,omitempty"`
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if opts.APIKey != "" {
		c.SetAuthToken(opts.APIKey)
	}
	if opts.Retries > 0 {
		wait := opts.RetryWait
		if wait <= 0 {
			wait = 500 * time.Millisecond
		}
		maxWait := opts.RetryMaxWait
		if maxWait < wait {
			maxWait = 4 * wait
		}
		c.SetRetryCount(opts.Retries).
			SetRetryWaitTime(wait).
			SetRetryMaxWaitTime(maxWait).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				if err != nil {
					return true
				}
				return unavailable(r.StatusCode())
			})
	}
	return &Client{baseURL: strings.TrimRight(opts.BaseURL, "/"), client: c}
}

// Analyze posts req to the engine and validates the response.
func (c *Client) Analyze(ctx context.Context, req analysis.Request) (analysis.Result, error) {
	body, err := encode(req)
	if err != nil {
		return analysis.Result{}, err
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(c.baseURL + analyzePath)
	if err != nil {
		return analysis.Result{}, fmt.Errorf("%w: %v", analysis.ErrEngineUnreachable, describe(err))
	}

	// Error bodies are dropped: on the live-source path the engine echoes
	// driver errors that can carry connection details.
	status := resp.StatusCode()
	switch {
	case unavailable(status):
		return analysis.Result{}, fmt.Errorf("%w: engine returned %d",
			analysis.ErrEngineUnreachable, status)
	case status < 200 || status >= 300:
		return analysis.Result{}, fmt.Errorf("%w: engine returned %d",
			analysis.ErrEngineMalformedResponse, status)
	}
	return analysis.ParseResult(resp.Body())
}

func encode(req analysis.Request) (wireRequest, error) {
	w := wireRequest{DataSource: req.DataSourceLabel}
	switch p := req.Payload.(type) {
	case analysis.SimulatedPayload:
	case analysis.UploadPayload:
		w.CSVContent = p.CSVText
	case analysis.LiveSourcePayload:
		w.DBConnectionStr = p.ConnectionDescriptor
		w.DBQuery = p.QueryText
	default:
		return w, fmt.Errorf("%w: unsupported payload %T", analysis.ErrInvalidInput, req.Payload)
	}
	return w, nil
}

// unavailable reports status codes that mean the engine could not serve the
// call, as opposed to answering it wrongly.
func unavailable(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests || status == http.StatusRequestTimeout
}

func describe(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out waiting for engine"
	case errors.Is(err, context.Canceled):
		return "request canceled"
	}
	return err.Error()
}
