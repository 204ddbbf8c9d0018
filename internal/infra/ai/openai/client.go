package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/insight-bridge/internal/domain/analysis"
	"github.com/bryanwahyu/insight-bridge/internal/infra/ai/prompt"
)

const (
	maxTokens    = 2048
	defaultModel = "gpt-4o-mini"
)

// Client is an analysis.Engine backed by an OpenAI-compatible chat model.
// It serves simulated and uploaded data only; live database credentials are
// never sent to the model provider.
type Client struct {
	*openai.Client
	Model   string
	Timeout time.Duration
}

func NewClient(apiKey, baseURL, model string, timeout time.Duration) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model, Timeout: timeout}
}

func (c *Client) Analyze(ctx context.Context, req analysis.Request) (analysis.Result, error) {
	var user string
	switch p := req.Payload.(type) {
	case analysis.SimulatedPayload:
		user = prompt.GetSimulatedPrompt(req.DataSourceLabel)
	case analysis.UploadPayload:
		user = prompt.GetUploadPrompt(p.Filename, p.CSVText)
	case analysis.LiveSourcePayload:
		// credentials stay here; retrying cannot change the answer
		return analysis.Result{}, analysis.ErrSourceNotSupported
	default:
		return analysis.Result{}, fmt.Errorf("%w: unsupported payload %T", analysis.ErrInvalidInput, req.Payload)
	}

	model := c.Model
	if model == "" {
		model = defaultModel
	}
	creq := openai.ChatCompletionRequest{
		Model: model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		creq.MaxCompletionTokens = maxTokens
	} else {
		creq.MaxTokens = maxTokens
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	resp, err := c.CreateChatCompletion(ctx, creq)
	if err != nil {
		return analysis.Result{}, fmt.Errorf("%w: chat completion: %v", analysis.ErrEngineUnreachable, err)
	}
	if len(resp.Choices) == 0 {
		return analysis.Result{}, fmt.Errorf("%w: model returned no choices", analysis.ErrEngineMalformedResponse)
	}
	return analysis.ParseResult([]byte(resp.Choices[0].Message.Content))
}
