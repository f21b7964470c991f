package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Client is the single knob the generator components need: one prompt in,
// one JSON document out. Temperature is passed per call because the four
// operations use different decoding randomness.
type Client interface {
	CompleteJSON(ctx context.Context, prompt string, temperature float32) (string, error)
}

// OpenAIClient calls the OpenAI chat completion API in JSON mode. The model
// is asked to emit a single JSON object; parsing and schema handling belong
// to the caller.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// Option configures an OpenAIClient.
type Option func(*openai.ClientConfig)

// WithBaseURL points the client at an alternate API endpoint.
func WithBaseURL(url string) Option {
	return func(cfg *openai.ClientConfig) { cfg.BaseURL = url }
}

// WithHTTPClient swaps the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(cfg *openai.ClientConfig) { cfg.HTTPClient = hc }
}

// NewOpenAIClient constructs an OpenAI-backed JSON completion client.
func NewOpenAIClient(apiKey, model string, opts ...Option) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	cfg.HTTPClient = &http.Client{Timeout: 120 * time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// CompleteJSON sends the prompt as a single user message and returns the raw
// response text. The request pins the JSON-object response format so the
// model emits machine-parsable output.
func (c *OpenAIClient) CompleteJSON(ctx context.Context, prompt string, temperature float32) (string, error) {
	if c.client == nil {
		return "", errors.New("openai client not initialized")
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}
