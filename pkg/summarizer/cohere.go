package summarizer

import (
	"context"
	"fmt"
	"net/http"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"github.com/cohere-ai/cohere-go/v2/option"
)

const cohereDefaultModel = "command-r"

// cohereClient uses the Cohere chat endpoint through the official SDK.
type cohereClient struct {
	client      *cohereclient.Client
	model       string
	temperature float64
}

func newCohereSummarizer(cfg Config) (Summarizer, error) {
	cfg = sanitizeConfig(cfg, cohereDefaultModel)
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("cohere summarizer requires an api key")
	}

	opts := []option.RequestOption{
		cohereclient.WithToken(cfg.APIKey),
		cohereclient.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, cohereclient.WithBaseURL(cfg.Endpoint))
	}
	client := cohereclient.NewClient(opts...)

	return &llmSummarizer{
		typ:   TypeCohere,
		model: cfg.Model,
		llm: &cohereClient{
			client:      client,
			model:       cfg.Model,
			temperature: cfg.temperature(),
		},
	}, nil
}

func (c *cohereClient) complete(ctx context.Context, system, user string) (string, error) {
	model := c.model
	temperature := c.temperature
	req := &cohere.ChatRequest{
		Message:     user,
		Model:       &model,
		Temperature: &temperature,
	}
	if system != "" {
		preamble := system
		req.Preamble = &preamble
	}

	resp, err := c.client.Chat(ctx, req)
	if err != nil {
		return "", fmt.Errorf("cohere chat: %w", err)
	}
	if resp == nil {
		return "", ErrEmptyOutput
	}
	return checkOutput(resp.Text)
}
