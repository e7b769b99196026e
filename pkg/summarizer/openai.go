package summarizer

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/samvad-hq/samvad-briefing/pkg/httpclient"
)

const (
	openAIDefaultEndpoint = "https://api.openai.com"
	openAIDefaultModel    = "gpt-4o-mini"
)

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

// openAIClient talks to any OpenAI-compatible chat completions API.
type openAIClient struct {
	endpoint    string
	model       string
	apiKey      string
	temperature float64
	client      *resty.Client
}

func newOpenAISummarizer(cfg Config) (Summarizer, error) {
	cfg = sanitizeConfig(cfg, openAIDefaultModel)
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai summarizer requires an api key")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = openAIDefaultEndpoint
	}

	return &llmSummarizer{
		typ:   TypeOpenAI,
		model: cfg.Model,
		llm: &openAIClient{
			endpoint:    endpoint,
			model:       cfg.Model,
			apiKey:      cfg.APIKey,
			temperature: cfg.temperature(),
			client:      httpclient.NewRestyHTTPClient(cfg.Timeout),
		},
	}, nil
}

func (o *openAIClient) complete(ctx context.Context, system, user string) (string, error) {
	messages := make([]openAIMessage, 0, 2)
	if system != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: system})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: user})

	var out openAIResponse
	resp, err := o.client.R().
		SetContext(ctx).
		SetAuthToken(o.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(openAIRequest{Model: o.model, Messages: messages, Temperature: o.temperature}).
		SetResult(&out).
		ForceContentType("application/json").
		Post(o.endpoint + "/v1/chat/completions")
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("openai response status %d: %s", resp.StatusCode(), readBodySnippet(resp.Body()))
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyOutput
	}
	return checkOutput(out.Choices[0].Message.Content)
}
