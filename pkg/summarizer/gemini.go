package summarizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/samvad-hq/samvad-briefing/pkg/httpclient"
)

const (
	geminiDefaultEndpoint = "https://generativelanguage.googleapis.com"
	geminiDefaultModel    = "gemini-2.5-flash"
)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"system_instruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiGenerationConfig struct {
	Temperature float64 `json:"temperature"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

// geminiClient calls the generateContent REST method.
type geminiClient struct {
	endpoint    string
	model       string
	apiKey      string
	temperature float64
	client      *resty.Client
}

func newGeminiSummarizer(cfg Config) (Summarizer, error) {
	cfg = sanitizeConfig(cfg, geminiDefaultModel)
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini summarizer requires an api key")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = geminiDefaultEndpoint
	}

	return &llmSummarizer{
		typ:   TypeGemini,
		model: cfg.Model,
		llm: &geminiClient{
			endpoint:    endpoint,
			model:       cfg.Model,
			apiKey:      cfg.APIKey,
			temperature: cfg.temperature(),
			client:      httpclient.NewRestyHTTPClient(cfg.Timeout),
		},
	}, nil
}

func (g *geminiClient) complete(ctx context.Context, system, user string) (string, error) {
	body := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: user}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature: g.temperature,
		},
	}
	if strings.TrimSpace(system) != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}

	var out geminiResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-goog-api-key", g.apiKey).
		SetBody(body).
		SetResult(&out).
		ForceContentType("application/json").
		Post(fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.endpoint, g.model))
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("gemini response status %d: %s", resp.StatusCode(), readBodySnippet(resp.Body()))
	}

	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("gemini blocked prompt: %s", out.PromptFeedback.BlockReason)
	}
	if len(out.Candidates) == 0 {
		return "", ErrEmptyOutput
	}

	var b strings.Builder
	for _, part := range out.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return checkOutput(b.String())
}
