package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-briefing/internal/domain"
)

const (
	// Supported summarizer types.
	TypeGemini = "gemini"
	TypeOpenAI = "openai"
	TypeCohere = "cohere"

	defaultTemperature = 0.2
	defaultTimeout     = 90 * time.Second
)

var (
	// ErrEmptyBatch is returned when SummarizeBatch is called without articles.
	ErrEmptyBatch = errors.New("summarizer: empty batch")
	// ErrEmptyText is returned when SummarizeOne is called with blank input.
	ErrEmptyText = errors.New("summarizer: empty text")
	// ErrEmptyOutput means the model answered without any text.
	ErrEmptyOutput = errors.New("summarizer: model returned no text")
)

// Summarizer turns collected articles (or one pasted article) into a briefing.
type Summarizer interface {
	SummarizeBatch(ctx context.Context, articles []domain.Article) (string, error)
	SummarizeOne(ctx context.Context, text string) (string, error)
}

// Config selects and parameterizes a summarizer backend.
type Config struct {
	Type   string
	Model  string
	APIKey string
	// Temperature is the sampling temperature. Nil uses the default; zero is
	// sent as zero.
	Temperature *float64
	// Endpoint overrides the backend base URL. Empty uses the public API.
	Endpoint string
	Timeout  time.Duration
}

// completer sends one system/user exchange to a model and returns its text.
type completer interface {
	complete(ctx context.Context, system, user string) (string, error)
}

// llmSummarizer builds prompts and delegates generation to a backend.
type llmSummarizer struct {
	typ   string
	model string
	llm   completer
}

func (s *llmSummarizer) SummarizeBatch(ctx context.Context, articles []domain.Article) (string, error) {
	if len(articles) == 0 {
		return "", ErrEmptyBatch
	}
	out, err := s.llm.complete(ctx, BriefingInstruction, BatchPrompt(articles))
	if err != nil {
		return "", fmt.Errorf("%s summarize batch: %w", s.typ, err)
	}
	return out, nil
}

func (s *llmSummarizer) SummarizeOne(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	out, err := s.llm.complete(ctx, "", SinglePrompt(text))
	if err != nil {
		return "", fmt.Errorf("%s summarize article: %w", s.typ, err)
	}
	return out, nil
}

// checkOutput trims model output and rejects empty answers.
func checkOutput(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyOutput
	}
	return text, nil
}

func sanitizeConfig(cfg Config, defaultModel string) Config {
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Endpoint = strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return cfg
}

func (c Config) temperature() float64 {
	if c.Temperature == nil {
		return defaultTemperature
	}
	return *c.Temperature
}

func readBodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return strings.TrimSpace(string(body))
}
