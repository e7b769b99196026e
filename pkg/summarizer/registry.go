package summarizer

import (
	"fmt"
	"strings"
	"sync"
)

// Builder creates a Summarizer from a config.
type Builder func(cfg Config) (Summarizer, error)

// Registry maps summarizer types to builders.
type Registry interface {
	Register(typ string, builder Builder)
	SummarizerFor(cfg Config) (Summarizer, error)
}

type registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry returns a registry with optional pre-registered builders.
func NewRegistry(builders map[string]Builder) Registry {
	r := &registry{
		builders: make(map[string]Builder),
	}
	for typ, b := range builders {
		r.Register(typ, b)
	}
	return r
}

// Register associates a builder with a summarizer type.
func (r *registry) Register(typ string, builder Builder) {
	if typ = strings.TrimSpace(strings.ToLower(typ)); typ == "" || builder == nil {
		return
	}

	r.mu.Lock()
	r.builders[typ] = builder
	r.mu.Unlock()
}

// SummarizerFor returns the summarizer built for the provided config.
func (r *registry) SummarizerFor(cfg Config) (Summarizer, error) {
	typ := strings.TrimSpace(strings.ToLower(cfg.Type))
	if typ == "" {
		return nil, fmt.Errorf("summarizer type is not configured")
	}

	r.mu.RLock()
	builder := r.builders[typ]
	r.mu.RUnlock()

	if builder == nil {
		return nil, fmt.Errorf("no summarizer registered for type %q", cfg.Type)
	}
	return builder(cfg)
}

// DefaultRegistry wires up the known backends.
func DefaultRegistry() Registry {
	return NewRegistry(map[string]Builder{
		TypeGemini: newGeminiSummarizer,
		TypeOpenAI: newOpenAISummarizer,
		TypeCohere: newCohereSummarizer,
	})
}

// New builds a summarizer from the default registry.
func New(cfg Config) (Summarizer, error) {
	return DefaultRegistry().SummarizerFor(cfg)
}
