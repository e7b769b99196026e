package sources

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Package sources holds the feed source registry and the feed collector.

// Source kinds. An empty type means TypeFeed.
const (
	TypeFeed        = "feed"
	TypeNewsSitemap = "news_sitemap"
)

// Source is a single syndication feed or news sitemap the collector polls.
type Source struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Type    string `json:"type,omitempty" yaml:"type,omitempty"`
	FeedURL string `json:"feed_url" yaml:"feed_url"`
}

type registryFile struct {
	Sources []Source `json:"sources" yaml:"sources"`
}

// Registry is an immutable, ordered list of sources.
type Registry struct {
	sources []Source
}

// defaultSources mirrors the feeds the bot shipped with.
var defaultSources = []Source{
	{ID: "patrika-state", Name: "Patrika State", FeedURL: "https://www.patrika.com/chhattisgarh-news.xml"},
	{ID: "patrika-jagdalpur", Name: "Patrika Bastar/Jagdalpur", FeedURL: "https://www.patrika.com/jagdalpur-news.xml"},
	{ID: "patrika-ambikapur", Name: "Patrika Surguja/Ambikapur", FeedURL: "https://www.patrika.com/ambikapur-news.xml"},
	{ID: "patrika-raipur", Name: "Patrika Raipur", FeedURL: "https://www.patrika.com/raipur-news.xml"},
	{ID: "ibc24-state", Name: "IBC24 State", FeedURL: "https://www.ibc24.in/category/chhattisgarh/feed"},
}

// DefaultRegistry returns the built-in source list.
func DefaultRegistry() *Registry {
	reg, err := NewRegistry(defaultSources)
	if err != nil {
		panic(fmt.Sprintf("built-in sources invalid: %v", err))
	}
	return reg
}

// NewRegistry validates the given sources and keeps them in order.
func NewRegistry(list []Source) (*Registry, error) {
	if len(list) == 0 {
		return nil, errors.New("sources list is empty")
	}

	out := make([]Source, 0, len(list))
	ids := make(map[string]struct{}, len(list))
	for i, s := range list {
		s = sanitizeSource(s)
		if err := validateSource(s); err != nil {
			return nil, fmt.Errorf("sources[%d]: %w", i, err)
		}
		if _, exists := ids[s.ID]; exists {
			return nil, fmt.Errorf("duplicate source id %q", s.ID)
		}
		ids[s.ID] = struct{}{}
		out = append(out, s)
	}
	return &Registry{sources: out}, nil
}

// LoadRegistry reads sources from a YAML/JSON file. An empty path yields the
// built-in registry.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultRegistry(), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sources file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	parsed, err := parseRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	return NewRegistry(parsed.Sources)
}

// All returns a copy of the sources in registration order.
func (r *Registry) All() []Source {
	if r == nil {
		return nil
	}
	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// Names returns the display names in registration order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.sources))
	for _, s := range r.sources {
		out = append(out, s.Name)
	}
	return out
}

// Len returns the number of sources.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.sources)
}

type unmarshalFn func([]byte, any) error

func parseRegistry(data []byte, ext string) (registryFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var reg registryFile
		if err := d.fn(data, &reg); err == nil {
			return reg, nil
		}
	}

	return registryFile{}, errors.New("sources file format not recognized (expected YAML or JSON)")
}

func sanitizeSource(s Source) Source {
	s.ID = strings.TrimSpace(s.ID)
	s.Name = strings.TrimSpace(s.Name)
	s.FeedURL = strings.TrimSpace(s.FeedURL)
	s.Type = strings.ToLower(strings.TrimSpace(s.Type))
	if s.Type == "" {
		s.Type = TypeFeed
	}
	if s.ID == "" {
		s.ID = slug(s.Name)
	}
	return s
}

func validateSource(s Source) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.ID == "" {
		return fmt.Errorf("id is required for source %q", s.Name)
	}
	if s.Type != TypeFeed && s.Type != TypeNewsSitemap {
		return fmt.Errorf("unsupported type %q for source %q", s.Type, s.Name)
	}
	if s.FeedURL == "" {
		return fmt.Errorf("feed_url is required for source %q", s.Name)
	}
	if !strings.HasPrefix(s.FeedURL, "http://") && !strings.HasPrefix(s.FeedURL, "https://") {
		return fmt.Errorf("feed_url for source %q must be http(s)", s.Name)
	}
	return nil
}

func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
