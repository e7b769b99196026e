package sources

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadRegistryYAMLKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sources.yaml")
	content := `
sources:
  - id: raipur
    name: Patrika Raipur
    feed_url: https://www.patrika.com/raipur-news.xml
  - name: IBC24 State
    feed_url: https://www.ibc24.in/category/chhattisgarh/feed
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write sources file: %v", err)
	}

	reg, err := LoadRegistry(file)
	if err != nil {
		t.Fatalf("LoadRegistry returned error: %v", err)
	}
	all := reg.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(all))
	}
	if all[0].ID != "raipur" || all[1].ID != "ibc24-state" {
		t.Fatalf("unexpected ids %q, %q", all[0].ID, all[1].ID)
	}
	if got := strings.Join(reg.Names(), "|"); got != "Patrika Raipur|IBC24 State" {
		t.Fatalf("unexpected names %q", got)
	}
}

func TestLoadRegistryJSON(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sources.json")
	content := `{"sources":[{"id":"a","name":"A","feed_url":"https://a.example/rss"}]}`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write sources file: %v", err)
	}

	reg, err := LoadRegistry(file)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if reg.Len() != 1 || reg.All()[0].FeedURL != "https://a.example/rss" {
		t.Fatalf("unexpected registry %+v", reg.All())
	}
}

func TestLoadRegistryDuplicateID(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sources.yaml")
	content := `
sources:
  - id: duplicate
    name: One
    feed_url: https://one.example/rss
  - id: duplicate
    name: Two
    feed_url: https://two.example/rss
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write sources file: %v", err)
	}

	if _, err := LoadRegistry(file); err == nil {
		t.Fatalf("expected duplicate source error, got nil")
	}
}

func TestNewRegistryValidation(t *testing.T) {
	cases := map[string][]Source{
		"empty":      nil,
		"no name":    {{ID: "x", FeedURL: "https://x.example"}},
		"no url":     {{Name: "X"}},
		"bad scheme": {{Name: "X", FeedURL: "ftp://x.example/rss"}},
		"bad type":   {{Name: "X", Type: "atom-ish", FeedURL: "https://x.example/rss"}},
	}
	for name, list := range cases {
		if _, err := NewRegistry(list); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestNewRegistryDefaultsType(t *testing.T) {
	reg, err := NewRegistry([]Source{
		{Name: "Plain", FeedURL: "https://plain.example/rss"},
		{Name: "Sitemap", Type: " News_Sitemap ", FeedURL: "https://sm.example/news.xml"},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	all := reg.All()
	if all[0].Type != TypeFeed || all[1].Type != TypeNewsSitemap {
		t.Fatalf("unexpected types %q %q", all[0].Type, all[1].Type)
	}
}

func TestDefaultRegistry(t *testing.T) {
	reg, err := LoadRegistry("")
	if err != nil {
		t.Fatalf("LoadRegistry default: %v", err)
	}
	if reg.Len() != 5 {
		t.Fatalf("expected 5 built-in sources, got %d", reg.Len())
	}
	if reg.Names()[0] != "Patrika State" {
		t.Fatalf("unexpected first source %q", reg.Names()[0])
	}

	all := reg.All()
	all[0].Name = "mutated"
	if reg.Names()[0] != "Patrika State" {
		t.Fatalf("All must return a copy")
	}
}
