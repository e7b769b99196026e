package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/samvad-hq/samvad-briefing/internal/domain"
	"github.com/samvad-hq/samvad-briefing/pkg/httpclient"
)

const feedAccept = "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8"

// Collector polls every registered source and returns recent entries.
type Collector struct {
	registry *Registry
	client   httpclient.Client
	parser   *gofeed.Parser
	now      func() time.Time
	log      Logger
}

// NewCollector builds a collector over reg using client for feed downloads.
func NewCollector(reg *Registry, client httpclient.Client, log Logger) *Collector {
	if reg == nil {
		reg = DefaultRegistry()
	}
	if client == nil {
		client = httpclient.NewRestyClient(15 * time.Second)
	}
	return &Collector{
		registry: reg,
		client:   client,
		parser:   gofeed.NewParser(),
		now:      time.Now,
		log:      ensureLogger(log),
	}
}

// Registry exposes the sources the collector polls.
func (c *Collector) Registry() *Registry { return c.registry }

// Collect parses each source independently, keeping at most maxPerSource
// entries per source that are no older than window. Entries without a
// timestamp are kept. The returned error joins per-source failures; articles
// from healthy sources are returned regardless.
func (c *Collector) Collect(ctx context.Context, maxPerSource int, window time.Duration) ([]domain.Article, error) {
	if maxPerSource <= 0 {
		return nil, fmt.Errorf("maxPerSource must be positive, got %d", maxPerSource)
	}
	cutoff := c.now().Add(-window)

	var (
		out  []domain.Article
		errs []error
	)
	for _, src := range c.registry.All() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		items, err := c.fetchItems(ctx, src)
		if err != nil {
			errs = append(errs, fmt.Errorf("source %s: %w", src.ID, err))
			c.log.WarnObj("feed source skipped", "source_error", map[string]any{
				"source_id": src.ID,
				"feed_url":  src.FeedURL,
				"error":     err.Error(),
			})
			continue
		}

		kept := selectEntries(src, items, maxPerSource, cutoff)
		c.log.DebugObj("feed source collected", "source_result", map[string]any{
			"source_id": src.ID,
			"type":      src.Type,
			"entries":   len(items),
			"kept":      len(kept),
		})
		out = append(out, kept...)
	}

	return out, errors.Join(errs...)
}

func (c *Collector) fetchItems(ctx context.Context, src Source) ([]*gofeed.Item, error) {
	accept := feedAccept
	if src.Type == TypeNewsSitemap {
		accept = sitemapAccept
	}
	resp, err := c.client.Get(ctx, src.FeedURL, map[string]string{"Accept": accept})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", src.Type, err)
	}
	if !httpclient.IsSuccess(resp) {
		return nil, fmt.Errorf("%s returned status %d", src.Type, resp.StatusCode())
	}

	if src.Type == TypeNewsSitemap {
		items, err := parseNewsSitemap(resp.Body())
		if err != nil {
			return nil, fmt.Errorf("parse sitemap: %w", err)
		}
		return items, nil
	}

	feed, err := c.parser.Parse(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed.Items, nil
}

// selectEntries walks items in feed order. Stale entries are skipped without
// counting toward the cap.
func selectEntries(src Source, items []*gofeed.Item, maxPerSource int, cutoff time.Time) []domain.Article {
	out := make([]domain.Article, 0, min(len(items), maxPerSource))
	for _, item := range items {
		if len(out) >= maxPerSource {
			break
		}
		if item == nil {
			continue
		}
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}

		ts := entryTime(item)
		if ts != nil && ts.Before(cutoff) {
			continue
		}

		out = append(out, domain.Article{
			Source:      src.Name,
			Title:       strings.TrimSpace(item.Title),
			URL:         link,
			Snippet:     strings.TrimSpace(item.Description),
			PublishedAt: ts,
		})
	}
	return out
}

// entryTime prefers the published time and falls back to the updated time.
func entryTime(item *gofeed.Item) *time.Time {
	switch {
	case item.PublishedParsed != nil:
		t := *item.PublishedParsed
		return &t
	case item.UpdatedParsed != nil:
		t := *item.UpdatedParsed
		return &t
	default:
		return nil
	}
}
