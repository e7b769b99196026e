package crawler

import (
	"context"
	"time"

	"github.com/samvad-hq/samvad-briefing/internal/domain"
)

// FeedCollector lists candidate articles from the registered feeds.
type FeedCollector interface {
	Collect(ctx context.Context, maxPerSource int, window time.Duration) ([]domain.Article, error)
}

// SeenChecker answers whether an article URL was already delivered.
type SeenChecker interface {
	SeenArticle(ctx context.Context, url string) (bool, error)
}

// TextFetcher retrieves readable body text for an article URL.
type TextFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}
