package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samvad-hq/samvad-briefing/internal/domain"
	"github.com/samvad-hq/samvad-briefing/internal/logger"
)

// Assembler composes collector, seen store and fetcher into one batch of
// unseen articles that carry body text.
type Assembler struct {
	collector FeedCollector
	seen      SeenChecker
	fetcher   TextFetcher
	workers   int
	log       logger.Logger
}

// NewAssembler wires an assembler. workers bounds concurrent page fetches;
// values below 2 fetch serially.
func NewAssembler(collector FeedCollector, seen SeenChecker, fetcher TextFetcher, workers int, log logger.Logger) *Assembler {
	if workers < 1 {
		workers = 1
	}
	return &Assembler{
		collector: collector,
		seen:      seen,
		fetcher:   fetcher,
		workers:   workers,
		log:       logger.Ensure(log),
	}
}

// Assemble returns the unseen articles whose text could be fetched, in
// collector order. An empty result is not an error.
func (a *Assembler) Assemble(ctx context.Context, maxPerSource int, window time.Duration) ([]domain.Article, error) {
	if a == nil || a.collector == nil || a.seen == nil || a.fetcher == nil {
		return nil, fmt.Errorf("assembler is not initialized")
	}

	candidates, err := a.collector.Collect(ctx, maxPerSource, window)
	if err != nil {
		a.log.WarnObj("feed collection incomplete", "collect_error", err.Error())
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	unseen := a.filterNewArticles(ctx, candidates)
	enriched := a.enrich(ctx, unseen)

	batch := make([]domain.Article, 0, len(enriched))
	for _, art := range enriched {
		if art.HasBody() {
			batch = append(batch, art)
		}
	}

	a.log.InfoObj("batch assembled", "batch_meta", map[string]any{
		"collected": len(candidates),
		"unseen":    len(unseen),
		"with_text": len(batch),
	})
	return batch, ctx.Err()
}

// filterNewArticles drops URLs already in the store and repeats within the
// batch. A failed lookup keeps the article.
func (a *Assembler) filterNewArticles(ctx context.Context, articles []domain.Article) []domain.Article {
	out := make([]domain.Article, 0, len(articles))
	batchURLs := make(map[string]struct{}, len(articles))
	for _, art := range articles {
		if _, dup := batchURLs[art.URL]; dup {
			continue
		}
		batchURLs[art.URL] = struct{}{}

		seen, err := a.seen.SeenArticle(ctx, art.URL)
		if err != nil {
			a.log.WarnObj("seen lookup failed", "seen_error", map[string]any{
				"url":   art.URL,
				"error": err.Error(),
			})
		}
		if seen {
			continue
		}
		out = append(out, art)
	}
	return out
}

// enrich fetches body text for every article, preserving order.
func (a *Assembler) enrich(ctx context.Context, articles []domain.Article) []domain.Article {
	out := append([]domain.Article(nil), articles...)
	if len(out) == 0 {
		return out
	}

	workers := min(a.workers, len(out))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i].Body = a.fetchBody(ctx, out[i])
			}
		}()
	}

	for i := range out {
		if ctx.Err() != nil {
			break
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return out
}

func (a *Assembler) fetchBody(ctx context.Context, art domain.Article) string {
	text, err := a.fetcher.FetchText(ctx, art.URL)
	if err != nil {
		a.log.WarnObj("article text fetch failed", "fetch_error", map[string]any{
			"source": art.Source,
			"url":    art.URL,
			"error":  err.Error(),
		})
		return ""
	}
	return text
}
