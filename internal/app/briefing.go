package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samvad-hq/samvad-briefing/internal/bot"
	"github.com/samvad-hq/samvad-briefing/internal/briefing"
	"github.com/samvad-hq/samvad-briefing/internal/config"
	"github.com/samvad-hq/samvad-briefing/internal/crawler"
	"github.com/samvad-hq/samvad-briefing/internal/logger"
	"github.com/samvad-hq/samvad-briefing/internal/server"
	"github.com/samvad-hq/samvad-briefing/internal/storage"
	"github.com/samvad-hq/samvad-briefing/pkg/httpclient"
	"github.com/samvad-hq/samvad-briefing/pkg/sources"
	"github.com/samvad-hq/samvad-briefing/pkg/summarizer"
	"github.com/samvad-hq/samvad-briefing/pkg/telegram"
	"golang.org/x/sync/errgroup"
)

// pollSlack is added to the long-poll timeout for the HTTP client deadline.
const pollSlack = 15 * time.Second

// Briefing is the bot runtime. It owns the seen store and runs the cycle
// dispatcher, the daily schedule, the Telegram poller and the optional
// status endpoint side by side.
type Briefing struct {
	cfg        *config.Config
	log        logger.Logger
	store      storage.Store
	registry   *sources.Registry
	cycle      *briefing.Cycle
	dispatcher *briefing.Dispatcher
	scheduler  *briefing.Scheduler
	poller     *telegram.Poller
	handler    *bot.Handler
	http       *server.Server
}

// NewBriefing builds the runtime from cfg.
func NewBriefing(ctx context.Context, cfg *config.Config, log logger.Logger) (*Briefing, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)

	registry, err := sources.LoadRegistry(cfg.SourcesFile)
	if err != nil {
		return nil, fmt.Errorf("load sources registry: %w", err)
	}
	log.InfoObj("sources registry loaded", "sources_meta", map[string]any{
		"count": registry.Len(),
		"names": registry.Names(),
	})

	sum, err := summarizer.New(summarizer.Config{
		Type:        cfg.SummarizerType,
		Model:       cfg.SummarizerModel,
		APIKey:      cfg.SummarizerAPIKey(),
		Temperature: &cfg.SummarizerTemperature,
		Endpoint:    cfg.SummarizerEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("build summarizer: %w", err)
	}

	tg, err := telegram.NewClient(cfg.TelegramToken, cfg.TelegramAPIBase, cfg.PollTimeout+pollSlack, log)
	if err != nil {
		return nil, fmt.Errorf("build telegram client: %w", err)
	}

	scraper, err := crawler.NewScraper(httpclient.NewBrowserClient(cfg.FetchTimeout, cfg.UserAgent), cfg.Extractor)
	if err != nil {
		return nil, fmt.Errorf("build scraper: %w", err)
	}

	store, err := storage.NewStore(cfg.StorageType, cfg.StorageLocation())
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	if n, err := store.Count(ctx); err == nil {
		log.InfoObj("storage initialized", "storage_config", map[string]any{
			"type":       cfg.StorageType,
			"seen_count": n,
		})
	}

	collector := sources.NewCollector(registry, httpclient.NewBrowserClient(cfg.FetchTimeout, cfg.UserAgent), log)
	assembler := crawler.NewAssembler(collector, store, scraper, cfg.FetchWorkers, log)
	cycle := briefing.NewCycle(assembler, sum, store, briefing.NewManager(), briefing.CycleConfig{
		MaxPerSource:  cfg.MaxPerSource,
		RecencyWindow: cfg.RecencyWindow,
	}, log)
	dispatcher := briefing.NewDispatcher(cycle, 0, log)

	push := briefing.NewPushOutput(tg, cfg.TargetChatID)
	scheduler, err := briefing.NewScheduler(cfg.BriefingTimes, cfg.Location, func() {
		if _, err := dispatcher.Submit(briefing.TriggerScheduled, push); err != nil {
			log.WarnObj("scheduled briefing skipped", "dispatch_error", err.Error())
		}
	}, log)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("build schedule: %w", err)
	}

	handler := bot.NewHandler(bot.Deps{
		Messenger:    tg,
		Dispatcher:   dispatcher,
		Summarizer:   sum,
		Sources:      registry,
		Seen:         store,
		State:        cycle.State(),
		Schedule:     scheduler,
		Location:     cfg.Location,
		TargetChatID: cfg.TargetChatID,

		MaxConcurrentSummaries: cfg.SummaryConcurrency,
		Log:                    log,
	})

	b := &Briefing{
		cfg:        cfg,
		log:        log,
		store:      store,
		registry:   registry,
		cycle:      cycle,
		dispatcher: dispatcher,
		scheduler:  scheduler,
		poller:     telegram.NewPoller(tg, cfg.PollTimeout, log),
		handler:    handler,
	}
	if cfg.HTTPAddr != "" {
		b.http = server.New(cfg.HTTPAddr, server.Deps{
			State:    cycle.State(),
			Seen:     store,
			Schedule: scheduler,
		}, log)
	}
	return b, nil
}

// Run blocks until ctx is cancelled or a component fails.
func (b *Briefing) Run(ctx context.Context) error {
	if b == nil || b.dispatcher == nil {
		return fmt.Errorf("briefing runtime is not initialized")
	}
	defer b.closeStore()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ignoreCanceled(b.dispatcher.Run(ctx))
	})
	g.Go(func() error {
		b.scheduler.Start()
		<-ctx.Done()
		<-b.scheduler.Stop().Done()
		return nil
	})
	g.Go(func() error {
		err := b.poller.Run(ctx, b.handler.HandleUpdate)
		b.handler.Wait()
		return ignoreCanceled(err)
	})
	if b.http != nil {
		g.Go(func() error {
			return b.http.Run(ctx)
		})
	}

	b.log.InfoObj("briefing bot running", "runtime_meta", map[string]any{
		"briefing_times": b.scheduler.Times(),
		"timezone":       b.cfg.Location.String(),
		"sources":        b.registry.Len(),
		"storage":        b.cfg.StorageType,
		"summarizer":     b.cfg.SummarizerType,
		"http_addr":      b.cfg.HTTPAddr,
	})

	err := g.Wait()
	b.log.InfoObj("briefing bot exiting", "runtime_meta", map[string]any{"status": b.cycle.State().GetStatus()})
	return err
}

// closeStore closes the storage backend, logging any error.
func (b *Briefing) closeStore() {
	if b == nil || b.store == nil {
		return
	}
	if err := b.store.Close(); err != nil {
		b.log.ErrorObj("storage close failed", "error", err.Error())
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
