package briefing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samvad-hq/samvad-briefing/internal/domain"
	"github.com/samvad-hq/samvad-briefing/internal/logger"
)

// User-visible texts produced by a cycle.
const (
	MsgNoNewsScheduled = "There are no new fresh high-priority news articles to summarize since the last briefing."
	MsgNoNewsOnDemand  = "No new articles to summarize right now."
	MsgCycleFailed     = "Sorry, the briefing could not be generated this time. The same articles will be tried again in the next briefing."
)

// BatchAssembler yields the unseen, text-enriched articles of one cycle.
type BatchAssembler interface {
	Assemble(ctx context.Context, maxPerSource int, window time.Duration) ([]domain.Article, error)
}

// BatchSummarizer turns a non-empty batch into briefing text.
type BatchSummarizer interface {
	SummarizeBatch(ctx context.Context, articles []domain.Article) (string, error)
}

// SeenMarker records delivered article URLs.
type SeenMarker interface {
	MarkArticle(ctx context.Context, url string) error
}

// Output is where a cycle reports progress and its final text.
type Output interface {
	// Progress announces that a cycle has started. It may be a no-op.
	Progress(ctx context.Context) error
	// Publish delivers the final text of the cycle.
	Publish(ctx context.Context, text string) error
}

// Result describes one finished cycle.
type Result struct {
	ID       string
	Trigger  Trigger
	Outcome  Outcome
	Articles int
	Marked   int
}

// Cycle runs assemble -> summarize -> deliver -> mark.
type Cycle struct {
	assembler    BatchAssembler
	summarizer   BatchSummarizer
	marker       SeenMarker
	state        *Manager
	maxPerSource int
	window       time.Duration
	now          func() time.Time
	log          logger.Logger
}

// CycleConfig carries the collection limits applied on every run.
type CycleConfig struct {
	MaxPerSource  int
	RecencyWindow time.Duration
}

// NewCycle wires a cycle. state may be nil when no status is needed.
func NewCycle(assembler BatchAssembler, summarizer BatchSummarizer, marker SeenMarker, state *Manager, cfg CycleConfig, log logger.Logger) *Cycle {
	if state == nil {
		state = NewManager()
	}
	return &Cycle{
		assembler:    assembler,
		summarizer:   summarizer,
		marker:       marker,
		state:        state,
		maxPerSource: cfg.MaxPerSource,
		window:       cfg.RecencyWindow,
		now:          time.Now,
		log:          logger.Ensure(log),
	}
}

// State exposes the state manager the cycle reports to.
func (c *Cycle) State() *Manager { return c.state }

// Run executes one cycle. URLs are marked seen only after out.Publish has
// delivered the summary; any earlier failure leaves the store untouched.
func (c *Cycle) Run(ctx context.Context, trigger Trigger, out Output) (res Result, err error) {
	res = Result{ID: uuid.New().String(), Trigger: trigger}
	started := c.now()
	defer func() {
		c.state.Finish(res, err, c.now())
		c.log.InfoObj("briefing cycle finished", "cycle_meta", map[string]any{
			"cycle_id": res.ID,
			"trigger":  res.Trigger,
			"outcome":  res.Outcome,
			"articles": res.Articles,
			"marked":   res.Marked,
			"took":     c.now().Sub(started).String(),
		})
	}()

	if err := out.Progress(ctx); err != nil {
		c.log.WarnObj("progress message failed", "cycle_meta", map[string]any{
			"cycle_id": res.ID,
			"error":    err.Error(),
		})
	}

	c.state.SetState(StateAssembling)
	batch, err := c.assembler.Assemble(ctx, c.maxPerSource, c.window)
	if err != nil {
		res.Outcome = OutcomeFailed
		c.notifyFailure(ctx, res, out)
		return res, fmt.Errorf("assemble batch: %w", err)
	}
	res.Articles = len(batch)

	if len(batch) == 0 {
		res.Outcome = OutcomeNoNews
		notice := MsgNoNewsOnDemand
		if trigger == TriggerScheduled {
			notice = MsgNoNewsScheduled
		}
		if err := out.Publish(ctx, notice); err != nil {
			return res, fmt.Errorf("send no-news notice: %w", err)
		}
		return res, nil
	}

	c.state.SetState(StateSummarizing)
	summary, err := c.summarizer.SummarizeBatch(ctx, batch)
	if err != nil {
		res.Outcome = OutcomeFailed
		c.notifyFailure(ctx, res, out)
		return res, fmt.Errorf("summarize batch: %w", err)
	}

	c.state.SetState(StateDelivering)
	if err := out.Publish(ctx, summary); err != nil {
		res.Outcome = OutcomeFailed
		c.notifyFailure(ctx, res, out)
		return res, fmt.Errorf("deliver briefing: %w", err)
	}
	res.Outcome = OutcomeDelivered

	c.state.SetState(StateMarking)
	res.Marked = c.markAll(context.WithoutCancel(ctx), res.ID, batch)
	return res, nil
}

// markAll records every batch URL. Failures are logged; the briefing has
// already been delivered at this point.
func (c *Cycle) markAll(ctx context.Context, cycleID string, batch []domain.Article) int {
	marked := 0
	var errs []error
	for _, url := range domain.URLs(batch) {
		if err := c.marker.MarkArticle(ctx, url); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", url, err))
			continue
		}
		marked++
	}
	if err := errors.Join(errs...); err != nil {
		c.log.ErrorObj("mark seen failed", "cycle_meta", map[string]any{
			"cycle_id": cycleID,
			"error":    err.Error(),
		})
	}
	return marked
}

func (c *Cycle) notifyFailure(ctx context.Context, res Result, out Output) {
	if err := out.Publish(ctx, MsgCycleFailed); err != nil {
		c.log.WarnObj("failure notice not delivered", "cycle_meta", map[string]any{
			"cycle_id": res.ID,
			"error":    err.Error(),
		})
	}
}
