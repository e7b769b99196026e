package briefing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/samvad-hq/samvad-briefing/internal/logger"
)

// DailySpec converts an "HH:MM" wall-clock time into a cron spec that fires
// once a day at that minute.
func DailySpec(hhmm string) (string, error) {
	at, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return "", fmt.Errorf("invalid briefing time %q (expected HH:MM): %w", hhmm, err)
	}
	return fmt.Sprintf("%d %d * * *", at.Minute(), at.Hour()), nil
}

// Scheduler fires a callback at fixed daily times. Ticks missed while the
// process is down are not replayed.
type Scheduler struct {
	cron  *cron.Cron
	times []string
	log   logger.Logger
}

// NewScheduler registers fire at each of times, interpreted in loc.
func NewScheduler(times []string, loc *time.Location, fire func(), log logger.Logger) (*Scheduler, error) {
	if len(times) == 0 {
		return nil, fmt.Errorf("at least one briefing time is required")
	}
	if fire == nil {
		return nil, fmt.Errorf("scheduler callback is nil")
	}
	if loc == nil {
		loc = time.Local
	}
	log = logger.Ensure(log)

	c := cron.New(cron.WithLocation(loc))
	seen := make(map[string]struct{}, len(times))
	kept := make([]string, 0, len(times))
	for _, t := range times {
		spec, err := DailySpec(t)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[spec]; dup {
			continue
		}
		seen[spec] = struct{}{}

		at := strings.TrimSpace(t)
		if _, err := c.AddFunc(spec, func() {
			log.InfoObj("scheduled briefing triggered", "schedule_meta", map[string]any{"time": at})
			fire()
		}); err != nil {
			return nil, fmt.Errorf("add schedule %q: %w", at, err)
		}
		kept = append(kept, at)
	}

	return &Scheduler{cron: c, times: kept, log: log}, nil
}

// Times returns the configured daily times.
func (s *Scheduler) Times() []string {
	return append([]string(nil), s.times...)
}

// Next returns the earliest upcoming fire time, or zero before Start.
func (s *Scheduler) Next() time.Time {
	var next time.Time
	for _, e := range s.cron.Entries() {
		if e.Next.IsZero() {
			continue
		}
		if next.IsZero() || e.Next.Before(next) {
			next = e.Next
		}
	}
	return next
}

// Start begins firing in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.InfoObj("briefing schedule started", "schedule_meta", map[string]any{"times": s.times})
}

// Stop halts the schedule and returns a context that is done once any
// running callback has returned.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
