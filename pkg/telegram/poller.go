package telegram

import (
	"context"
	"time"
)

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

// UpdateSource is the long-poll side of the Bot API.
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error)
}

// HandlerFunc processes one incoming update.
type HandlerFunc func(ctx context.Context, upd Update)

// Poller pulls updates in a loop and hands each to a handler.
type Poller struct {
	source  UpdateSource
	timeout time.Duration
	log     Logger
}

// NewPoller builds a poller that waits up to timeout per getUpdates call.
func NewPoller(source UpdateSource, timeout time.Duration, log Logger) *Poller {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Poller{source: source, timeout: timeout, log: ensureLogger(log)}
}

// Run polls until ctx is cancelled. Updates are handled sequentially in the
// order Telegram returns them, and the offset advances past each one.
func (p *Poller) Run(ctx context.Context, handle HandlerFunc) error {
	var offset int64
	backoff := minBackoff

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		updates, err := p.source.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.log.WarnObj("get updates failed", "poll_error", map[string]any{
				"error":   err.Error(),
				"backoff": backoff.String(),
			})
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = minBackoff

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(ctx, upd)
		}
	}
}
