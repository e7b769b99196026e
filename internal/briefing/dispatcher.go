package briefing

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/samvad-hq/samvad-briefing/internal/logger"
)

// ErrQueueFull is returned by Submit when too many cycles are pending.
var ErrQueueFull = errors.New("briefing queue is full")

// ErrStopped is returned by Submit after the dispatcher has exited.
var ErrStopped = errors.New("briefing dispatcher stopped")

const defaultQueueSize = 4

// Runner executes one cycle.
type Runner interface {
	Run(ctx context.Context, trigger Trigger, out Output) (Result, error)
}

// Completion is delivered once a submitted cycle has finished.
type Completion struct {
	Result Result
	Err    error
}

type request struct {
	trigger Trigger
	out     Output
	done    chan Completion
}

// Dispatcher runs submitted cycles one at a time on a single goroutine.
type Dispatcher struct {
	runner   Runner
	requests chan request
	stopped  chan struct{}
	log      logger.Logger
}

// NewDispatcher builds a dispatcher with room for queueSize pending cycles.
func NewDispatcher(runner Runner, queueSize int, log logger.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Dispatcher{
		runner:   runner,
		requests: make(chan request, queueSize),
		stopped:  make(chan struct{}),
		log:      logger.Ensure(log),
	}
}

// Submit queues a cycle without blocking. The returned channel receives
// exactly one Completion.
func (d *Dispatcher) Submit(trigger Trigger, out Output) (<-chan Completion, error) {
	select {
	case <-d.stopped:
		return nil, ErrStopped
	default:
	}

	req := request{trigger: trigger, out: out, done: make(chan Completion, 1)}
	select {
	case d.requests <- req:
		return req.done, nil
	default:
		return nil, ErrQueueFull
	}
}

// Run processes requests until ctx is cancelled. A failing or panicking
// cycle is logged and the loop keeps going.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer close(d.stopped)
	for {
		if err := ctx.Err(); err != nil {
			d.drain(err)
			return err
		}
		select {
		case <-ctx.Done():
		case req := <-d.requests:
			req.done <- d.runOne(ctx, req)
		}
	}
}

func (d *Dispatcher) runOne(ctx context.Context, req request) (c Completion) {
	defer func() {
		if r := recover(); r != nil {
			c = Completion{
				Result: Result{Trigger: req.trigger, Outcome: OutcomeFailed},
				Err:    fmt.Errorf("briefing cycle panic: %v", r),
			}
			d.log.ErrorObj("briefing cycle panicked", "dispatch_error", map[string]any{
				"trigger": req.trigger,
				"panic":   fmt.Sprint(r),
				"stack":   string(debug.Stack()),
			})
		}
	}()

	res, err := d.runner.Run(ctx, req.trigger, req.out)
	if err != nil {
		d.log.ErrorObj("briefing cycle failed", "dispatch_error", map[string]any{
			"cycle_id": res.ID,
			"trigger":  req.trigger,
			"error":    err.Error(),
		})
	}
	return Completion{Result: res, Err: err}
}

// drain answers requests still queued at shutdown.
func (d *Dispatcher) drain(err error) {
	for {
		select {
		case req := <-d.requests:
			req.done <- Completion{Result: Result{Trigger: req.trigger}, Err: err}
		default:
			return
		}
	}
}
