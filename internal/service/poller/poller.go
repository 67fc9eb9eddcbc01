package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Poller is one background loop that diffs remote state against a local
// ledger and emits at most one notification per detected event. Two
// implementations exist, picked by session role at start time.
type Poller interface {
	// Start launches the loop. A no-op when already running or when the
	// session does not match the poller's role.
	Start()
	// Stop cancels the loop and waits for it to exit.
	Stop()
	// IsRunning reflects loop liveness, not merely that Start was called.
	IsRunning() bool
}

// runner holds the lifecycle shared by both pollers: a cancellable loop with
// its own cadence, independent of the sync engine's timer.
type runner struct {
	name     string
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
}

// start launches the loop running pass on every tick. gate is checked before
// launching; pass errors are logged and the loop continues on the next tick.
func (r *runner) start(gate func() bool, pass func(ctx context.Context) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}
	if !gate() {
		slog.Debug("poller not eligible for this session", "poller", r.name)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.wg.Add(1)
	go r.loop(ctx, pass)

	slog.Info("poller started", "poller", r.name, "interval", r.interval)
}

func (r *runner) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel == nil {
		return
	}
	r.cancel()
	r.cancel = nil
	r.wg.Wait()

	slog.Info("poller stopped", "poller", r.name)
}

func (r *runner) isRunning() bool {
	return r.running.Load()
}

func (r *runner) loop(ctx context.Context, pass func(ctx context.Context) error) {
	defer r.wg.Done()
	r.running.Store(true)
	defer r.running.Store(false)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.runPass(ctx, pass)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runPass(ctx, pass)
		}
	}
}

func (r *runner) runPass(ctx context.Context, pass func(ctx context.Context) error) {
	if err := pass(ctx); err != nil && ctx.Err() == nil {
		slog.Warn("poller pass failed", "poller", r.name, "error", err)
	}
}
