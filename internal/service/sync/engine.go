package sync

import (
	"context"
	"fmt"
	"log/slog"
	gosync "sync"
	"sync/atomic"
	"time"

	"github.com/cmlabs-hris/leavesync-agent-go/internal/connectivity"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/outbox"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/session"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/pkg/events"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/remote"
)

// Config holds sync engine tuning knobs.
type Config struct {
	Interval    time.Duration // default: 10 seconds
	MaxAttempts int           // default: 25; exceeding it moves a mutation to conflicted
}

// Engine drains the pending-mutation queue against the remote system. One
// cancellable loop, single-flight passes, mutations applied strictly in
// creation order.
type Engine struct {
	repo     outbox.Repository
	remote   remote.Client
	conn     *connectivity.Monitor
	hub      *events.Hub
	sessions session.Repository
	holder   *session.Holder
	config   Config

	mu     gosync.Mutex
	cancel context.CancelFunc
	wg     gosync.WaitGroup

	inFlight atomic.Bool
}

func NewEngine(
	repo outbox.Repository,
	remoteClient remote.Client,
	conn *connectivity.Monitor,
	hub *events.Hub,
	sessions session.Repository,
	holder *session.Holder,
	cfg Config,
) *Engine {
	if cfg.Interval == 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 25
	}

	return &Engine{
		repo:     repo,
		remote:   remoteClient,
		conn:     conn,
		hub:      hub,
		sessions: sessions,
		holder:   holder,
		config:   cfg,
	}
}

// Start launches the sync loop. Calling it while running is a no-op.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		return
	}

	// Rows stranded in syncing by a crash mid-attempt go back to pending so
	// the next pass picks them up. Their attempt counter already reflects the
	// interrupted attempt.
	if recovered, err := e.repo.RecoverSyncing(context.Background()); err != nil {
		slog.Error("sync: recover stranded mutations", "error", err)
	} else if recovered > 0 {
		slog.Warn("recovered mutations stranded mid-sync", "count", recovered)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.wg.Add(1)
	go e.loop(ctx)

	slog.Info("sync engine started", "interval", e.config.Interval)
}

// Stop cancels the loop. An in-flight remote call is abandoned; its mutation
// stays syncing/failed and is retried on the next Start.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel == nil {
		return
	}
	e.cancel()
	e.cancel = nil
	e.wg.Wait()

	slog.Info("sync engine stopped")
}

// SyncNow runs a pass immediately, outside the timer cadence. A no-op when a
// pass is already in progress.
func (e *Engine) SyncNow(ctx context.Context) {
	e.runPass(ctx)
}

func (e *Engine) loop(ctx context.Context) {
	defer e.wg.Done()

	changes, unsubscribe := e.conn.Subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(e.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.runPass(ctx)
		case change, ok := <-changes:
			if !ok {
				return
			}
			// Connectivity regained: resync without waiting for the tick.
			// Coalesces with a running timer pass via the single-flight
			// guard.
			if change.Online {
				e.runPass(ctx)
			}
		}
	}
}

// runPass drains the queue once. Single-flight: overlapping triggers are
// dropped, not queued.
func (e *Engine) runPass(ctx context.Context) {
	if !e.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer e.inFlight.Store(false)

	if !e.conn.Online() {
		return
	}

	mutations, err := e.repo.ListUnsynced(ctx)
	if err != nil {
		slog.Error("sync pass: list unsynced", "error", err)
		return
	}
	if len(mutations) == 0 {
		return
	}

	slog.Info("sync pass starting", "queued", len(mutations))

	synced := 0
	for _, m := range mutations {
		if ctx.Err() != nil {
			break
		}
		if e.processMutation(ctx, m) {
			synced++
		}
	}

	e.publishPendingCount(ctx)

	if synced > 0 {
		e.hub.Publish(events.Event{Type: events.TypeSyncCompleted, Data: map[string]int{"synced": synced}})
		e.stampLastSync(ctx)
	}
}

// processMutation applies one mutation and persists its outcome. Returns
// true when the mutation reached synced. A failure here never aborts the
// remaining queue.
func (e *Engine) processMutation(ctx context.Context, m outbox.PendingMutation) bool {
	if err := e.repo.MarkSyncing(ctx, m.ID); err != nil {
		slog.Error("sync: mark syncing", "mutation_id", m.ID, "error", err)
		return false
	}

	remoteID, err := e.apply(ctx, m)
	if err == nil {
		if err := e.repo.MarkSynced(ctx, m.ID, remoteID); err != nil {
			slog.Error("sync: mark synced", "mutation_id", m.ID, "error", err)
			return false
		}
		slog.Info("mutation synced", "mutation_id", m.ID, "kind", m.Kind)
		return true
	}

	msg := err.Error()
	attempts := m.SyncAttempts + 1

	switch {
	case remote.IsTerminal(err):
		slog.Warn("mutation conflicted", "mutation_id", m.ID, "kind", m.Kind, "error", msg)
		e.markOutcome(ctx, m.ID, outbox.StatusConflicted, msg)
	case attempts >= e.config.MaxAttempts:
		capped := fmt.Sprintf("retry limit reached after %d attempts: %s", attempts, msg)
		slog.Warn("mutation exceeded retry limit", "mutation_id", m.ID, "attempts", attempts)
		e.markOutcome(ctx, m.ID, outbox.StatusConflicted, capped)
	default:
		slog.Warn("mutation sync failed, will retry", "mutation_id", m.ID, "attempts", attempts, "error", msg)
		e.markOutcome(ctx, m.ID, outbox.StatusFailed, msg)
	}
	return false
}

// apply invokes the remote operation matching the mutation kind. The second
// return value is the remote id for newly created records.
func (e *Engine) apply(ctx context.Context, m outbox.PendingMutation) (*string, error) {
	switch m.Kind {
	case outbox.KindCreateRequest:
		remoteID, err := e.remote.CreateLeaveRequest(ctx, m.LeaveTypeID, m.StartDate, m.EndDate, m.Reason)
		if err != nil {
			return nil, err
		}
		return &remoteID, nil
	case outbox.KindApprove:
		if m.SubjectLeaveID == nil {
			return nil, remote.Terminal("sync.apply", "approve mutation without subject leave id")
		}
		return nil, e.remote.ApproveLeave(ctx, *m.SubjectLeaveID)
	case outbox.KindRefuse:
		if m.SubjectLeaveID == nil {
			return nil, remote.Terminal("sync.apply", "refuse mutation without subject leave id")
		}
		return nil, e.remote.RefuseLeave(ctx, *m.SubjectLeaveID)
	default:
		return nil, remote.Terminal("sync.apply", "unknown mutation kind "+string(m.Kind))
	}
}

func (e *Engine) markOutcome(ctx context.Context, id string, status outbox.SyncStatus, msg string) {
	if err := e.repo.MarkOutcome(ctx, id, status, &msg); err != nil {
		slog.Error("sync: mark outcome", "mutation_id", id, "status", status, "error", err)
	}
}

func (e *Engine) publishPendingCount(ctx context.Context) {
	count, err := e.repo.PendingCount(ctx)
	if err != nil {
		slog.Error("sync: pending count", "error", err)
		return
	}
	e.hub.Publish(events.Event{Type: events.TypePendingCountChanged, Data: map[string]int{"count": count}})
}

func (e *Engine) stampLastSync(ctx context.Context) {
	snap, ok := e.holder.Current()
	if !ok {
		return
	}
	if err := e.sessions.SetLastSyncAt(ctx, snap.UserID, time.Now().UTC()); err != nil {
		slog.Error("sync: stamp last sync", "user_id", snap.UserID, "error", err)
	}
}
