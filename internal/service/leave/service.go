package leave

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/leavesync-agent-go/internal/connectivity"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/leave"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/notify"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/outbox"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/session"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/pkg/events"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/remote"
)

// Service is the UI-facing leave surface: read-through cached reads, and
// submit/decide operations that fall back to the offline queue when the
// remote call cannot be made.
type Service struct {
	remote remote.Client
	conn   *connectivity.Monitor
	cache  leave.CacheRepository
	queue  outbox.Repository
	ledger notify.LedgerRepository
	holder *session.Holder
	hub    *events.Hub
}

func NewService(
	remoteClient remote.Client,
	conn *connectivity.Monitor,
	cache leave.CacheRepository,
	queue outbox.Repository,
	ledger notify.LedgerRepository,
	holder *session.Holder,
	hub *events.Hub,
) *Service {
	return &Service{
		remote: remoteClient,
		conn:   conn,
		cache:  cache,
		queue:  queue,
		ledger: ledger,
		holder: holder,
		hub:    hub,
	}
}

func (s *Service) session() (session.Snapshot, error) {
	snap, ok := s.holder.Current()
	if !ok {
		return session.Snapshot{}, leave.ErrNoSession
	}
	return snap, nil
}

// Leaves returns the employee's own leaves: live when possible, the cached
// snapshot otherwise. FromCache and RefreshedAt let the UI surface staleness.
func (s *Service) Leaves(ctx context.Context) (leave.Snapshot[leave.Leave], error) {
	snap, err := s.session()
	if err != nil {
		return leave.Snapshot[leave.Leave]{}, err
	}

	if s.conn.Online() {
		items, err := s.remote.ListOwnLeaves(ctx, snap.EmployeeID)
		if err == nil {
			s.refresh(func() error { return s.cache.ReplaceLeaves(ctx, snap.EmployeeID, items) })
			return leave.Snapshot[leave.Leave]{Items: items, RefreshedAt: time.Now()}, nil
		}
		slog.Warn("live leave read failed, falling back to cache", "error", err)
	}

	items, refreshedAt, err := s.cache.GetLeaves(ctx, snap.EmployeeID)
	if err != nil {
		return leave.Snapshot[leave.Leave]{}, err
	}
	return leave.Snapshot[leave.Leave]{Items: items, FromCache: true, RefreshedAt: refreshedAt}, nil
}

// LeavesToApprove is the manager read path. The approvals list is not one of
// the cached collections; offline it degrades to an explicit error.
func (s *Service) LeavesToApprove(ctx context.Context) ([]leave.Leave, error) {
	snap, err := s.session()
	if err != nil {
		return nil, err
	}
	if !snap.IsManager {
		return nil, leave.ErrNoSession
	}
	return s.remote.ListLeavesToApprove(ctx)
}

func (s *Service) LeaveTypes(ctx context.Context) (leave.Snapshot[leave.LeaveType], error) {
	snap, err := s.session()
	if err != nil {
		return leave.Snapshot[leave.LeaveType]{}, err
	}

	if s.conn.Online() {
		items, err := s.remote.ListLeaveTypes(ctx)
		if err == nil {
			s.refresh(func() error { return s.cache.ReplaceLeaveTypes(ctx, snap.EmployeeID, items) })
			return leave.Snapshot[leave.LeaveType]{Items: items, RefreshedAt: time.Now()}, nil
		}
		slog.Warn("live leave-type read failed, falling back to cache", "error", err)
	}

	items, refreshedAt, err := s.cache.GetLeaveTypes(ctx, snap.EmployeeID)
	if err != nil {
		return leave.Snapshot[leave.LeaveType]{}, err
	}
	return leave.Snapshot[leave.LeaveType]{Items: items, FromCache: true, RefreshedAt: refreshedAt}, nil
}

func (s *Service) Allocations(ctx context.Context, year int) (leave.Snapshot[leave.Allocation], error) {
	snap, err := s.session()
	if err != nil {
		return leave.Snapshot[leave.Allocation]{}, err
	}

	if s.conn.Online() {
		items, err := s.remote.ListAllocations(ctx, snap.EmployeeID, year)
		if err == nil {
			s.refresh(func() error { return s.cache.ReplaceAllocations(ctx, snap.EmployeeID, year, items) })
			return leave.Snapshot[leave.Allocation]{Items: items, RefreshedAt: time.Now()}, nil
		}
		slog.Warn("live allocation read failed, falling back to cache", "year", year, "error", err)
	}

	items, refreshedAt, err := s.cache.GetAllocations(ctx, snap.EmployeeID, year)
	if err != nil {
		return leave.Snapshot[leave.Allocation]{}, err
	}
	return leave.Snapshot[leave.Allocation]{Items: items, FromCache: true, RefreshedAt: refreshedAt}, nil
}

func (s *Service) BlockedDates(ctx context.Context) (leave.Snapshot[leave.BlockedDate], error) {
	snap, err := s.session()
	if err != nil {
		return leave.Snapshot[leave.BlockedDate]{}, err
	}

	if s.conn.Online() {
		items, err := s.remote.ListBlockedDates(ctx)
		if err == nil {
			s.refresh(func() error { return s.cache.ReplaceBlockedDates(ctx, snap.EmployeeID, items) })
			return leave.Snapshot[leave.BlockedDate]{Items: items, RefreshedAt: time.Now()}, nil
		}
		slog.Warn("live blocked-date read failed, falling back to cache", "error", err)
	}

	items, refreshedAt, err := s.cache.GetBlockedDates(ctx, snap.EmployeeID)
	if err != nil {
		return leave.Snapshot[leave.BlockedDate]{}, err
	}
	return leave.Snapshot[leave.BlockedDate]{Items: items, FromCache: true, RefreshedAt: refreshedAt}, nil
}

// Submit tries the remote system first; offline or on a retryable failure
// the request is queued for the sync engine. A terminal rejection is
// propagated, never queued.
func (s *Service) Submit(ctx context.Context, req leave.SubmitLeaveRequest) (leave.SubmitResult, error) {
	snap, err := s.session()
	if err != nil {
		return leave.SubmitResult{}, err
	}
	if err := req.Validate(); err != nil {
		return leave.SubmitResult{}, err
	}

	start, end := req.Dates()

	if s.conn.Online() {
		remoteID, err := s.remote.CreateLeaveRequest(ctx, req.LeaveTypeID, start, end, req.Reason)
		if err == nil {
			return leave.SubmitResult{RemoteID: &remoteID}, nil
		}
		if remote.IsTerminal(err) {
			return leave.SubmitResult{}, fmt.Errorf("%w: %w", leave.ErrLeaveRequestRejected, err)
		}
		slog.Warn("live submit failed, queueing", "error", err)
	}

	return s.enqueue(ctx, outbox.PendingMutation{
		Kind:        outbox.KindCreateRequest,
		OwnerID:     snap.EmployeeID,
		LeaveTypeID: req.LeaveTypeID,
		StartDate:   start,
		EndDate:     end,
		Reason:      req.Reason,
	})
}

// Decide applies an approve/refuse decision, queueing it when the remote
// call cannot be made.
func (s *Service) Decide(ctx context.Context, leaveID string, approve bool) (leave.SubmitResult, error) {
	snap, err := s.session()
	if err != nil {
		return leave.SubmitResult{}, err
	}
	if !snap.IsManager {
		return leave.SubmitResult{}, leave.ErrNoSession
	}

	kind := outbox.KindApprove
	call := s.remote.ApproveLeave
	if !approve {
		kind = outbox.KindRefuse
		call = s.remote.RefuseLeave
	}

	if s.conn.Online() {
		err := call(ctx, leaveID)
		if err == nil {
			return leave.SubmitResult{}, nil
		}
		if remote.IsTerminal(err) {
			return leave.SubmitResult{}, fmt.Errorf("%w: %s", leave.ErrDecisionConflict, err.Error())
		}
		slog.Warn("live decision failed, queueing", "leave_id", leaveID, "error", err)
	}

	return s.enqueue(ctx, outbox.PendingMutation{
		Kind:           kind,
		OwnerID:        snap.UserID,
		SubjectLeaveID: &leaveID,
	})
}

func (s *Service) enqueue(ctx context.Context, m outbox.PendingMutation) (leave.SubmitResult, error) {
	stored, err := s.queue.Enqueue(ctx, m)
	if err != nil {
		return leave.SubmitResult{}, fmt.Errorf("enqueue mutation: %w", err)
	}

	if count, err := s.queue.PendingCount(ctx); err == nil {
		s.hub.Publish(events.Event{Type: events.TypePendingCountChanged, Data: map[string]int{"count": count}})
	}

	slog.Info("mutation queued", "mutation_id", stored.ID, "kind", stored.Kind)
	return leave.SubmitResult{Queued: true, MutationID: &stored.ID}, nil
}

// PendingMutations lists the owner's queued mutations, every status, for
// offline-mode display.
func (s *Service) PendingMutations(ctx context.Context) ([]outbox.PendingMutation, error) {
	snap, err := s.session()
	if err != nil {
		return nil, err
	}

	owner := snap.EmployeeID
	if snap.IsManager {
		owner = snap.UserID
	}
	mine, err := s.queue.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	if !snap.IsManager || snap.EmployeeID == snap.UserID {
		return mine, nil
	}

	// Managers also own request mutations under their employee id.
	own, err := s.queue.ListByOwner(ctx, snap.EmployeeID)
	if err != nil {
		return nil, err
	}
	return append(mine, own...), nil
}

func (s *Service) PendingCount(ctx context.Context) (int, error) {
	return s.queue.PendingCount(ctx)
}

// ClearCache wipes ledgers, cached snapshots and queued decisions for one
// scope. Backs the "reset local data" UI action.
func (s *Service) ClearCache(ctx context.Context, ownerID string) error {
	if err := s.ledger.ClearScope(ctx, ownerID); err != nil {
		return fmt.Errorf("clear ledger: %w", err)
	}
	if err := s.cache.ClearScope(ctx, ownerID); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	if err := s.queue.DeleteDecisionsByOwner(ctx, ownerID); err != nil {
		return fmt.Errorf("clear queued decisions: %w", err)
	}

	slog.Info("local data cleared", "scope_id", ownerID)
	return nil
}

func (s *Service) refresh(fn func() error) {
	if err := fn(); err != nil {
		slog.Warn("cache refresh failed", "error", err)
	}
}
