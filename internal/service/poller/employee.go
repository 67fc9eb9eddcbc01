package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/leave"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/notify"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/session"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/remote"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/service/notification"
)

// EmployeePoller watches the employee's own leaves for terminal decisions
// (approved or rejected) and notifies each exactly once.
type EmployeePoller struct {
	runner

	remote     remote.Client
	ledger     notify.LedgerRepository
	cache      leave.CacheRepository
	dispatcher *notification.Dispatcher
	holder     *session.Holder

	// seeded flips after the first successful pass of a run. The first pass
	// only records current terminal statuses: every leave existing at login
	// would otherwise notify spuriously.
	seeded atomic.Bool
}

func NewEmployeePoller(
	remoteClient remote.Client,
	ledger notify.LedgerRepository,
	cache leave.CacheRepository,
	dispatcher *notification.Dispatcher,
	holder *session.Holder,
	interval time.Duration,
) *EmployeePoller {
	if interval == 0 {
		interval = time.Minute
	}
	p := &EmployeePoller{
		remote:     remoteClient,
		ledger:     ledger,
		cache:      cache,
		dispatcher: dispatcher,
		holder:     holder,
	}
	p.runner.name = "employee_decisions"
	p.runner.interval = interval
	return p
}

func (p *EmployeePoller) Start() {
	p.seeded.Store(false)
	p.runner.start(func() bool {
		_, ok := p.holder.Current()
		return ok
	}, p.pass)
}

func (p *EmployeePoller) Stop() {
	p.runner.stop()
}

func (p *EmployeePoller) IsRunning() bool {
	return p.runner.isRunning()
}

func (p *EmployeePoller) pass(ctx context.Context) error {
	snap, ok := p.holder.Current()
	if !ok {
		return nil
	}

	leaves, err := p.remote.ListOwnLeaves(ctx, snap.EmployeeID)
	if err != nil {
		return fmt.Errorf("list own leaves: %w", err)
	}

	// The poller already holds a fresh snapshot; one write keeps offline
	// reads current.
	if err := p.cache.ReplaceLeaves(ctx, snap.EmployeeID, leaves); err != nil {
		slog.Warn("employee poller: refresh leave cache", "error", err)
	}

	seeding := !p.seeded.Load()
	for _, l := range leaves {
		if !l.Status.IsTerminal() {
			continue
		}

		if seeding {
			if err := p.ledger.MarkNotified(ctx, snap.EmployeeID, l.ID, l.Status); err != nil {
				return fmt.Errorf("seed ledger: %w", err)
			}
			continue
		}

		notified, err := p.ledger.HasNotified(ctx, snap.EmployeeID, l.ID, l.Status)
		if err != nil {
			return fmt.Errorf("check ledger: %w", err)
		}
		if notified {
			continue
		}

		// Ledger first, then dispatch: a crash in between loses one toast,
		// never duplicates one.
		if err := p.ledger.MarkNotified(ctx, snap.EmployeeID, l.ID, l.Status); err != nil {
			return fmt.Errorf("record ledger: %w", err)
		}
		p.dispatcher.Dispatch(ctx, p.decisionNotification(snap.EmployeeID, l))
	}

	p.seeded.Store(true)
	return nil
}

func (p *EmployeePoller) decisionNotification(employeeID string, l leave.Leave) notify.Notification {
	kind := notify.KindLeaveApproved
	title := "Leave approved"
	if l.Status == leave.LeaveStatusRejected {
		kind = notify.KindLeaveRejected
		title = "Leave rejected"
	}
	return notify.Notification{
		Kind:        kind,
		RecipientID: employeeID,
		LeaveID:     l.ID,
		Title:       title,
		Message:     fmt.Sprintf("%s (%s – %s)", l.LeaveTypeName, l.StartDate.Format("2006-01-02"), l.EndDate.Format("2006-01-02")),
	}
}
