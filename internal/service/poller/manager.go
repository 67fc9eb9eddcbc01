package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/notify"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/session"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/remote"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/service/notification"
)

// ManagerPoller watches the remote "leaves awaiting approval" list and
// raises one notification per leave not yet surfaced to this manager.
type ManagerPoller struct {
	runner

	remote     remote.Client
	ledger     notify.LedgerRepository
	dispatcher *notification.Dispatcher
	holder     *session.Holder
}

func NewManagerPoller(
	remoteClient remote.Client,
	ledger notify.LedgerRepository,
	dispatcher *notification.Dispatcher,
	holder *session.Holder,
	interval time.Duration,
) *ManagerPoller {
	if interval == 0 {
		interval = time.Minute
	}
	p := &ManagerPoller{
		remote:     remoteClient,
		ledger:     ledger,
		dispatcher: dispatcher,
		holder:     holder,
	}
	p.runner.name = "manager_approvals"
	p.runner.interval = interval
	return p
}

func (p *ManagerPoller) Start() {
	p.runner.start(func() bool {
		snap, ok := p.holder.Current()
		return ok && snap.IsManager
	}, p.pass)
}

func (p *ManagerPoller) Stop() {
	p.runner.stop()
}

func (p *ManagerPoller) IsRunning() bool {
	return p.runner.isRunning()
}

// pass notifies every fetched leave the manager has not seen, then marks
// ALL fetched ids as seen. Marking the whole fetch (not just the new items)
// keeps a partially failed earlier pass from re-raising the same item.
func (p *ManagerPoller) pass(ctx context.Context) error {
	snap, ok := p.holder.Current()
	if !ok {
		return nil
	}

	leaves, err := p.remote.ListLeavesToApprove(ctx)
	if err != nil {
		return fmt.Errorf("list leaves to approve: %w", err)
	}
	if len(leaves) == 0 {
		return nil
	}

	seen, err := p.ledger.SeenLeaveIDs(ctx, snap.UserID)
	if err != nil {
		return fmt.Errorf("load seen ledger: %w", err)
	}

	fetchedIDs := make([]string, 0, len(leaves))
	for _, l := range leaves {
		fetchedIDs = append(fetchedIDs, l.ID)
		if _, alreadySeen := seen[l.ID]; alreadySeen {
			continue
		}

		p.dispatcher.Dispatch(ctx, notify.Notification{
			Kind:        notify.KindApprovalRequest,
			RecipientID: snap.UserID,
			LeaveID:     l.ID,
			Title:       "Leave approval needed",
			Message:     fmt.Sprintf("%s requested %s (%s – %s)", l.EmployeeName, l.LeaveTypeName, l.StartDate.Format("2006-01-02"), l.EndDate.Format("2006-01-02")),
		})
	}

	if err := p.ledger.MarkSeen(ctx, snap.UserID, fetchedIDs); err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}

	return nil
}
