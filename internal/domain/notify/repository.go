package notify

import (
	"context"

	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/leave"
)

// LedgerRepository is the dedup ledger both pollers write through. Entries
// are never mutated; they are only cleared by the reset-local-data flow.
type LedgerRepository interface {
	// SeenLeaveIDs returns the set of leave ids this manager has already
	// been shown as awaiting approval.
	SeenLeaveIDs(ctx context.Context, managerID string) (map[string]struct{}, error)

	// MarkSeen records the given leaves as surfaced to the manager. Already
	// present ids are ignored.
	MarkSeen(ctx context.Context, managerID string, leaveIDs []string) error

	// HasNotified reports whether the employee was already notified of this
	// leave reaching the given status.
	HasNotified(ctx context.Context, employeeID, leaveID string, status leave.LeaveStatus) (bool, error)

	// MarkNotified records the notification. Inserting an existing tuple is
	// a no-op.
	MarkNotified(ctx context.Context, employeeID, leaveID string, status leave.LeaveStatus) error

	// ClearScope drops all ledger rows for one scope id (employee id or
	// manager user id).
	ClearScope(ctx context.Context, scopeID string) error
}

// Notifier is the platform notification delivery boundary (toast or local
// notification). Delivery is at-least-once; a failed dispatch after the
// ledger write is not retried.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
