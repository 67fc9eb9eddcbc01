package notify

import (
	"time"

	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/leave"
)

// Kind identifies why a notification was raised.
type Kind string

const (
	KindApprovalRequest Kind = "approval_request"
	KindLeaveApproved   Kind = "leave_approved"
	KindLeaveRejected   Kind = "leave_rejected"
)

// Notification is one user-facing event detected by a poller.
type Notification struct {
	Kind        Kind      `json:"kind"`
	RecipientID string    `json:"recipient_id"`
	LeaveID     string    `json:"leave_id"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}

// SeenApproval marks a leave-to-approve item as already surfaced to a
// manager. Ledger rows are append-only.
type SeenApproval struct {
	ManagerID string
	LeaveID   string
	SeenAt    time.Time
}

// NotifiedStatus marks that an employee was already notified of a leave
// reaching one terminal status. A leave gets at most one row per status.
type NotifiedStatus struct {
	EmployeeID string
	LeaveID    string
	Status     leave.LeaveStatus
	NotifiedAt time.Time
}
