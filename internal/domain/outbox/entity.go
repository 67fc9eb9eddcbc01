package outbox

import (
	"time"
)

// Kind identifies the remote operation a queued mutation maps to.
type Kind string

const (
	KindCreateRequest Kind = "create_request"
	KindApprove       Kind = "approve"
	KindRefuse        Kind = "refuse"
)

// IsDecision reports whether the mutation targets an existing leave.
func (k Kind) IsDecision() bool {
	return k == KindApprove || k == KindRefuse
}

// Valid reports whether the kind is one of the known mutation kinds.
func (k Kind) Valid() bool {
	return k == KindCreateRequest || k == KindApprove || k == KindRefuse
}

// SyncStatus is the lifecycle state of a queued mutation. Persisted as the
// string values below; the mapping is stable and must not change.
type SyncStatus string

const (
	StatusPending    SyncStatus = "pending"
	StatusSyncing    SyncStatus = "syncing"
	StatusSynced     SyncStatus = "synced"
	StatusFailed     SyncStatus = "failed"
	StatusConflicted SyncStatus = "conflicted"
)

// PendingMutation is one queued offline action: a leave request creation or
// an approve/refuse decision that could not be applied remotely right away.
type PendingMutation struct {
	ID             string  `json:"id"`
	Kind           Kind    `json:"kind"`
	OwnerID        string  `json:"owner_id"`
	SubjectLeaveID *string `json:"subject_leave_id,omitempty"`

	// Payload for create_request mutations; empty for decisions.
	LeaveTypeID string    `json:"leave_type_id,omitempty"`
	StartDate   time.Time `json:"start_date,omitempty"`
	EndDate     time.Time `json:"end_date,omitempty"`
	Reason      string    `json:"reason,omitempty"`

	CreatedAt       time.Time  `json:"created_at"`
	SyncStatus      SyncStatus `json:"sync_status"`
	SyncError       *string    `json:"sync_error,omitempty"`
	SyncAttempts    int        `json:"sync_attempts"`
	LastSyncAttempt *time.Time `json:"last_sync_attempt,omitempty"`
	RemoteID        *string    `json:"remote_id,omitempty"`
}
