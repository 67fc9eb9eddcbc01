package outbox

import (
	"context"
	"time"
)

// Repository is the durable pending-mutation queue. Status transitions are
// driven exclusively by the sync engine; enqueue and the list operations are
// the UI-facing surface.
type Repository interface {
	// Enqueue stores the mutation with a fresh id, status pending and
	// created_at set, and returns the stored record.
	Enqueue(ctx context.Context, m PendingMutation) (PendingMutation, error)

	// ListUnsynced returns mutations with status pending or failed, oldest
	// first, preserving the causal order of user actions.
	ListUnsynced(ctx context.Context) ([]PendingMutation, error)

	// ListByOwner returns every mutation for one owner regardless of status,
	// newest first, for offline-mode display.
	ListByOwner(ctx context.Context, ownerID string) ([]PendingMutation, error)

	// GetByID returns a single mutation or ErrMutationNotFound.
	GetByID(ctx context.Context, id string) (PendingMutation, error)

	// MarkSyncing starts a remote attempt: sets status syncing, increments
	// sync_attempts and stamps last_sync_attempt.
	MarkSyncing(ctx context.Context, id string) error

	// MarkOutcome records the result of an attempt (synced, failed or
	// conflicted) without touching the attempt counter.
	MarkOutcome(ctx context.Context, id string, status SyncStatus, syncErr *string) error

	// MarkSynced records a successful attempt together with the remote id
	// assigned for create_request mutations.
	MarkSynced(ctx context.Context, id string, remoteID *string) error

	// RecoverSyncing moves mutations stranded in status syncing back to
	// pending. A crash between MarkSyncing and the outcome write leaves such
	// rows behind; replay is safe because the remote applies decisions
	// idempotently and duplicate requests surface as terminal rejections.
	// Returns the number of rows recovered.
	RecoverSyncing(ctx context.Context) (int64, error)

	// PendingCount counts mutations still waiting to reach the remote system
	// (pending, syncing or failed).
	PendingCount(ctx context.Context) (int, error)

	// DeleteSyncedBefore purges synced mutations of the given kind created
	// before the cutoff. Returns the number of rows removed.
	DeleteSyncedBefore(ctx context.Context, kind Kind, cutoff time.Time) (int64, error)

	// DeleteDecisionsByOwner removes queued decision mutations for one owner.
	// Used by the reset-local-data flow.
	DeleteDecisionsByOwner(ctx context.Context, ownerID string) error
}
