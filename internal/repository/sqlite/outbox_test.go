package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enqueueRequest(t *testing.T, repo outbox.Repository, ownerID, reason string) outbox.PendingMutation {
	t.Helper()

	m, err := repo.Enqueue(context.Background(), outbox.PendingMutation{
		Kind:        outbox.KindCreateRequest,
		OwnerID:     ownerID,
		LeaveTypeID: "lt-annual",
		StartDate:   time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC),
		Reason:      reason,
	})
	require.NoError(t, err)
	// Distinct created_at so ordering assertions are deterministic.
	time.Sleep(2 * time.Millisecond)
	return m
}

func enqueueDecision(t *testing.T, repo outbox.Repository, ownerID, leaveID string, kind outbox.Kind) outbox.PendingMutation {
	t.Helper()

	m, err := repo.Enqueue(context.Background(), outbox.PendingMutation{
		Kind:           kind,
		OwnerID:        ownerID,
		SubjectLeaveID: &leaveID,
	})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	return m
}

func TestOutboxRepository_Enqueue_SetsDefaults(t *testing.T) {
	ctx := context.Background()
	repo := NewOutboxRepository(newTestDB(t))

	m := enqueueRequest(t, repo, "emp-1", "family trip")
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, outbox.StatusPending, m.SyncStatus)
	assert.Equal(t, 0, m.SyncAttempts)
	assert.False(t, m.CreatedAt.IsZero())

	stored, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, stored.ID)
	assert.Equal(t, outbox.KindCreateRequest, stored.Kind)
	assert.Equal(t, "emp-1", stored.OwnerID)
	assert.Equal(t, "lt-annual", stored.LeaveTypeID)
	assert.Equal(t, "family trip", stored.Reason)
	assert.Equal(t, outbox.StatusPending, stored.SyncStatus)
	assert.Nil(t, stored.SyncError)
	assert.Nil(t, stored.RemoteID)
	assert.Nil(t, stored.LastSyncAttempt)
}

func TestOutboxRepository_Enqueue_RejectsUnknownKind(t *testing.T) {
	ctx := context.Background()
	repo := NewOutboxRepository(newTestDB(t))

	_, err := repo.Enqueue(ctx, outbox.PendingMutation{
		Kind:    outbox.Kind("cancel"),
		OwnerID: "emp-1",
	})
	assert.ErrorIs(t, err, outbox.ErrInvalidKind)

	count, err := repo.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestOutboxRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewOutboxRepository(newTestDB(t))

	_, err := repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, outbox.ErrMutationNotFound)

	assert.ErrorIs(t, repo.MarkSyncing(ctx, "missing"), outbox.ErrMutationNotFound)
	assert.ErrorIs(t, repo.MarkSynced(ctx, "missing", nil), outbox.ErrMutationNotFound)
}

func TestOutboxRepository_ListUnsynced_OrderAndFilter(t *testing.T) {
	ctx := context.Background()
	repo := NewOutboxRepository(newTestDB(t))

	first := enqueueRequest(t, repo, "emp-1", "first")
	second := enqueueRequest(t, repo, "emp-1", "second")
	third := enqueueRequest(t, repo, "emp-1", "third")

	require.NoError(t, repo.MarkSyncing(ctx, second.ID))
	require.NoError(t, repo.MarkSynced(ctx, second.ID, nil))

	msg := "connection reset"
	require.NoError(t, repo.MarkSyncing(ctx, third.ID))
	require.NoError(t, repo.MarkOutcome(ctx, third.ID, outbox.StatusFailed, &msg))

	unsynced, err := repo.ListUnsynced(ctx)
	require.NoError(t, err)
	require.Len(t, unsynced, 2)

	// Oldest first: creation order is the replay order.
	assert.Equal(t, first.ID, unsynced[0].ID)
	assert.Equal(t, third.ID, unsynced[1].ID)
}

func TestOutboxRepository_ListUnsynced_ExcludesConflicted(t *testing.T) {
	ctx := context.Background()
	repo := NewOutboxRepository(newTestDB(t))

	m := enqueueDecision(t, repo, "mgr-1", "leave-1", outbox.KindApprove)

	msg := "leave was already cancelled"
	require.NoError(t, repo.MarkSyncing(ctx, m.ID))
	require.NoError(t, repo.MarkOutcome(ctx, m.ID, outbox.StatusConflicted, &msg))

	unsynced, err := repo.ListUnsynced(ctx)
	require.NoError(t, err)
	assert.Empty(t, unsynced)
}

func TestOutboxRepository_RecoverSyncing(t *testing.T) {
	ctx := context.Background()
	repo := NewOutboxRepository(newTestDB(t))

	stranded := enqueueRequest(t, repo, "emp-1", "interrupted mid-attempt")
	pending := enqueueRequest(t, repo, "emp-1", "never attempted")
	synced := enqueueRequest(t, repo, "emp-1", "already done")

	require.NoError(t, repo.MarkSyncing(ctx, stranded.ID))
	require.NoError(t, repo.MarkSyncing(ctx, synced.ID))
	require.NoError(t, repo.MarkSynced(ctx, synced.ID, nil))

	recovered, err := repo.RecoverSyncing(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), recovered)

	stored, err := repo.GetByID(ctx, stranded.ID)
	require.NoError(t, err)
	assert.Equal(t, outbox.StatusPending, stored.SyncStatus)
	assert.Equal(t, 1, stored.SyncAttempts, "the interrupted attempt stays counted")

	unsynced, err := repo.ListUnsynced(ctx)
	require.NoError(t, err)
	require.Len(t, unsynced, 2)
	assert.Equal(t, stranded.ID, unsynced[0].ID)
	assert.Equal(t, pending.ID, unsynced[1].ID)
}

func TestOutboxRepository_MarkSyncing_IncrementsAttempts(t *testing.T) {
	ctx := context.Background()
	repo := NewOutboxRepository(newTestDB(t))

	m := enqueueRequest(t, repo, "emp-1", "checkup")

	require.NoError(t, repo.MarkSyncing(ctx, m.ID))
	require.NoError(t, repo.MarkSyncing(ctx, m.ID))

	stored, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, outbox.StatusSyncing, stored.SyncStatus)
	assert.Equal(t, 2, stored.SyncAttempts)
	require.NotNil(t, stored.LastSyncAttempt)
}

func TestOutboxRepository_MarkOutcome_PreservesAttempts(t *testing.T) {
	ctx := context.Background()
	repo := NewOutboxRepository(newTestDB(t))

	m := enqueueRequest(t, repo, "emp-1", "checkup")

	msg := "timeout"
	require.NoError(t, repo.MarkSyncing(ctx, m.ID))
	require.NoError(t, repo.MarkOutcome(ctx, m.ID, outbox.StatusFailed, &msg))

	stored, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, outbox.StatusFailed, stored.SyncStatus)
	assert.Equal(t, 1, stored.SyncAttempts)
	require.NotNil(t, stored.SyncError)
	assert.Equal(t, "timeout", *stored.SyncError)
}

func TestOutboxRepository_MarkSynced_StoresRemoteID(t *testing.T) {
	ctx := context.Background()
	repo := NewOutboxRepository(newTestDB(t))

	m := enqueueRequest(t, repo, "emp-1", "checkup")

	msg := "timeout"
	require.NoError(t, repo.MarkSyncing(ctx, m.ID))
	require.NoError(t, repo.MarkOutcome(ctx, m.ID, outbox.StatusFailed, &msg))

	remoteID := "leave-remote-9"
	require.NoError(t, repo.MarkSyncing(ctx, m.ID))
	require.NoError(t, repo.MarkSynced(ctx, m.ID, &remoteID))

	stored, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, outbox.StatusSynced, stored.SyncStatus)
	assert.Equal(t, 2, stored.SyncAttempts)
	assert.Nil(t, stored.SyncError, "success clears the last failure message")
	require.NotNil(t, stored.RemoteID)
	assert.Equal(t, remoteID, *stored.RemoteID)
}

func TestOutboxRepository_ListByOwner_NewestFirstAllStatuses(t *testing.T) {
	ctx := context.Background()
	repo := NewOutboxRepository(newTestDB(t))

	first := enqueueRequest(t, repo, "emp-1", "first")
	enqueueRequest(t, repo, "emp-2", "other owner")
	second := enqueueRequest(t, repo, "emp-1", "second")

	require.NoError(t, repo.MarkSyncing(ctx, first.ID))
	require.NoError(t, repo.MarkSynced(ctx, first.ID, nil))

	mine, err := repo.ListByOwner(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)
	assert.Equal(t, outbox.StatusSynced, mine[1].SyncStatus)
}

func TestOutboxRepository_PendingCount(t *testing.T) {
	ctx := context.Background()
	repo := NewOutboxRepository(newTestDB(t))

	pending := enqueueRequest(t, repo, "emp-1", "a")
	syncing := enqueueRequest(t, repo, "emp-1", "b")
	failed := enqueueRequest(t, repo, "emp-1", "c")
	synced := enqueueRequest(t, repo, "emp-1", "d")
	conflicted := enqueueRequest(t, repo, "emp-1", "e")
	_ = pending

	require.NoError(t, repo.MarkSyncing(ctx, syncing.ID))

	msg := "boom"
	require.NoError(t, repo.MarkSyncing(ctx, failed.ID))
	require.NoError(t, repo.MarkOutcome(ctx, failed.ID, outbox.StatusFailed, &msg))

	require.NoError(t, repo.MarkSyncing(ctx, synced.ID))
	require.NoError(t, repo.MarkSynced(ctx, synced.ID, nil))

	require.NoError(t, repo.MarkSyncing(ctx, conflicted.ID))
	require.NoError(t, repo.MarkOutcome(ctx, conflicted.ID, outbox.StatusConflicted, &msg))

	count, err := repo.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count, "pending, syncing and failed still count; synced and conflicted do not")
}

func TestOutboxRepository_DeleteSyncedBefore(t *testing.T) {
	ctx := context.Background()
	repo := NewOutboxRepository(newTestDB(t))

	synced := enqueueRequest(t, repo, "emp-1", "old synced")
	pending := enqueueRequest(t, repo, "emp-1", "still pending")
	decision := enqueueDecision(t, repo, "mgr-1", "leave-1", outbox.KindApprove)

	require.NoError(t, repo.MarkSyncing(ctx, synced.ID))
	require.NoError(t, repo.MarkSynced(ctx, synced.ID, nil))
	require.NoError(t, repo.MarkSyncing(ctx, decision.ID))
	require.NoError(t, repo.MarkSynced(ctx, decision.ID, nil))

	cutoff := time.Now().Add(time.Hour)
	n, err := repo.DeleteSyncedBefore(ctx, outbox.KindCreateRequest, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.GetByID(ctx, synced.ID)
	assert.ErrorIs(t, err, outbox.ErrMutationNotFound)

	// Pending rows and other kinds survive regardless of age.
	_, err = repo.GetByID(ctx, pending.ID)
	assert.NoError(t, err)
	_, err = repo.GetByID(ctx, decision.ID)
	assert.NoError(t, err)
}

func TestOutboxRepository_DeleteDecisionsByOwner(t *testing.T) {
	ctx := context.Background()
	repo := NewOutboxRepository(newTestDB(t))

	request := enqueueRequest(t, repo, "mgr-1", "own request")
	approve := enqueueDecision(t, repo, "mgr-1", "leave-1", outbox.KindApprove)
	refuse := enqueueDecision(t, repo, "mgr-1", "leave-2", outbox.KindRefuse)
	other := enqueueDecision(t, repo, "mgr-2", "leave-3", outbox.KindApprove)

	require.NoError(t, repo.DeleteDecisionsByOwner(ctx, "mgr-1"))

	_, err := repo.GetByID(ctx, approve.ID)
	assert.ErrorIs(t, err, outbox.ErrMutationNotFound)
	_, err = repo.GetByID(ctx, refuse.ID)
	assert.ErrorIs(t, err, outbox.ErrMutationNotFound)

	_, err = repo.GetByID(ctx, request.ID)
	assert.NoError(t, err, "create_request mutations are never decisions")
	_, err = repo.GetByID(ctx, other.ID)
	assert.NoError(t, err)
}
