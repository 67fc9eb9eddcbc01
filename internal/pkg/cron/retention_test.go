package cron

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/outbox"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/pkg/database"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/repository/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// insertMutation writes a row with a controlled created_at, bypassing
// Enqueue which always stamps now.
func insertMutation(t *testing.T, db *database.DB, id string, kind outbox.Kind, status outbox.SyncStatus, createdAt time.Time) {
	t.Helper()

	_, err := db.ExecContext(context.Background(), `
		INSERT INTO pending_mutations (id, kind, owner_id, subject_leave_id, leave_type_id, start_date, end_date, reason,
			created_at, sync_status, sync_error, sync_attempts, last_sync_attempt, remote_id)
		VALUES (?, ?, 'emp-1', NULL, 'lt-annual', NULL, NULL, '', ?, ?, NULL, 0, NULL, NULL)
	`, id, kind, createdAt.UTC(), status)
	require.NoError(t, err)
}

func TestRetentionJobs_PurgeSyncedMutations(t *testing.T) {
	ctx := context.Background()

	db, err := database.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := sqlite.NewOutboxRepository(db)
	now := time.Now()

	insertMutation(t, db, "old-synced-request", outbox.KindCreateRequest, outbox.StatusSynced, now.Add(-40*24*time.Hour))
	insertMutation(t, db, "fresh-synced-request", outbox.KindCreateRequest, outbox.StatusSynced, now.Add(-2*24*time.Hour))
	insertMutation(t, db, "old-synced-approve", outbox.KindApprove, outbox.StatusSynced, now.Add(-8*24*time.Hour))
	insertMutation(t, db, "fresh-synced-approve", outbox.KindApprove, outbox.StatusSynced, now.Add(-1*24*time.Hour))
	insertMutation(t, db, "old-pending-request", outbox.KindCreateRequest, outbox.StatusPending, now.Add(-40*24*time.Hour))

	jobs := NewRetentionJobs(repo, 0, 0) // defaults: 30d requests, 7d decisions
	require.NoError(t, jobs.PurgeSyncedMutations(ctx))

	_, err = repo.GetByID(ctx, "old-synced-request")
	assert.ErrorIs(t, err, outbox.ErrMutationNotFound)
	_, err = repo.GetByID(ctx, "old-synced-approve")
	assert.ErrorIs(t, err, outbox.ErrMutationNotFound)

	for _, id := range []string{"fresh-synced-request", "fresh-synced-approve", "old-pending-request"} {
		_, err = repo.GetByID(ctx, id)
		assert.NoError(t, err, "%s must survive the sweep", id)
	}
}

func TestScheduler_RunOnce(t *testing.T) {
	s := NewScheduler()

	runs := 0
	s.AddJob("counter", time.Hour, func(_ context.Context) error {
		runs++
		return nil
	})

	s.RunOnce(context.Background())
	s.RunOnce(context.Background())
	assert.Equal(t, 2, runs)
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler()

	done := make(chan struct{})
	var once bool
	s.AddJob("immediate", time.Hour, func(_ context.Context) error {
		if !once {
			once = true
			close(done)
		}
		return nil
	})

	s.Start()
	s.Start() // idempotent

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not run on start")
	}

	s.Stop()
}
