package poller

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/leave"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/notify"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/session"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/pkg/events"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/service/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEmployeeFixture(t *testing.T) (*EmployeePoller, *pollerRemote, *recordingNotifier, leave.CacheRepository) {
	t.Helper()

	ledger, cache := newLedger(t)
	remote := &pollerRemote{}
	recorder := &recordingNotifier{}
	dispatcher := notification.NewDispatcher(recorder, events.NewHub())

	holder := session.NewHolder()
	holder.Set(session.Snapshot{
		UserID:      "user-1",
		EmployeeID:  "emp-1",
		LastLoginAt: time.Now(),
	})

	return NewEmployeePoller(remote, ledger, cache, dispatcher, holder, time.Hour), remote, recorder, cache
}

func TestEmployeePoller_FirstPassSeedsWithoutNotifying(t *testing.T) {
	ctx := context.Background()
	p, remote, recorder, _ := newEmployeeFixture(t)

	// Decisions that predate this run were acted on long ago; waking the
	// user up about them would be noise.
	remote.setOwn([]leave.Leave{
		ownLeave("leave-1", leave.LeaveStatusApproved),
		ownLeave("leave-2", leave.LeaveStatusRejected),
		ownLeave("leave-3", leave.LeaveStatusWaitingApproval),
	})

	require.NoError(t, p.pass(ctx))
	assert.Empty(t, recorder.all())

	// The seeded statuses must not fire on later passes either.
	require.NoError(t, p.pass(ctx))
	assert.Empty(t, recorder.all())
}

func TestEmployeePoller_NewDecisionNotifiesExactlyOnce(t *testing.T) {
	ctx := context.Background()
	p, remote, recorder, _ := newEmployeeFixture(t)

	remote.setOwn([]leave.Leave{
		ownLeave("leave-1", leave.LeaveStatusWaitingApproval),
	})
	require.NoError(t, p.pass(ctx))
	require.Empty(t, recorder.all())

	remote.setOwn([]leave.Leave{
		ownLeave("leave-1", leave.LeaveStatusRejected),
	})
	require.NoError(t, p.pass(ctx))
	require.NoError(t, p.pass(ctx))
	require.NoError(t, p.pass(ctx))

	items := recorder.all()
	require.Len(t, items, 1)
	assert.Equal(t, notify.KindLeaveRejected, items[0].Kind)
	assert.Equal(t, "emp-1", items[0].RecipientID)
	assert.Equal(t, "leave-1", items[0].LeaveID)
}

func TestEmployeePoller_ApprovalNotification(t *testing.T) {
	ctx := context.Background()
	p, remote, recorder, _ := newEmployeeFixture(t)

	remote.setOwn(nil)
	require.NoError(t, p.pass(ctx))

	remote.setOwn([]leave.Leave{
		ownLeave("leave-1", leave.LeaveStatusApproved),
	})
	require.NoError(t, p.pass(ctx))

	items := recorder.all()
	require.Len(t, items, 1)
	assert.Equal(t, notify.KindLeaveApproved, items[0].Kind)
	assert.Equal(t, "Leave approved", items[0].Title)
}

func TestEmployeePoller_PassRefreshesCache(t *testing.T) {
	ctx := context.Background()
	p, remote, _, cache := newEmployeeFixture(t)

	remote.setOwn([]leave.Leave{
		ownLeave("leave-1", leave.LeaveStatusWaitingApproval),
		ownLeave("leave-2", leave.LeaveStatusApproved),
	})
	require.NoError(t, p.pass(ctx))

	items, refreshedAt, err := cache.GetLeaves(ctx, "emp-1")
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.False(t, refreshedAt.IsZero())
}

func TestEmployeePoller_RestartSeedsAgain(t *testing.T) {
	ctx := context.Background()
	p, remote, recorder, _ := newEmployeeFixture(t)

	remote.setOwn(nil)
	require.NoError(t, p.pass(ctx))
	require.True(t, p.seeded.Load())

	p.Start()
	assert.Eventually(t, p.IsRunning, time.Second, 5*time.Millisecond)
	p.Stop()

	// Start reset the seeding marker, so decisions present at the next
	// first pass are recorded silently.
	remote.setOwn([]leave.Leave{
		ownLeave("leave-1", leave.LeaveStatusApproved),
	})
	p.seeded.Store(false)
	require.NoError(t, p.pass(ctx))
	assert.Empty(t, recorder.all())
}
