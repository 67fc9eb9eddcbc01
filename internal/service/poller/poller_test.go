package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/leave"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/notify"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/session"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/pkg/database"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/repository/sqlite"
	"github.com/stretchr/testify/require"
)

// pollerRemote serves scripted leave lists to both pollers.
type pollerRemote struct {
	mu        sync.Mutex
	approvals []leave.Leave
	own       []leave.Leave
	listErr   error
}

func (f *pollerRemote) setApprovals(items []leave.Leave) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.approvals = items
}

func (f *pollerRemote) setOwn(items []leave.Leave) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.own = items
}

func (f *pollerRemote) ListLeavesToApprove(_ context.Context) ([]leave.Leave, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.approvals, f.listErr
}

func (f *pollerRemote) ListOwnLeaves(_ context.Context, _ string) ([]leave.Leave, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.own, f.listErr
}

func (f *pollerRemote) Login(_ context.Context, _, _ string) (session.Snapshot, error) {
	return session.Snapshot{}, errors.New("not scripted")
}
func (f *pollerRemote) CreateLeaveRequest(_ context.Context, _ string, _, _ time.Time, _ string) (string, error) {
	return "", errors.New("not scripted")
}
func (f *pollerRemote) ApproveLeave(_ context.Context, _ string) error  { return nil }
func (f *pollerRemote) RefuseLeave(_ context.Context, _ string) error   { return nil }
func (f *pollerRemote) ListLeaveTypes(_ context.Context) ([]leave.LeaveType, error) {
	return nil, nil
}
func (f *pollerRemote) ListAllocations(_ context.Context, _ string, _ int) ([]leave.Allocation, error) {
	return nil, nil
}
func (f *pollerRemote) ListBlockedDates(_ context.Context) ([]leave.BlockedDate, error) {
	return nil, nil
}
func (f *pollerRemote) Ping(_ context.Context) error { return nil }

// recordingNotifier captures dispatched notifications.
type recordingNotifier struct {
	mu    sync.Mutex
	items []notify.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
	return nil
}

func (r *recordingNotifier) all() []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Notification(nil), r.items...)
}

func newLedger(t *testing.T) (notify.LedgerRepository, leave.CacheRepository) {
	t.Helper()

	db, err := database.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlite.NewLedgerRepository(db), sqlite.NewCacheRepository(db)
}

func pendingLeave(id, employeeName string) leave.Leave {
	return leave.Leave{
		ID:            id,
		EmployeeID:    "emp-" + id,
		EmployeeName:  employeeName,
		LeaveTypeID:   "lt-annual",
		LeaveTypeName: "Annual Leave",
		StartDate:     time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC),
		Status:        leave.LeaveStatusWaitingApproval,
	}
}

func ownLeave(id string, status leave.LeaveStatus) leave.Leave {
	return leave.Leave{
		ID:            id,
		EmployeeID:    "emp-1",
		LeaveTypeID:   "lt-annual",
		LeaveTypeName: "Annual Leave",
		StartDate:     time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC),
		Status:        status,
	}
}
