package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/leave"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/session"
)

// ErrorKind separates failures the sync engine may retry from well-formed
// rejections that must never be retried.
type ErrorKind string

const (
	// KindRetryable covers transport failures, timeouts and 5xx responses.
	KindRetryable ErrorKind = "retryable"
	// KindTerminal covers validation rejections and state conflicts on the
	// target record.
	KindTerminal ErrorKind = "terminal"
)

// Error is the typed failure contract every Client implementation must
// honor. The queue and engine classify outcomes by Kind, never by message.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable wraps err as a transient failure.
func Retryable(op string, err error) *Error {
	return &Error{Kind: KindRetryable, Op: op, Err: err}
}

// Terminal builds a non-retryable failure carrying the remote rejection.
func Terminal(op, message string) *Error {
	return &Error{Kind: KindTerminal, Op: op, Message: message}
}

// IsRetryable reports whether err is a transient remote failure.
func IsRetryable(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == KindRetryable
}

// IsTerminal reports whether err is a non-retryable remote rejection.
func IsTerminal(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == KindTerminal
}

// Client is the remote ERP boundary. Every call carries its own timeout and
// fails with a *Error so callers can distinguish retryable from terminal
// outcomes.
type Client interface {
	// Login authenticates against the ERP and returns the session snapshot
	// derived from the issued token's claims.
	Login(ctx context.Context, email, password string) (session.Snapshot, error)

	CreateLeaveRequest(ctx context.Context, leaveTypeID string, startDate, endDate time.Time, reason string) (string, error)
	ApproveLeave(ctx context.Context, leaveID string) error
	RefuseLeave(ctx context.Context, leaveID string) error

	ListLeavesToApprove(ctx context.Context) ([]leave.Leave, error)
	ListOwnLeaves(ctx context.Context, employeeID string) ([]leave.Leave, error)
	ListLeaveTypes(ctx context.Context) ([]leave.LeaveType, error)
	ListAllocations(ctx context.Context, employeeID string, year int) ([]leave.Allocation, error)
	ListBlockedDates(ctx context.Context) ([]leave.BlockedDate, error)

	// Ping probes reachability without authentication. Used by the
	// connectivity monitor.
	Ping(ctx context.Context) error
}
