package leave

import (
	"context"
	"time"
)

// CacheRepository persists last-known-good snapshots of remote collections
// for offline reads. Every Replace call swaps the whole scoped snapshot in
// one transaction; partial mixes of old and new rows must never survive.
type CacheRepository interface {
	ReplaceLeaves(ctx context.Context, employeeID string, items []Leave) error
	GetLeaves(ctx context.Context, employeeID string) ([]Leave, time.Time, error)

	ReplaceLeaveTypes(ctx context.Context, employeeID string, items []LeaveType) error
	GetLeaveTypes(ctx context.Context, employeeID string) ([]LeaveType, time.Time, error)

	ReplaceAllocations(ctx context.Context, employeeID string, year int, items []Allocation) error
	GetAllocations(ctx context.Context, employeeID string, year int) ([]Allocation, time.Time, error)

	ReplaceBlockedDates(ctx context.Context, employeeID string, items []BlockedDate) error
	GetBlockedDates(ctx context.Context, employeeID string) ([]BlockedDate, time.Time, error)

	// ClearScope drops every cached collection for one employee.
	ClearScope(ctx context.Context, employeeID string) error
}
