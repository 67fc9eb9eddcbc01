package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/leave"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/pkg/database"
)

type cacheRepositoryImpl struct {
	db *database.DB
}

func NewCacheRepository(db *database.DB) leave.CacheRepository {
	return &cacheRepositoryImpl{db: db}
}

func (r *cacheRepositoryImpl) ReplaceLeaves(ctx context.Context, employeeID string, items []leave.Leave) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cached_leaves WHERE employee_id = ?`, employeeID); err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, item := range items {
			payload, err := json.Marshal(item)
			if err != nil {
				return fmt.Errorf("encode cached leave %s: %w", item.ID, err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO cached_leaves (employee_id, leave_id, payload, refreshed_at)
				VALUES (?, ?, ?, ?)
			`, employeeID, item.ID, string(payload), now)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *cacheRepositoryImpl) GetLeaves(ctx context.Context, employeeID string) ([]leave.Leave, time.Time, error) {
	query := `
		SELECT payload, refreshed_at
		FROM cached_leaves
		WHERE employee_id = ?
		ORDER BY leave_id
	`
	return querySnapshot[leave.Leave](ctx, r.db, query, employeeID)
}

func (r *cacheRepositoryImpl) ReplaceLeaveTypes(ctx context.Context, employeeID string, items []leave.LeaveType) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cached_leave_types WHERE employee_id = ?`, employeeID); err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, item := range items {
			payload, err := json.Marshal(item)
			if err != nil {
				return fmt.Errorf("encode cached leave type %s: %w", item.ID, err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO cached_leave_types (employee_id, leave_type_id, payload, refreshed_at)
				VALUES (?, ?, ?, ?)
			`, employeeID, item.ID, string(payload), now)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *cacheRepositoryImpl) GetLeaveTypes(ctx context.Context, employeeID string) ([]leave.LeaveType, time.Time, error) {
	query := `
		SELECT payload, refreshed_at
		FROM cached_leave_types
		WHERE employee_id = ?
		ORDER BY leave_type_id
	`
	return querySnapshot[leave.LeaveType](ctx, r.db, query, employeeID)
}

func (r *cacheRepositoryImpl) ReplaceAllocations(ctx context.Context, employeeID string, year int, items []leave.Allocation) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM cached_allocations WHERE employee_id = ? AND year = ?`, employeeID, year)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, item := range items {
			payload, err := json.Marshal(item)
			if err != nil {
				return fmt.Errorf("encode cached allocation %s: %w", item.LeaveTypeID, err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO cached_allocations (employee_id, year, leave_type_id, payload, refreshed_at)
				VALUES (?, ?, ?, ?, ?)
			`, employeeID, year, item.LeaveTypeID, string(payload), now)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *cacheRepositoryImpl) GetAllocations(ctx context.Context, employeeID string, year int) ([]leave.Allocation, time.Time, error) {
	query := `
		SELECT payload, refreshed_at
		FROM cached_allocations
		WHERE employee_id = ? AND year = ?
		ORDER BY leave_type_id
	`
	return querySnapshot[leave.Allocation](ctx, r.db, query, employeeID, year)
}

func (r *cacheRepositoryImpl) ReplaceBlockedDates(ctx context.Context, employeeID string, items []leave.BlockedDate) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cached_blocked_dates WHERE employee_id = ?`, employeeID); err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, item := range items {
			payload, err := json.Marshal(item)
			if err != nil {
				return fmt.Errorf("encode cached blocked date: %w", err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO cached_blocked_dates (employee_id, blocked_date, payload, refreshed_at)
				VALUES (?, ?, ?, ?)
			`, employeeID, item.Date.Format("2006-01-02"), string(payload), now)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *cacheRepositoryImpl) GetBlockedDates(ctx context.Context, employeeID string) ([]leave.BlockedDate, time.Time, error) {
	query := `
		SELECT payload, refreshed_at
		FROM cached_blocked_dates
		WHERE employee_id = ?
		ORDER BY blocked_date
	`
	return querySnapshot[leave.BlockedDate](ctx, r.db, query, employeeID)
}

func (r *cacheRepositoryImpl) ClearScope(ctx context.Context, employeeID string) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		tables := []string{"cached_leaves", "cached_leave_types", "cached_blocked_dates"}
		for _, table := range tables {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE employee_id = ?`, employeeID); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM cached_allocations WHERE employee_id = ?`, employeeID)
		return err
	})
}

// querySnapshot loads one scoped snapshot. An empty scope returns
// leave.ErrCacheMiss so callers can tell "never fetched" from "fetched
// empty"; scopes are always written whole, so zero rows means no snapshot.
func querySnapshot[T any](ctx context.Context, db *database.DB, query string, args ...interface{}) ([]T, time.Time, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer rows.Close()

	var items []T
	var refreshedAt time.Time
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload, &refreshedAt); err != nil {
			return nil, time.Time{}, err
		}
		var item T
		if err := json.Unmarshal([]byte(payload), &item); err != nil {
			return nil, time.Time{}, fmt.Errorf("decode cached payload: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, err
	}

	if len(items) == 0 {
		return nil, time.Time{}, leave.ErrCacheMiss
	}

	return items, refreshedAt, nil
}
