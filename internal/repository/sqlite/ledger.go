package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/leave"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/notify"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/pkg/database"
)

type ledgerRepositoryImpl struct {
	db *database.DB
}

func NewLedgerRepository(db *database.DB) notify.LedgerRepository {
	return &ledgerRepositoryImpl{db: db}
}

func (r *ledgerRepositoryImpl) SeenLeaveIDs(ctx context.Context, managerID string) (map[string]struct{}, error) {
	query := `
		SELECT leave_id
		FROM seen_approvals
		WHERE manager_id = ?
	`
	rows, err := r.db.QueryContext(ctx, query, managerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		seen[id] = struct{}{}
	}
	return seen, rows.Err()
}

func (r *ledgerRepositoryImpl) MarkSeen(ctx context.Context, managerID string, leaveIDs []string) error {
	if len(leaveIDs) == 0 {
		return nil
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO seen_approvals (manager_id, leave_id, seen_at)
			VALUES (?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		now := time.Now().UTC()
		for _, leaveID := range leaveIDs {
			if _, err := stmt.ExecContext(ctx, managerID, leaveID, now); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ledgerRepositoryImpl) HasNotified(ctx context.Context, employeeID, leaveID string, status leave.LeaveStatus) (bool, error) {
	query := `
		SELECT COUNT(*)
		FROM notified_statuses
		WHERE employee_id = ? AND leave_id = ? AND status = ?
	`
	var count int
	if err := r.db.QueryRowContext(ctx, query, employeeID, leaveID, status).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *ledgerRepositoryImpl) MarkNotified(ctx context.Context, employeeID, leaveID string, status leave.LeaveStatus) error {
	query := `
		INSERT OR IGNORE INTO notified_statuses (employee_id, leave_id, status, notified_at)
		VALUES (?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, employeeID, leaveID, status, time.Now().UTC())
	return err
}

func (r *ledgerRepositoryImpl) ClearScope(ctx context.Context, scopeID string) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM seen_approvals WHERE manager_id = ?`, scopeID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM notified_statuses WHERE employee_id = ?`, scopeID)
		return err
	})
}
