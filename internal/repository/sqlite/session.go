package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/session"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/pkg/database"
)

type sessionRepositoryImpl struct {
	db *database.DB
}

func NewSessionRepository(db *database.DB) session.Repository {
	return &sessionRepositoryImpl{db: db}
}

func (r *sessionRepositoryImpl) Upsert(ctx context.Context, s session.Snapshot) error {
	query := `
		INSERT INTO session_snapshots (user_id, employee_id, user_name, email, is_manager, last_login_at, last_sync_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			employee_id = excluded.employee_id,
			user_name = excluded.user_name,
			email = excluded.email,
			is_manager = excluded.is_manager,
			last_login_at = excluded.last_login_at
	`
	_, err := r.db.ExecContext(ctx, query,
		s.UserID, s.EmployeeID, s.UserName, s.Email, s.IsManager,
		s.LastLoginAt.UTC(), nullTimePtr(s.LastSyncAt),
	)
	return err
}

func (r *sessionRepositoryImpl) Get(ctx context.Context, userID string) (session.Snapshot, error) {
	query := `
		SELECT user_id, employee_id, user_name, email, is_manager, last_login_at, last_sync_at
		FROM session_snapshots
		WHERE user_id = ?
	`
	return scanSnapshot(r.db.QueryRowContext(ctx, query, userID))
}

func (r *sessionRepositoryImpl) Latest(ctx context.Context) (session.Snapshot, error) {
	query := `
		SELECT user_id, employee_id, user_name, email, is_manager, last_login_at, last_sync_at
		FROM session_snapshots
		ORDER BY last_login_at DESC
		LIMIT 1
	`
	return scanSnapshot(r.db.QueryRowContext(ctx, query))
}

func (r *sessionRepositoryImpl) SetLastSyncAt(ctx context.Context, userID string, at time.Time) error {
	query := `
		UPDATE session_snapshots
		SET last_sync_at = ?
		WHERE user_id = ?
	`
	_, err := r.db.ExecContext(ctx, query, at.UTC(), userID)
	return err
}

func scanSnapshot(row rowScanner) (session.Snapshot, error) {
	var s session.Snapshot
	var lastSyncAt sql.NullTime

	err := row.Scan(&s.UserID, &s.EmployeeID, &s.UserName, &s.Email, &s.IsManager, &s.LastLoginAt, &lastSyncAt)
	if err == sql.ErrNoRows {
		return session.Snapshot{}, session.ErrSnapshotNotFound
	}
	if err != nil {
		return session.Snapshot{}, err
	}

	if lastSyncAt.Valid {
		t := lastSyncAt.Time
		s.LastSyncAt = &t
	}

	return s, nil
}

func nullTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
