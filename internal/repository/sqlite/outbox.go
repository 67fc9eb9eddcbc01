package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/outbox"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/pkg/database"
	"github.com/google/uuid"
)

type outboxRepositoryImpl struct {
	db *database.DB
}

func NewOutboxRepository(db *database.DB) outbox.Repository {
	return &outboxRepositoryImpl{db: db}
}

const mutationColumns = `id, kind, owner_id, subject_leave_id, leave_type_id, start_date, end_date, reason,
	created_at, sync_status, sync_error, sync_attempts, last_sync_attempt, remote_id`

func (r *outboxRepositoryImpl) Enqueue(ctx context.Context, m outbox.PendingMutation) (outbox.PendingMutation, error) {
	if !m.Kind.Valid() {
		return outbox.PendingMutation{}, fmt.Errorf("%w: %q", outbox.ErrInvalidKind, m.Kind)
	}

	m.ID = uuid.New().String()
	m.CreatedAt = time.Now().UTC()
	m.SyncStatus = outbox.StatusPending
	m.SyncAttempts = 0
	m.SyncError = nil
	m.LastSyncAttempt = nil
	m.RemoteID = nil

	query := `
		INSERT INTO pending_mutations (` + mutationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, 0, NULL, NULL)
	`
	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.Kind, m.OwnerID, m.SubjectLeaveID,
		m.LeaveTypeID, nullTime(m.StartDate), nullTime(m.EndDate), m.Reason,
		m.CreatedAt, m.SyncStatus,
	)
	if err != nil {
		return outbox.PendingMutation{}, err
	}

	return m, nil
}

func (r *outboxRepositoryImpl) ListUnsynced(ctx context.Context) ([]outbox.PendingMutation, error) {
	query := `
		SELECT ` + mutationColumns + `
		FROM pending_mutations
		WHERE sync_status IN (?, ?)
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, outbox.StatusPending, outbox.StatusFailed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMutations(rows)
}

func (r *outboxRepositoryImpl) ListByOwner(ctx context.Context, ownerID string) ([]outbox.PendingMutation, error) {
	query := `
		SELECT ` + mutationColumns + `
		FROM pending_mutations
		WHERE owner_id = ?
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMutations(rows)
}

func (r *outboxRepositoryImpl) GetByID(ctx context.Context, id string) (outbox.PendingMutation, error) {
	query := `
		SELECT ` + mutationColumns + `
		FROM pending_mutations
		WHERE id = ?
	`
	row := r.db.QueryRowContext(ctx, query, id)

	m, err := scanMutation(row)
	if err == sql.ErrNoRows {
		return outbox.PendingMutation{}, outbox.ErrMutationNotFound
	}
	return m, err
}

func (r *outboxRepositoryImpl) MarkSyncing(ctx context.Context, id string) error {
	query := `
		UPDATE pending_mutations
		SET sync_status = ?, sync_attempts = sync_attempts + 1, last_sync_attempt = ?
		WHERE id = ?
	`
	res, err := r.db.ExecContext(ctx, query, outbox.StatusSyncing, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *outboxRepositoryImpl) MarkOutcome(ctx context.Context, id string, status outbox.SyncStatus, syncErr *string) error {
	query := `
		UPDATE pending_mutations
		SET sync_status = ?, sync_error = ?
		WHERE id = ?
	`
	res, err := r.db.ExecContext(ctx, query, status, syncErr, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *outboxRepositoryImpl) MarkSynced(ctx context.Context, id string, remoteID *string) error {
	query := `
		UPDATE pending_mutations
		SET sync_status = ?, sync_error = NULL, remote_id = ?
		WHERE id = ?
	`
	res, err := r.db.ExecContext(ctx, query, outbox.StatusSynced, remoteID, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *outboxRepositoryImpl) RecoverSyncing(ctx context.Context) (int64, error) {
	query := `
		UPDATE pending_mutations
		SET sync_status = ?
		WHERE sync_status = ?
	`
	res, err := r.db.ExecContext(ctx, query, outbox.StatusPending, outbox.StatusSyncing)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *outboxRepositoryImpl) PendingCount(ctx context.Context) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM pending_mutations
		WHERE sync_status IN (?, ?, ?)
	`
	var count int
	err := r.db.QueryRowContext(ctx, query, outbox.StatusPending, outbox.StatusSyncing, outbox.StatusFailed).Scan(&count)
	return count, err
}

func (r *outboxRepositoryImpl) DeleteSyncedBefore(ctx context.Context, kind outbox.Kind, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM pending_mutations
		WHERE kind = ? AND sync_status = ? AND created_at < ?
	`
	res, err := r.db.ExecContext(ctx, query, kind, outbox.StatusSynced, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *outboxRepositoryImpl) DeleteDecisionsByOwner(ctx context.Context, ownerID string) error {
	query := `
		DELETE FROM pending_mutations
		WHERE owner_id = ? AND kind IN (?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, ownerID, outbox.KindApprove, outbox.KindRefuse)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMutation(row rowScanner) (outbox.PendingMutation, error) {
	var m outbox.PendingMutation
	var startDate, endDate, lastAttempt sql.NullTime

	err := row.Scan(
		&m.ID, &m.Kind, &m.OwnerID, &m.SubjectLeaveID,
		&m.LeaveTypeID, &startDate, &endDate, &m.Reason,
		&m.CreatedAt, &m.SyncStatus, &m.SyncError, &m.SyncAttempts,
		&lastAttempt, &m.RemoteID,
	)
	if err != nil {
		return outbox.PendingMutation{}, err
	}

	if startDate.Valid {
		m.StartDate = startDate.Time
	}
	if endDate.Valid {
		m.EndDate = endDate.Time
	}
	if lastAttempt.Valid {
		t := lastAttempt.Time
		m.LastSyncAttempt = &t
	}

	return m, nil
}

func scanMutations(rows *sql.Rows) ([]outbox.PendingMutation, error) {
	var mutations []outbox.PendingMutation
	for rows.Next() {
		m, err := scanMutation(rows)
		if err != nil {
			return nil, err
		}
		mutations = append(mutations, m)
	}
	return mutations, rows.Err()
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return outbox.ErrMutationNotFound
	}
	return nil
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
