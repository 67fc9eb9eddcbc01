package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrSnapshotNotFound = errors.New("session snapshot not found")

// Snapshot is the persisted identity/role record for one user, upserted on
// every successful login and read at cold start before re-authentication
// completes.
type Snapshot struct {
	UserID      string     `json:"user_id"`
	EmployeeID  string     `json:"employee_id"`
	UserName    string     `json:"user_name"`
	Email       string     `json:"email"`
	IsManager   bool       `json:"is_manager"`
	LastLoginAt time.Time  `json:"last_login_at"`
	LastSyncAt  *time.Time `json:"last_sync_at,omitempty"`
}

type Repository interface {
	Upsert(ctx context.Context, s Snapshot) error
	Get(ctx context.Context, userID string) (Snapshot, error)
	// Latest returns the most recently logged-in snapshot, for cold start.
	Latest(ctx context.Context) (Snapshot, error)
	SetLastSyncAt(ctx context.Context, userID string, at time.Time) error
}

// Holder is the read-only session accessor handed to every component at
// construction. Only the login/logout flow writes it.
type Holder struct {
	mu  sync.RWMutex
	cur *Snapshot
}

func NewHolder() *Holder {
	return &Holder{}
}

// Current returns the active snapshot, if any.
func (h *Holder) Current() (Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.cur == nil {
		return Snapshot{}, false
	}
	return *h.cur, true
}

// Set replaces the active snapshot. Called on login and on cold-start resume.
func (h *Holder) Set(s Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cur = &s
}

// Clear drops the active snapshot. Called on logout.
func (h *Holder) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cur = nil
}
