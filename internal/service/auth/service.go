package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/session"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/pkg/validator"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/remote"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/service/poller"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidEmail(r.Email) {
		errs = append(errs, validator.ValidationError{
			Field:   "email",
			Message: "email must be a valid email address",
		})
	}
	if validator.IsEmpty(r.Password) {
		errs = append(errs, validator.ValidationError{
			Field:   "password",
			Message: "password is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// Service owns the session lifecycle: logging in against the ERP, persisting
// the snapshot, and restarting the role-matched pollers whenever the
// identity changes.
type Service struct {
	remote   remote.Client
	sessions session.Repository
	holder   *session.Holder
	pollers  []poller.Poller
}

func NewAuthService(remoteClient remote.Client, sessions session.Repository, holder *session.Holder, pollers []poller.Poller) *Service {
	return &Service{
		remote:   remoteClient,
		sessions: sessions,
		holder:   holder,
		pollers:  pollers,
	}
}

// Login authenticates against the ERP, upserts the session snapshot and
// restarts the pollers for the new identity.
func (s *Service) Login(ctx context.Context, req LoginRequest) (session.Snapshot, error) {
	if err := req.Validate(); err != nil {
		return session.Snapshot{}, err
	}

	snap, err := s.remote.Login(ctx, req.Email, req.Password)
	if err != nil {
		return session.Snapshot{}, err
	}

	if err := s.sessions.Upsert(ctx, snap); err != nil {
		return session.Snapshot{}, fmt.Errorf("persist session snapshot: %w", err)
	}

	s.holder.Set(snap)
	s.restartPollers()

	slog.Info("logged in", "user_id", snap.UserID, "is_manager", snap.IsManager)
	return snap, nil
}

// Resume restores the last persisted session at cold start so pollers and
// cache lookups work before the user re-authenticates. Missing snapshot is
// not an error; the agent just waits for a login.
func (s *Service) Resume(ctx context.Context) error {
	snap, err := s.sessions.Latest(ctx)
	if err == session.ErrSnapshotNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load persisted session: %w", err)
	}

	s.holder.Set(snap)
	s.restartPollers()

	slog.Info("session resumed from snapshot", "user_id", snap.UserID, "is_manager", snap.IsManager)
	return nil
}

// Logout drops the live session and stops the pollers. The persisted
// snapshot is kept for the next cold start.
func (s *Service) Logout() {
	s.holder.Clear()
	for _, p := range s.pollers {
		p.Stop()
	}
	slog.Info("logged out")
}

// Current returns the live session, falling back to the persisted snapshot.
func (s *Service) Current(ctx context.Context) (session.Snapshot, error) {
	if snap, ok := s.holder.Current(); ok {
		return snap, nil
	}
	return s.sessions.Latest(ctx)
}

// Stop stops the pollers without touching session state. Used at shutdown.
func (s *Service) Stop() {
	for _, p := range s.pollers {
		p.Stop()
	}
}

func (s *Service) restartPollers() {
	// Start gates on the session role, so after a role change only the
	// matching pollers come back up.
	for _, p := range s.pollers {
		p.Stop()
		p.Start()
	}
}
