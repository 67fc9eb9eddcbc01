package response

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/leave"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/outbox"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/domain/session"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/pkg/validator"
	"github.com/cmlabs-hris/leavesync-agent-go/internal/remote"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Session errors
	case errors.Is(err, leave.ErrNoSession):
		Unauthorized(w, "No active session")
	case errors.Is(err, session.ErrSnapshotNotFound):
		Unauthorized(w, "No persisted session")

	// Leave domain errors
	case errors.Is(err, leave.ErrCacheMiss):
		NotFound(w, "No cached data for this scope; connect once to populate it")
	case errors.Is(err, leave.ErrDecisionConflict):
		Conflict(w, err.Error())
	case errors.Is(err, leave.ErrLeaveRequestRejected):
		Conflict(w, err.Error())

	// Outbox errors
	case errors.Is(err, outbox.ErrMutationNotFound):
		NotFound(w, "Pending mutation not found")
	case errors.Is(err, outbox.ErrInvalidKind):
		BadRequest(w, "Invalid mutation kind", nil)

	// Remote boundary errors
	case remote.IsTerminal(err):
		Conflict(w, err.Error())
	case remote.IsRetryable(err):
		ServiceUnavailable(w, "Remote system unreachable")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
