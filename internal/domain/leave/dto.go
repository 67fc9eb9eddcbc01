package leave

import (
	"time"

	"github.com/cmlabs-hris/leavesync-agent-go/internal/pkg/validator"
)

type SubmitLeaveRequest struct {
	LeaveTypeID string `json:"leave_type_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Reason      string `json:"reason"`
}

func (r *SubmitLeaveRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.LeaveTypeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "leave_type_id",
			Message: "leave_type_id is required",
		})
	}

	start, okStart := validator.IsValidDate(r.StartDate)
	if !okStart {
		errs = append(errs, validator.ValidationError{
			Field:   "start_date",
			Message: "start_date must be a valid YYYY-MM-DD date",
		})
	}
	end, okEnd := validator.IsValidDate(r.EndDate)
	if !okEnd {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must be a valid YYYY-MM-DD date",
		})
	}
	if okStart && okEnd && end.Before(start) {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must not be before start_date",
		})
	}

	if validator.IsEmpty(r.Reason) {
		errs = append(errs, validator.ValidationError{
			Field:   "reason",
			Message: "reason is required",
		})
	}
	if len(r.Reason) > 500 {
		errs = append(errs, validator.ValidationError{
			Field:   "reason",
			Message: "reason must not exceed 500 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// Dates returns the parsed start and end dates. Call Validate first.
func (r *SubmitLeaveRequest) Dates() (time.Time, time.Time) {
	start, _ := validator.IsValidDate(r.StartDate)
	end, _ := validator.IsValidDate(r.EndDate)
	return start, end
}

// SubmitResult tells the UI whether the request reached the remote system
// immediately or was queued for later synchronization.
type SubmitResult struct {
	Queued     bool    `json:"queued"`
	RemoteID   *string `json:"remote_id,omitempty"`
	MutationID *string `json:"mutation_id,omitempty"`
}

// Snapshot wraps a cached-or-live collection read with its provenance.
type Snapshot[T any] struct {
	Items       []T       `json:"items"`
	FromCache   bool      `json:"from_cache"`
	RefreshedAt time.Time `json:"refreshed_at"`
}
