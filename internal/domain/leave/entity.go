package leave

import (
	"time"
)

type LeaveStatus string

const (
	LeaveStatusWaitingApproval LeaveStatus = "waiting_approval"
	LeaveStatusApproved        LeaveStatus = "approved"
	LeaveStatusRejected        LeaveStatus = "rejected"
	LeaveStatusCancelled       LeaveStatus = "cancelled"
)

// IsTerminal reports whether the status is a final decision the employee
// should be notified about.
func (s LeaveStatus) IsTerminal() bool {
	return s == LeaveStatusApproved || s == LeaveStatusRejected
}

// Leave is the remote system's view of a leave request, as last fetched.
type Leave struct {
	ID            string      `json:"id"`
	EmployeeID    string      `json:"employee_id"`
	EmployeeName  string      `json:"employee_name"`
	LeaveTypeID   string      `json:"leave_type_id"`
	LeaveTypeName string      `json:"leave_type_name"`
	StartDate     time.Time   `json:"start_date"`
	EndDate       time.Time   `json:"end_date"`
	TotalDays     float64     `json:"total_days"`
	Reason        string      `json:"reason"`
	Status        LeaveStatus `json:"status"`
	SubmittedAt   time.Time   `json:"submitted_at"`
}

// LeaveType entity as exposed by the remote system.
type LeaveType struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Color              *string `json:"color,omitempty"`
	RequiresAllocation bool    `json:"requires_allocation"`
}

// Allocation is the per-year leave balance for one leave type.
type Allocation struct {
	LeaveTypeID   string  `json:"leave_type_id"`
	LeaveTypeName string  `json:"leave_type_name"`
	Year          int     `json:"year"`
	TotalDays     float64 `json:"total_days"`
	UsedDays      float64 `json:"used_days"`
	RemainingDays float64 `json:"remaining_days"`
}

// BlockedDate is a company-wide date on which leave cannot be requested.
type BlockedDate struct {
	Date   time.Time `json:"date"`
	Reason string    `json:"reason"`
}
