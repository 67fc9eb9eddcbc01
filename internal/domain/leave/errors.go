package leave

import "errors"

var (
	ErrCacheMiss            = errors.New("no cached snapshot for this scope")
	ErrLeaveRequestRejected = errors.New("leave request rejected by remote system")
	ErrDecisionConflict     = errors.New("leave was already decided remotely")
	ErrNoSession            = errors.New("no active or persisted session")
)
