package outbox

import "errors"

var (
	ErrMutationNotFound = errors.New("pending mutation not found")
	ErrInvalidKind      = errors.New("invalid mutation kind")
)
