package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange indicates an operation referenced a post ID that does not exist.
	ErrOutOfRange = errors.New("post index out of range")

	// ErrUnauthorized indicates the caller does not satisfy the operation's access requirement.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidSnapshot indicates a restore snapshot is not a dense, ordered post collection.
	ErrInvalidSnapshot = errors.New("invalid post snapshot")
)

// UnauthorizedError identifies the refused operation and the rejected caller.
type UnauthorizedError struct {
	Op     string
	Caller Identity
	Reason string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("%s: %s (caller %q)", e.Op, e.Reason, e.Caller)
}

func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized
}
