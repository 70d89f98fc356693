package service

import "errors"

// Business error taxonomy. Every operation fails with exactly one of these
// kinds, wrapped with context via fmt.Errorf("...: %w", Err...); callers
// match with errors.Is. None are retried internally.
var (
	// ErrValidation covers malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrAuthorization: actor lacks station/zone/role scope.
	ErrAuthorization = errors.New("not authorized")
	// ErrInvalidTransition covers state machine violations, including
	// concurrent "already closed/already confirmed" races.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrInsufficientBalance: a zone delivery to direction exceeds the
	// zone's custody balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrLimitExceeded: expense exceeds the available spending amount.
	ErrLimitExceeded = errors.New("spending limit exceeded")
	// ErrPeriodLocked: an operational or accounting lock blocks the write.
	ErrPeriodLocked = errors.New("period is locked")
	// ErrPrerequisiteNotMet: settlement attempted before operational
	// closure, or reopening out of order.
	ErrPrerequisiteNotMet = errors.New("prerequisite not met")
	// ErrConfiguration: missing spending-limit configuration.
	ErrConfiguration = errors.New("missing configuration")
)
