package arena

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidInput     = errors.New("invalid input")
	ErrContentBlocked   = errors.New("content blocked")
	ErrRateLimited      = errors.New("rate limited")
	ErrAlreadyCompleted = errors.New("already completed")
)

// RateLimitError reports a denied action and when it may be retried.
type RateLimitError struct {
	Action  string
	RetryAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: %s until %s", ErrRateLimited, e.Action, e.RetryAt.Format(time.RFC3339))
}

// Unwrap lets errors.Is match ErrRateLimited.
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func notFound(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}
