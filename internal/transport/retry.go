package transport

import (
	"errors"
	"time"

	"github.com/GruborIvan/taskmanager/internal/domain"
)

// RetryPolicy bounds redelivery of failed messages.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	MaxDelay    time.Duration
}

// Next returns the delay before the attempt following attempt:
// Backoff * 2^(attempt-1), capped at MaxDelay.
func (p RetryPolicy) Next(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := p.Backoff
	for i := 1; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Exhausted reports whether attempt was the last one allowed.
func (p RetryPolicy) Exhausted(attempt int) bool {
	return attempt >= p.MaxAttempts
}

// Retryable reports whether redelivering could change the outcome.
// Validation, not-found and conflict errors are decided by the message itself
// and go straight to the dead-letter stream.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrTaskNotFound),
		domain.IsConflict(err):
		return false
	default:
		return true
	}
}
