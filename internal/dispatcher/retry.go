package dispatcher

import (
	"math"
	"time"

	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

// RetryPolicy decides how order placement is retried. A placement is tried at
// most 1 + MaxRetries times; only errors carrying one of TransientCodes are
// retried.
type RetryPolicy struct {
	MaxRetries     int
	Delay          time.Duration
	Multiplier     float64
	TransientCodes []errors.ErrorCode
}

// DefaultRetryPolicy retries network failures and rate limiting three times,
// doubling a one second delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     3,
		Delay:          time.Second,
		Multiplier:     2,
		TransientCodes: []errors.ErrorCode{errors.ErrCodeNetwork, errors.ErrCodeRateLimited},
	}
}

// IsTransient reports whether err may succeed when retried.
func (p RetryPolicy) IsTransient(err error) bool {
	return err != nil && errors.HasAnyCode(err, p.TransientCodes...)
}

// Backoff is the wait before retry number attempt, counting from 1.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 || p.Delay <= 0 {
		return 0
	}

	multiplier := math.Max(1, p.Multiplier)

	return time.Duration(float64(p.Delay) * math.Pow(multiplier, float64(attempt-1)))
}
