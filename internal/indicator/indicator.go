// Package indicator implements the technical indicators used by strategies.
//
// All functions are pure: they only read the ordered price slice they are
// given (oldest first) and keep no state between calls.
package indicator

import (
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

func checkPeriod(name string, period int) error {
	if period <= 0 {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "%s period must be a positive integer, got %d", name, period)
	}

	return nil
}

func checkLength(name string, values []float64, required int) error {
	if len(values) < required {
		return errors.NewInsufficientDataErrorf(required, len(values), "",
			"insufficient data for %s calculation: required %d, got %d", name, required, len(values))
	}

	return nil
}
