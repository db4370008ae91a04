package engine

import "errors"

var (
	// ErrNoEligibleQuotes means the schedule's tags select no quotes. The
	// firing is skipped and the tracking record is left untouched.
	ErrNoEligibleQuotes = errors.New("no eligible quotes")
	// ErrStoreUnavailable wraps store and tracking read or write failures.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrDeliveryFailure wraps sink failures.
	ErrDeliveryFailure = errors.New("delivery failed")
	// ErrJobScheduling wraps scheduler rejections.
	ErrJobScheduling = errors.New("job scheduling failed")
)
