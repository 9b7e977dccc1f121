package signer

import (
	"fmt"
	"time"
)

// ExpiryPolicy resolves the validity window of a signed request.
type ExpiryPolicy struct {
	// Default applies when the caller gives no duration. Zero means
	// DefaultExpiry.
	Default time.Duration

	// Max bounds caller supplied durations. Zero means unbounded.
	Max time.Duration
}

// Resolve returns the window starting at now. explicitSeconds, when
// non-nil, overrides the default and must be positive.
func (p ExpiryPolicy) Resolve(now time.Time, explicitSeconds *int64) (TimeWindow, error) {
	d := p.Default
	if d <= 0 {
		d = DefaultExpiry
	}

	if explicitSeconds != nil {
		secs := *explicitSeconds
		if secs <= 0 {
			return TimeWindow{}, fmt.Errorf("%w: %d seconds, must be positive", ErrInvalidDuration, secs)
		}
		if secs > int64(time.Duration(1<<63-1)/time.Second) {
			return TimeWindow{}, fmt.Errorf("%w: %d seconds overflows", ErrInvalidDuration, secs)
		}
		d = time.Duration(secs) * time.Second
	}

	if p.Max > 0 && d > p.Max {
		return TimeWindow{}, fmt.Errorf("%w: %s exceeds maximum %s", ErrInvalidDuration, d, p.Max)
	}

	signedAt := NewSigningTime(now)
	return TimeWindow{
		SignedAt:  signedAt,
		ExpiresAt: NewSigningTime(signedAt.Add(d)),
	}, nil
}
