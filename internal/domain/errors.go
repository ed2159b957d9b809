package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCredentialMissing means a non-official program needs a usable credential.
	ErrCredentialMissing = errors.New("credential missing")
	// ErrConcurrentGeneration means another generation for the same pair is in flight.
	ErrConcurrentGeneration = errors.New("concurrent generation in progress")
	// ErrNoPlatformIdentifier means the product has no id on the requested platform.
	ErrNoPlatformIdentifier = errors.New("no platform identifier")
	// ErrPersistence wraps store failures.
	ErrPersistence = errors.New("persistence error")
	// ErrNotFound means the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidPlatform rejects unknown platform names.
	ErrInvalidPlatform = errors.New("invalid platform")
	// ErrInvalidAdType rejects unknown ad type names.
	ErrInvalidAdType = errors.New("invalid ad type")
)

// LinkError carries the product and platform a link operation failed for.
type LinkError struct {
	ProductID int64
	Platform  Platform
	// Policy is a short human explanation, e.g. "no credential configured for tiktok".
	Policy string
	Err    error
}

func (e *LinkError) Error() string {
	detail := e.Policy
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	return fmt.Sprintf("product %d on %s: %s", e.ProductID, e.Platform, detail)
}

func (e *LinkError) Unwrap() error { return e.Err }

// IsRetryable reports whether the caller may retry the same request.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentGeneration)
}
