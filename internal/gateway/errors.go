package gateway

import "errors"

var (
	// ErrQuotaExceeded marks a rate/quota exhaustion failure. The only error
	// class that justifies rotating to the next credential.
	ErrQuotaExceeded = errors.New("AI provider quota exceeded")

	// ErrNonRetryable covers every other provider or transport failure.
	// Rotating credentials cannot fix these, so the turn fails immediately.
	ErrNonRetryable = errors.New("AI request failed")

	// ErrMalformedResponse means a response arrived but failed schema
	// validation. Treated as non-retryable by the resolver.
	ErrMalformedResponse = errors.New("malformed AI response")

	// ErrInvalidCredential marks an authentication failure. Non-retryable for
	// the turn, but the key pool records the key as invalid.
	ErrInvalidCredential = errors.New("AI credential rejected")
)

// IsRetryable reports whether a gateway error warrants trying the next
// credential.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}
