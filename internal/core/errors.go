package core

import "errors"

// Failure taxonomy. Every operation surfaces one of these sentinels (wrapped
// with detail); callers classify with errors.Is instead of parsing messages
// or status codes.
var (
	// ErrTextEmpty indicates the caller supplied empty text. Detected
	// locally, never retried.
	ErrTextEmpty = errors.New("text cannot be empty")
	// ErrNameEmpty indicates a missing voice name.
	ErrNameEmpty = errors.New("voice name cannot be empty")
	// ErrNameInvalid indicates a voice name that is not a filesystem-safe token.
	ErrNameInvalid = errors.New("voice name contains invalid characters")
	// ErrServiceUnavailable indicates the remote endpoint stayed unavailable
	// (503 or network failure) through the whole retry budget.
	ErrServiceUnavailable = errors.New("synthesis service unavailable")
	// ErrRequestRejected indicates a non-200, non-503 response. Never retried.
	ErrRequestRejected = errors.New("synthesis request rejected")
	// ErrSourceNotFound indicates the referenced voice sample does not exist.
	ErrSourceNotFound = errors.New("voice sample not found")
	// ErrProfileNotFound indicates no profile is persisted under the name.
	ErrProfileNotFound = errors.New("voice profile not found")
	// ErrPersistence indicates writing a profile or audio artifact failed.
	ErrPersistence = errors.New("persistence failure")
)

// Describe renders a failure as the single human-readable line shown to the
// user, distinguishing bad input, a down service, and internal faults.
func Describe(err error) string {
	switch {
	case errors.Is(err, ErrTextEmpty),
		errors.Is(err, ErrNameEmpty),
		errors.Is(err, ErrNameInvalid),
		errors.Is(err, ErrSourceNotFound),
		errors.Is(err, ErrProfileNotFound):
		return "invalid input: " + err.Error()
	case errors.Is(err, ErrServiceUnavailable):
		return "the speech service is temporarily unavailable, try again later"
	case errors.Is(err, ErrRequestRejected):
		return "the speech service rejected the request: " + err.Error()
	default:
		return "internal error: " + err.Error()
	}
}
