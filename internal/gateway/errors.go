package gateway

import "errors"

// Common errors for the gateway client.
var (
	// ErrUnauthorized is wrapped by failures the gateway answered with 401.
	ErrUnauthorized = errors.New("gateway rejected the session credential")

	// ErrMissingBaseURL indicates the client was configured without a gateway URL.
	ErrMissingBaseURL = errors.New("gateway base URL is not configured")
)

// Validation reasons reported by Build.
const (
	ReasonEmptyText      = "empty text"
	ReasonEmptyVoice     = "empty voice"
	ReasonMalformedExtra = "malformed extra parameters"
)

// ValidationError reports form input that cannot be turned into a request.
// It is raised before any network call and is never logged as an attempt.
type ValidationError struct {
	Reason string
	Cause  error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Reason
}

// Unwrap returns the underlying parse error, if any.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
