package gateway

import "net/http"

// Outcome is the result of one synthesis attempt: either Success or Failure.
type Outcome interface {
	outcome()
}

// Success carries the audio returned by the gateway.
type Success struct {
	Audio    []byte
	MIMEType string
}

// Failure is a non-2xx answer or a transport error, already normalized.
// Status is 0 when no response was received.
type Failure struct {
	Status  int
	Message string
	Detail  any
}

func (Success) outcome() {}
func (Failure) outcome() {}

// Error implements the error interface so admin calls can return a Failure.
func (f Failure) Error() string {
	return f.Message
}

// Unwrap exposes ErrUnauthorized for 401 failures.
func (f Failure) Unwrap() error {
	if f.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

func failureFrom(raw RawFailure) Failure {
	n := Normalize(raw)
	return Failure{
		Status:  raw.Status,
		Message: n.Message,
		Detail:  n.Detail,
	}
}
