// Package attempt runs one synthesis attempt end to end: validation, the
// gateway call, and the two activity entries that bracket it.
package attempt

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/ttsconsole/internal/activity"
	"github.com/dgnsrekt/ttsconsole/internal/gateway"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// ErrInFlight is returned when an attempt is started while another one is
// still outstanding.
var ErrInFlight = errors.New("a synthesis attempt is already in flight")

// inlinePrefix prefixes failure messages shown next to the submit control.
const inlinePrefix = "Generation failed: "

// Synthesizer is the gateway call the runner brackets.
type Synthesizer interface {
	Synthesize(ctx context.Context, req gateway.SpeechRequest) gateway.Outcome
	SpeechEndpoint() (method, url string)
}

// Observer is told about every settled attempt.
type Observer interface {
	AttemptSettled(outcome gateway.Outcome, elapsed time.Duration)
}

// Result is a settled attempt.
type Result struct {
	ID      string
	Outcome gateway.Outcome
	Elapsed time.Duration
}

// Runner executes attempts one at a time and records them in a log.
type Runner struct {
	client   Synthesizer
	log      *activity.Log
	observer Observer
	now      func() time.Time
	inFlight atomic.Bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithObserver registers an observer for settled attempts.
func WithObserver(o Observer) Option {
	return func(r *Runner) {
		r.observer = o
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// NewRunner creates a runner writing to l.
func NewRunner(client Synthesizer, l *activity.Log, opts ...Option) *Runner {
	r := &Runner{
		client: client,
		log:    l,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Busy reports whether an attempt is outstanding.
func (r *Runner) Busy() bool {
	return r.inFlight.Load()
}

// Submit validates raw form input and, if valid, runs an attempt.
// Validation errors are returned before anything is logged.
func (r *Runner) Submit(ctx context.Context, text, voiceID, providerHint, extraParams string) (Result, error) {
	req, err := gateway.Build(text, voiceID, providerHint, extraParams)
	if err != nil {
		return Result{}, err
	}
	return r.Run(ctx, req)
}

// Run performs one synthesis call bracketed by a dispatch entry and a
// settlement entry. Its only error is ErrInFlight; gateway failures are
// part of the Result.
func (r *Runner) Run(ctx context.Context, req gateway.SpeechRequest) (Result, error) {
	if !r.inFlight.CompareAndSwap(false, true) {
		return Result{}, ErrInFlight
	}
	defer r.inFlight.Store(false)

	id := uuid.NewString()
	method, url := r.client.SpeechEndpoint()

	start := r.now()
	r.log.Append(activity.Entry{
		AttemptID: id,
		Timestamp: start,
		Method:    method,
		URL:       url,
		Payload:   req.Body(),
	})

	outcome := r.client.Synthesize(ctx, req)

	end := r.now()
	if end.Before(start) {
		end = start
	}
	elapsed := end.Sub(start)

	settlement := activity.Entry{
		AttemptID: id,
		Timestamp: end,
		Method:    method,
		URL:       url,
		Duration:  &elapsed,
	}

	switch o := outcome.(type) {
	case gateway.Success:
		status := http.StatusOK
		settlement.Status = &status
		settlement.Payload = map[string]any{
			"mimeType": o.MIMEType,
			"bytes":    len(o.Audio),
			"size":     humanize.Bytes(uint64(len(o.Audio))),
		}
		log.Debug("attempt succeeded", "attempt", id, "elapsed", elapsed, "bytes", len(o.Audio))
	case gateway.Failure:
		status := o.Status
		settlement.Status = &status
		settlement.IsError = true
		settlement.Payload = o.Detail
		if settlement.Payload == nil {
			settlement.Payload = map[string]any{"message": o.Message}
		}
		log.Debug("attempt failed", "attempt", id, "elapsed", elapsed, "status", o.Status, "message", o.Message)
	}

	r.log.Append(settlement)

	if r.observer != nil {
		r.observer.AttemptSettled(outcome, elapsed)
	}

	return Result{ID: id, Outcome: outcome, Elapsed: elapsed}, nil
}

// InlineError returns the message shown next to the submit control for a
// failed outcome, or "" for a success.
func InlineError(o gateway.Outcome) string {
	f, ok := o.(gateway.Failure)
	if !ok {
		return ""
	}
	return inlinePrefix + f.Message
}
