// Package metrics exposes Prometheus counters for synthesis attempts and
// playback. The console only serves them when a metrics address is set.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/ttsconsole/internal/gateway"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the console's collectors.
type Recorder struct {
	attempts        *prometheus.CounterVec
	attemptDuration prometheus.Histogram
	audioBytes      prometheus.Counter
	decodeFailures  prometheus.Counter
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ttsconsole_attempts_total",
				Help: "Synthesis attempts by outcome and HTTP status.",
			},
			[]string{"outcome", "status"}, // outcome: success, failure
		),
		attemptDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ttsconsole_attempt_duration_seconds",
				Help:    "Round-trip time of synthesis attempts.",
				Buckets: prometheus.DefBuckets,
			},
		),
		audioBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ttsconsole_audio_bytes_total",
				Help: "Audio bytes received from the gateway.",
			},
		),
		decodeFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ttsconsole_decode_failures_total",
				Help: "Audio results that could not be decoded for playback.",
			},
		),
	}

	reg.MustRegister(r.attempts, r.attemptDuration, r.audioBytes, r.decodeFailures)
	return r
}

// AttemptSettled records a settled attempt.
func (r *Recorder) AttemptSettled(o gateway.Outcome, elapsed time.Duration) {
	r.attemptDuration.Observe(elapsed.Seconds())

	switch v := o.(type) {
	case gateway.Success:
		r.attempts.WithLabelValues("success", strconv.Itoa(http.StatusOK)).Inc()
		r.audioBytes.Add(float64(len(v.Audio)))
	case gateway.Failure:
		r.attempts.WithLabelValues("failure", strconv.Itoa(v.Status)).Inc()
	}
}

// DecodeFailed records audio that could not be decoded.
func (r *Recorder) DecodeFailed() {
	r.decodeFailures.Inc()
}

// Handler returns the exposition handler for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Serve exposes g on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(g))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Debug("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
