package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/ttsconsole/internal/gateway"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderAttempts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.AttemptSettled(gateway.Success{Audio: make([]byte, 100)}, 200*time.Millisecond)
	r.AttemptSettled(gateway.Failure{Status: 422}, 50*time.Millisecond)
	r.AttemptSettled(gateway.Failure{Status: 422}, 50*time.Millisecond)
	r.DecodeFailed()

	if got := testutil.ToFloat64(r.attempts.WithLabelValues("success", "200")); got != 1 {
		t.Errorf("expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(r.attempts.WithLabelValues("failure", "422")); got != 2 {
		t.Errorf("expected 2 failures, got %v", got)
	}
	if got := testutil.ToFloat64(r.audioBytes); got != 100 {
		t.Errorf("expected 100 audio bytes, got %v", got)
	}
	if got := testutil.ToFloat64(r.decodeFailures); got != 1 {
		t.Errorf("expected 1 decode failure, got %v", got)
	}
	if got := testutil.CollectAndCount(r.attemptDuration); got != 1 {
		t.Errorf("expected one histogram series, got %d", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)
	r.AttemptSettled(gateway.Success{}, time.Millisecond)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "ttsconsole_attempts_total") {
		t.Error("expected attempts counter in exposition")
	}
}
