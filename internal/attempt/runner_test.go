package attempt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/ttsconsole/internal/activity"
	"github.com/dgnsrekt/ttsconsole/internal/gateway"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSynth struct {
	mu      sync.Mutex
	calls   int
	outcome gateway.Outcome
	block   chan struct{}
}

func (f *fakeSynth) Synthesize(_ context.Context, _ gateway.SpeechRequest) gateway.Outcome {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return f.outcome
}

func (f *fakeSynth) SpeechEndpoint() (string, string) {
	return http.MethodPost, "http://gw.test/v1/audio/speech"
}

type recordingObserver struct {
	outcomes []gateway.Outcome
}

func (r *recordingObserver) AttemptSettled(o gateway.Outcome, _ time.Duration) {
	r.outcomes = append(r.outcomes, o)
}

func TestSubmitValidationSkipsNetwork(t *testing.T) {
	synth := &fakeSynth{outcome: gateway.Success{}}
	l := activity.New()
	r := NewRunner(synth, l)

	for _, extra := range []string{"{", `{"a":}`, "[]", "nope"} {
		_, err := r.Submit(context.Background(), "Hello world", "aliyun", "", extra)
		require.Error(t, err, "extra %q", extra)
		assert.True(t, gateway.IsValidation(err))
	}

	assert.Equal(t, 0, synth.calls, "synthesize must not be invoked")
	assert.Equal(t, 0, l.Len(), "no log entries for validation failures")
}

func TestRunBracketsSuccess(t *testing.T) {
	synth := &fakeSynth{outcome: gateway.Success{Audio: make([]byte, 2048), MIMEType: "audio/mpeg"}}
	l := activity.New()
	obs := &recordingObserver{}
	r := NewRunner(synth, l, WithObserver(obs))

	res, err := r.Submit(context.Background(), "Hello world", "aliyun", "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, res.ID)
	assert.IsType(t, gateway.Success{}, res.Outcome)
	assert.Empty(t, InlineError(res.Outcome))

	entries := l.Entries()
	require.Len(t, entries, 2)

	dispatch, settle := entries[0], entries[1]
	assert.Nil(t, dispatch.Status)
	assert.Nil(t, dispatch.Duration)
	assert.False(t, dispatch.IsError)
	assert.Equal(t, http.MethodPost, dispatch.Method)
	assert.Equal(t, "http://gw.test/v1/audio/speech", dispatch.URL)
	body, ok := dispatch.Payload.(gateway.SpeechBody)
	require.True(t, ok)
	assert.Equal(t, "Hello world", body.Input)

	require.NotNil(t, settle.Status)
	assert.Equal(t, http.StatusOK, *settle.Status)
	ms, ok := settle.DurationMs()
	assert.True(t, ok)
	assert.GreaterOrEqual(t, ms, int64(0))
	assert.False(t, settle.Timestamp.Before(dispatch.Timestamp))
	assert.Equal(t, res.ID, dispatch.AttemptID)
	assert.Equal(t, res.ID, settle.AttemptID)

	summary, ok := settle.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "audio/mpeg", summary["mimeType"])
	assert.Equal(t, 2048, summary["bytes"])

	assert.Len(t, obs.outcomes, 1)
}

func TestRunBracketsFailure(t *testing.T) {
	detail := map[string]any{"message": "voice not found"}
	synth := &fakeSynth{outcome: gateway.Failure{Status: 422, Message: "voice not found", Detail: detail}}
	l := activity.New()
	r := NewRunner(synth, l)

	res, err := r.Submit(context.Background(), "Hello world", "aliyun", "", "")
	require.NoError(t, err)
	assert.Equal(t, "Generation failed: voice not found", InlineError(res.Outcome))

	entries := l.Entries()
	require.Len(t, entries, 2)
	settle := entries[1]
	require.NotNil(t, settle.Status)
	assert.Equal(t, 422, *settle.Status)
	assert.True(t, settle.IsError)
	assert.Equal(t, detail, settle.Payload)
}

func TestRunFailureWithoutDetail(t *testing.T) {
	synth := &fakeSynth{outcome: gateway.Failure{Message: "connection refused"}}
	l := activity.New()
	r := NewRunner(synth, l)

	_, err := r.Run(context.Background(), gateway.SpeechRequest{Text: "hi", VoiceID: "aliyun"})
	require.NoError(t, err)

	last, _ := l.Last()
	assert.Equal(t, map[string]any{"message": "connection refused"}, last.Payload)
	require.NotNil(t, last.Status)
	assert.Equal(t, 0, *last.Status)
}

func TestRunClockNeverGoesBackwards(t *testing.T) {
	base := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	ticks := []time.Time{base, base.Add(-time.Second)}
	i := 0
	clock := func() time.Time {
		ts := ticks[i]
		i++
		return ts
	}

	l := activity.New()
	r := NewRunner(&fakeSynth{outcome: gateway.Success{}}, l, WithClock(clock))
	res, err := r.Run(context.Background(), gateway.SpeechRequest{Text: "hi", VoiceID: "aliyun"})
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), res.Elapsed)

	entries := l.Entries()
	assert.False(t, entries[1].Timestamp.Before(entries[0].Timestamp))
}

func TestRunRejectsConcurrentAttempt(t *testing.T) {
	synth := &fakeSynth{outcome: gateway.Success{}, block: make(chan struct{})}
	l := activity.New()
	r := NewRunner(synth, l)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = r.Run(context.Background(), gateway.SpeechRequest{Text: "first", VoiceID: "aliyun"})
	}()

	require.Eventually(t, r.Busy, time.Second, 5*time.Millisecond)

	_, err := r.Run(context.Background(), gateway.SpeechRequest{Text: "second", VoiceID: "aliyun"})
	assert.ErrorIs(t, err, ErrInFlight)

	close(synth.block)
	<-done
	assert.False(t, r.Busy())
	assert.Equal(t, 2, l.Len(), "only the first attempt is logged")
}

func TestRunSequentialAttemptsKeepOrder(t *testing.T) {
	l := activity.New()
	r := NewRunner(&fakeSynth{outcome: gateway.Success{}}, l)

	var ids []string
	for i := 0; i < 3; i++ {
		res, err := r.Submit(context.Background(), "Hello", "aliyun", "", "")
		require.NoError(t, err)
		ids = append(ids, res.ID)
	}

	entries := l.Entries()
	require.Len(t, entries, 6)
	for i, id := range ids {
		assert.Equal(t, id, entries[2*i].AttemptID)
		assert.False(t, entries[2*i].Settled())
		assert.Equal(t, id, entries[2*i+1].AttemptID)
		assert.True(t, entries[2*i+1].Settled())
	}
}

// TestEndToEndAgainstGateway runs both documented scenarios against a fake
// gateway serving the real HTTP shapes.
func TestEndToEndAgainstGateway(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/v1/audio/speech", func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Query().Get("fail") != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"message":"voice not found"}`))
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3audio"))
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	run := func(speechPath string) (Result, *activity.Log) {
		cfg := gateway.DefaultConfig()
		cfg.BaseURL = srv.URL
		cfg.SpeechPath = speechPath
		client, err := gateway.NewClient(cfg, nil)
		require.NoError(t, err)

		l := activity.New()
		res, err := NewRunner(client, l).Submit(context.Background(), "Hello world", "aliyun", "aliyun", "")
		require.NoError(t, err)
		return res, l
	}

	t.Run("success", func(t *testing.T) {
		res, l := run("/v1/audio/speech")
		success, ok := res.Outcome.(gateway.Success)
		require.True(t, ok)
		assert.Equal(t, []byte("ID3audio"), success.Audio)

		entries := l.Entries()
		require.Len(t, entries, 2)
		assert.Nil(t, entries[0].Status)
		assert.Equal(t, 200, *entries[1].Status)
	})

	t.Run("binary typed failure", func(t *testing.T) {
		res, l := run("/v1/audio/speech?fail=1")
		assert.Equal(t, "Generation failed: voice not found", InlineError(res.Outcome))

		settle := l.Entries()[1]
		assert.Equal(t, 422, *settle.Status)
		assert.True(t, settle.IsError)
		assert.Equal(t, map[string]any{"message": "voice not found"}, settle.Payload)
	})
}
