package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/ttsconsole/internal/audio"
	"github.com/dgnsrekt/ttsconsole/internal/gateway"
	"github.com/dgnsrekt/ttsconsole/internal/session"
	"github.com/dgnsrekt/ttsconsole/internal/waveform"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeGateway(t *testing.T) *httptest.Server {
	t.Helper()
	pcm := audio.EncodePCM16(make([]int16, audio.RawPCMRate/10))

	r := chi.NewRouter()
	r.Post("/v1/audio/speech", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		if body["voice"] == "missing" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"message":"voice not found"}`))
			return
		}
		w.Header().Set("Content-Type", "audio/pcm")
		_, _ = w.Write(pcm)
	})
	r.Get("/admin/providers", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Basic "+session.EncodeBasic("admin", "secret") {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[{"id":"1","name":"aliyun","providerType":"ALIYUN"}]`))
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T, out audio.Output) *app {
	t.Helper()
	srv := fakeGateway(t)

	s, err := session.New(&session.MemoryStore{})
	require.NoError(t, err)

	cfg := gateway.DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.Timeout = 5 * time.Second

	a, err := assembleApp(cfg, s, out, true)
	require.NoError(t, err)
	return a
}

func TestSayWritesFile(t *testing.T) {
	a := newTestApp(t, nil)
	p := filepath.Join(t.TempDir(), "hello")

	var out, errOut bytes.Buffer
	err := say(context.Background(), a, sayOptions{
		text:   "Hello",
		voice:  "aliyun",
		output: p,
	}, &out, &errOut)
	require.NoError(t, err)

	b, err := os.ReadFile(p + ".pcm")
	require.NoError(t, err)
	assert.Len(t, b, audio.RawPCMRate/10*2)

	assert.Equal(t, 2, a.log.Len())
	assert.Contains(t, errOut.String(), "/v1/audio/speech 200")
	assert.Contains(t, errOut.String(), "Wrote")
	n, err := testutil.GatherAndCount(a.registry, "ttsconsole_attempts_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSayStdout(t *testing.T) {
	a := newTestApp(t, nil)

	var out, errOut bytes.Buffer
	err := say(context.Background(), a, sayOptions{text: "Hello", voice: "aliyun", output: "-"}, &out, &errOut)
	require.NoError(t, err)
	assert.Equal(t, audio.RawPCMRate/10*2, out.Len())
}

func TestSayFailure(t *testing.T) {
	a := newTestApp(t, nil)

	var out, errOut bytes.Buffer
	err := say(context.Background(), a, sayOptions{text: "Hello", voice: "missing", output: "-"}, &out, &errOut)
	require.Error(t, err)
	assert.Equal(t, "Generation failed: voice not found", err.Error())
	assert.Zero(t, out.Len())

	entries := a.log.Entries()
	require.Len(t, entries, 2)
	assert.True(t, entries[1].IsError)
	assert.Equal(t, http.StatusUnprocessableEntity, *entries[1].Status)
}

func TestSayValidation(t *testing.T) {
	a := newTestApp(t, nil)

	var out, errOut bytes.Buffer
	err := say(context.Background(), a, sayOptions{text: "Hello", voice: "aliyun", extra: "[1]", output: "-"}, &out, &errOut)

	var ve *gateway.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 0, a.log.Len(), "validation failures are not logged")
}

func TestSayPlays(t *testing.T) {
	out := audio.NewMockOutput()
	a := newTestApp(t, out)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	var stdout, errOut bytes.Buffer
	go func() {
		done <- say(ctx, a, sayOptions{text: "Hello", voice: "aliyun"}, &stdout, &errOut)
	}()

	require.Eventually(t, func() bool {
		return out.Opened() == 1 && out.Last().Playing()
	}, 2*time.Second, 10*time.Millisecond)
	out.Last().Advance(time.Second)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("playback did not finish")
	}
	assert.Equal(t, waveform.StateFinished, a.player.State())
}

func TestPrintEntries(t *testing.T) {
	a := newTestApp(t, nil)
	_, err := a.runner.Submit(context.Background(), "Hello", "missing", "", "")
	require.NoError(t, err)

	var buf bytes.Buffer
	printEntries(&buf, a.log.Entries())
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "POST")
	assert.NotContains(t, lines[0], " 422 ")
	assert.Contains(t, lines[1], " 422 ")
	assert.Contains(t, lines[1], "ms")
}

func TestLoginCheck(t *testing.T) {
	a := newTestApp(t, nil)
	expired := make(chan struct{}, 1)
	a.session.OnExpired(func() { expired <- struct{}{} })

	require.NoError(t, a.session.Login("admin", "wrong"))
	_, err := a.client.Providers(context.Background())
	require.ErrorIs(t, err, gateway.ErrUnauthorized)
	assert.False(t, a.session.LoggedIn(), "a rejected credential is cleared")
	select {
	case <-expired:
	default:
		t.Error("expected the expiry hook")
	}

	require.NoError(t, a.session.Login("admin", "secret"))
	providers, err := a.client.Providers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"aliyun"}, gateway.ProviderHints(providers))
}
