package waveform

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/dgnsrekt/ttsconsole/internal/audio"
)

func testClip(d time.Duration) *audio.Clip {
	n := int(d.Seconds() * 1000)
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(i % 100)
	}
	return &audio.Clip{Samples: samples, SampleRate: 1000, Duration: d}
}

type transition struct{ from, to State }

func newRecordedPlayer(out audio.Output, opts ...Option) (*Player, *[]transition) {
	var seen []transition
	opts = append(opts, WithTransitionHook(func(from, to State) {
		seen = append(seen, transition{from, to})
	}))
	return NewPlayer(out, opts...), &seen
}

// TestLoadAutoplays tests the normal load sequence.
func TestLoadAutoplays(t *testing.T) {
	out := audio.NewMockOutput()
	p, seen := newRecordedPlayer(out)

	gen := p.Begin()
	if !p.Complete(gen, testClip(2*time.Second), nil) {
		t.Fatal("current generation should be accepted")
	}

	want := []transition{
		{StateIdle, StateLoading},
		{StateLoading, StateReady},
		{StateReady, StatePlaying},
	}
	if !reflect.DeepEqual(*seen, want) {
		t.Errorf("expected %v, got %v", want, *seen)
	}

	pb := p.Playback()
	if !pb.Playing || pb.Duration != 2*time.Second || pb.Position != 0 {
		t.Errorf("unexpected playback %+v", pb)
	}
}

// TestSecondLoadWhilePlaying tests that replacing a playing clip releases
// the old track exactly once and runs the full sequence again.
func TestSecondLoadWhilePlaying(t *testing.T) {
	out := audio.NewMockOutput()
	p, seen := newRecordedPlayer(out)

	p.Complete(p.Begin(), testClip(3*time.Second), nil)
	out.Last().Advance(time.Second)
	p.Sample()

	*seen = nil
	gen := p.Begin()
	first := out.Tracks()[0]
	if first.CloseCalls() != 1 {
		t.Fatalf("previous track should be released before the next opens, got %d closes", first.CloseCalls())
	}
	if pb := p.Playback(); pb != (Playback{}) {
		t.Errorf("playback should reset, got %+v", pb)
	}

	p.Complete(gen, testClip(time.Second), nil)

	want := []transition{
		{StatePlaying, StateIdle},
		{StateIdle, StateLoading},
		{StateLoading, StateReady},
		{StateReady, StatePlaying},
	}
	if !reflect.DeepEqual(*seen, want) {
		t.Errorf("expected %v, got %v", want, *seen)
	}
	if first.CloseCalls() != 1 {
		t.Errorf("previous track released %d times", first.CloseCalls())
	}
	if out.Opened() != 2 || out.Released() != 1 {
		t.Errorf("expected 2 opened and 1 released, got %d and %d", out.Opened(), out.Released())
	}
}

// TestStaleCompletionDiscarded tests that a superseded load never opens.
func TestStaleCompletionDiscarded(t *testing.T) {
	out := audio.NewMockOutput()
	p := NewPlayer(out)

	stale := p.Begin()
	current := p.Begin()

	if p.Complete(stale, testClip(time.Second), nil) {
		t.Error("stale generation should be discarded")
	}
	if out.Opened() != 0 {
		t.Errorf("stale clip must not be opened, got %d", out.Opened())
	}
	if p.State() != StateLoading {
		t.Errorf("expected loading, got %v", p.State())
	}

	p.Complete(current, testClip(time.Second), nil)
	if out.Opened() != 1 || p.State() != StatePlaying {
		t.Errorf("current clip should play, state %v opened %d", p.State(), out.Opened())
	}
}

// TestAutoplayRefused tests that refusal leaves the player ready.
func TestAutoplayRefused(t *testing.T) {
	out := audio.NewMockOutput()
	out.RefuseAutoplay(true)
	p := NewPlayer(out)

	p.Complete(p.Begin(), testClip(time.Second), nil)
	if p.State() != StateReady {
		t.Fatalf("expected ready, got %v", p.State())
	}
	if p.Err() != nil {
		t.Errorf("refusal is not an error, got %v", p.Err())
	}

	if err := p.Toggle(); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	if p.State() != StatePlaying {
		t.Errorf("explicit play should start, got %v", p.State())
	}
}

// TestAutoplayDisabled tests the autoplay option.
func TestAutoplayDisabled(t *testing.T) {
	out := audio.NewMockOutput()
	p := NewPlayer(out, WithAutoplay(false))

	p.Complete(p.Begin(), testClip(time.Second), nil)
	if p.State() != StateReady {
		t.Errorf("expected ready, got %v", p.State())
	}
	if out.Last().Plays() != 0 {
		t.Error("track should not be played")
	}
}

// TestDecodeFailure tests that decode errors return to idle.
func TestDecodeFailure(t *testing.T) {
	var hooked error
	out := audio.NewMockOutput()
	p := NewPlayer(out, WithDecodeFailureHook(func(err error) { hooked = err }))

	boom := errors.New("bad frame")
	p.Complete(p.Begin(), nil, boom)

	if p.State() != StateIdle {
		t.Errorf("expected idle, got %v", p.State())
	}
	var de *DecodeError
	if !errors.As(p.Err(), &de) || !errors.Is(p.Err(), boom) {
		t.Errorf("expected DecodeError wrapping cause, got %v", p.Err())
	}
	if hooked != boom {
		t.Errorf("hook should receive cause, got %v", hooked)
	}
	if out.Opened() != 0 {
		t.Error("nothing should be opened")
	}

	// The next load clears the error.
	p.Begin()
	if p.Err() != nil {
		t.Errorf("error should clear on next load, got %v", p.Err())
	}
}

// TestOpenFailure tests output errors surface as decode failures.
func TestOpenFailure(t *testing.T) {
	out := audio.NewMockOutput()
	out.FailOpen(errors.New("no device"))
	p := NewPlayer(out)

	p.Complete(p.Begin(), testClip(time.Second), nil)
	if p.State() != StateIdle || p.Err() == nil {
		t.Errorf("expected idle with error, got %v %v", p.State(), p.Err())
	}
}

// TestToggleAndFinish tests pause, resume, finish and restart.
func TestToggleAndFinish(t *testing.T) {
	out := audio.NewMockOutput()
	p := NewPlayer(out)
	p.Complete(p.Begin(), testClip(2*time.Second), nil)
	track := out.Last()

	track.Advance(500 * time.Millisecond)
	if pb := p.Sample(); pb.Position != 500*time.Millisecond {
		t.Errorf("expected 500ms, got %v", pb.Position)
	}

	if err := p.Toggle(); err != nil || p.State() != StatePaused {
		t.Fatalf("expected paused, got %v (%v)", p.State(), err)
	}
	track.Advance(time.Second) // paused tracks do not move
	if pb := p.Sample(); pb.Position != 500*time.Millisecond || pb.Playing {
		t.Errorf("paused playback changed: %+v", pb)
	}

	if err := p.Toggle(); err != nil || p.State() != StatePlaying {
		t.Fatalf("expected playing, got %v (%v)", p.State(), err)
	}

	track.Advance(5 * time.Second)
	pb := p.Sample()
	if p.State() != StateFinished || pb.Playing || pb.Position != pb.Duration {
		t.Errorf("expected finished at end, got %v %+v", p.State(), pb)
	}

	if err := p.Toggle(); err != nil || p.State() != StatePlaying {
		t.Fatalf("finished clip should restart, got %v (%v)", p.State(), err)
	}
	if pb := p.Sample(); pb.Position != 0 {
		t.Errorf("restart should rewind, got %v", pb.Position)
	}
}

// TestToggleIdle tests toggling with nothing loaded.
func TestToggleIdle(t *testing.T) {
	p := NewPlayer(audio.NewMockOutput())
	if err := p.Toggle(); err != nil {
		t.Errorf("Toggle on idle should be a no-op, got %v", err)
	}
	if p.State() != StateIdle {
		t.Errorf("expected idle, got %v", p.State())
	}
}

// TestCloseReleasesOnce tests unmounting.
func TestCloseReleasesOnce(t *testing.T) {
	out := audio.NewMockOutput()
	p := NewPlayer(out)
	p.Complete(p.Begin(), testClip(time.Second), nil)

	p.Close()
	p.Close()

	if got := out.Last().CloseCalls(); got != 1 {
		t.Errorf("expected one release, got %d", got)
	}
	if p.State() != StateIdle {
		t.Errorf("expected idle, got %v", p.State())
	}
}

// TestLoadSync tests the synchronous decode path.
func TestLoadSync(t *testing.T) {
	out := audio.NewMockOutput()
	p := NewPlayer(out)

	pcm := audio.EncodePCM16(make([]int16, audio.RawPCMRate/2))
	if err := p.Load(context.Background(), pcm, "audio/pcm"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p.Playback().Duration != 500*time.Millisecond {
		t.Errorf("expected 500ms, got %v", p.Playback().Duration)
	}

	if err := p.Load(context.Background(), []byte("junk"), "text/plain"); err == nil {
		t.Error("expected a decode failure")
	}
	if p.State() != StateIdle {
		t.Errorf("expected idle after failure, got %v", p.State())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Load(ctx, pcm, "audio/pcm"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// TestPeaks tests that peaks follow the loaded clip.
func TestPeaks(t *testing.T) {
	p := NewPlayer(audio.NewMockOutput())
	if p.Peaks(10) != nil {
		t.Error("no clip, no peaks")
	}
	p.Complete(p.Begin(), testClip(time.Second), nil)
	if got := len(p.Peaks(10)); got != 10 {
		t.Errorf("expected 10 peaks, got %d", got)
	}
}
