package audio

import (
	"errors"
	"sync"
	"time"
)

// MockOutput is an Output that produces no sound. Tracks advance only when
// told to, which makes playback deterministic in tests and with --no-audio.
type MockOutput struct {
	mu             sync.Mutex
	tracks         []*MockTrack
	refuseAutoplay bool
	openErr        error
	closed         bool
}

// NewMockOutput creates a silent output.
func NewMockOutput() *MockOutput {
	return &MockOutput{}
}

// RefuseAutoplay makes the first Play on every new track fail with
// ErrAutoplayRefused.
func (m *MockOutput) RefuseAutoplay(refuse bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refuseAutoplay = refuse
}

// FailOpen makes Open return err.
func (m *MockOutput) FailOpen(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErr = err
}

func (m *MockOutput) Open(clip *Clip) (Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if m.openErr != nil {
		return nil, m.openErr
	}
	if clip == nil {
		return nil, ErrEmptyAudio
	}

	t := &MockTrack{
		duration:      clip.Duration,
		refuseOnFirst: m.refuseAutoplay,
	}
	m.tracks = append(m.tracks, t)
	return t, nil
}

func (m *MockOutput) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Tracks returns every track opened so far, oldest first.
func (m *MockOutput) Tracks() []*MockTrack {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*MockTrack(nil), m.tracks...)
}

// Last returns the most recently opened track.
func (m *MockOutput) Last() *MockTrack {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tracks) == 0 {
		return nil
	}
	return m.tracks[len(m.tracks)-1]
}

// Opened returns the number of tracks opened.
func (m *MockOutput) Opened() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tracks)
}

// Released returns the number of tracks closed at least once.
func (m *MockOutput) Released() int {
	m.mu.Lock()
	tracks := append([]*MockTrack(nil), m.tracks...)
	m.mu.Unlock()

	n := 0
	for _, t := range tracks {
		if t.CloseCalls() > 0 {
			n++
		}
	}
	return n
}

// MockTrack is a silent track. Every Close call is counted so double
// releases are visible.
type MockTrack struct {
	mu            sync.Mutex
	duration      time.Duration
	position      time.Duration
	playing       bool
	refuseOnFirst bool
	plays         int
	closeCalls    int
}

func (t *MockTrack) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closeCalls > 0 {
		return ErrClosed
	}
	t.plays++
	if t.refuseOnFirst && t.plays == 1 {
		return ErrAutoplayRefused
	}
	t.playing = true
	return nil
}

func (t *MockTrack) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.playing = false
}

func (t *MockTrack) Restart() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closeCalls > 0 {
		return ErrClosed
	}
	t.position = 0
	return nil
}

func (t *MockTrack) Playing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing
}

func (t *MockTrack) Position() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.position
}

func (t *MockTrack) Duration() time.Duration {
	return t.duration
}

func (t *MockTrack) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closeCalls++
	t.playing = false
	if t.closeCalls > 1 {
		return errors.New("track released twice")
	}
	return nil
}

// Advance moves a playing track forward, stopping at its end.
func (t *MockTrack) Advance(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.playing {
		return
	}
	t.position += d
	if t.position >= t.duration {
		t.position = t.duration
		t.playing = false
	}
}

// CloseCalls returns how many times Close was called.
func (t *MockTrack) CloseCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeCalls
}

// Plays returns how many times Play was called.
func (t *MockTrack) Plays() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.plays
}
