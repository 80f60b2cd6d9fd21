package audio

import (
	"errors"
	"time"
)

// ErrAutoplayRefused is returned by Track.Play when the output will not
// start playback without an explicit user action.
var ErrAutoplayRefused = errors.New("autoplay refused by audio output")

// ErrClosed is returned when using a released track or output.
var ErrClosed = errors.New("audio output is closed")

// Output opens tracks for decoded clips.
type Output interface {
	Open(clip *Clip) (Track, error)
	Close() error
}

// Track is one opened clip. Close releases it; it must be called exactly
// once per opened track.
type Track interface {
	Play() error
	Pause()
	Restart() error
	Playing() bool
	Position() time.Duration
	Duration() time.Duration
	Close() error
}
