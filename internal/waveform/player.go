// Package waveform drives playback of synthesized audio and exposes the
// state the console renders as a waveform with a progress cursor.
//
// A clip moves through Idle, Loading, Ready, Playing, Paused and Finished.
// Loading a new clip releases the previous track before the next one is
// opened, and late decode results for replaced clips are discarded.
package waveform

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/ttsconsole/internal/audio"
	"golang.org/x/time/rate"
)

// DecodeError reports audio that could not be prepared for playback. The
// synthesis attempt that produced it still succeeded.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("unable to decode audio: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Player owns at most one audio track and its playback state.
type Player struct {
	mu       sync.Mutex
	out      audio.Output
	sm       *stateMachine
	track    audio.Track
	clip     *audio.Clip
	gen      uint64
	playback Playback
	err      error
	autoplay bool

	onDecodeFailure func(error)
	sampleLog       rate.Sometimes
}

// Option configures a Player.
type Option func(*Player)

// WithAutoplay enables or disables starting playback once a clip is ready.
func WithAutoplay(on bool) Option {
	return func(p *Player) {
		p.autoplay = on
	}
}

// WithTransitionHook is called on every state change while the player lock
// is held. The hook must not call back into the player.
func WithTransitionHook(fn func(from, to State)) Option {
	return func(p *Player) {
		p.sm.onTransition = fn
	}
}

// WithDecodeFailureHook is called when a clip fails to decode or open.
func WithDecodeFailureHook(fn func(error)) Option {
	return func(p *Player) {
		p.onDecodeFailure = fn
	}
}

// NewPlayer creates an idle player on out. Autoplay is on by default.
func NewPlayer(out audio.Output, opts ...Option) *Player {
	p := &Player{
		out:       out,
		sm:        newStateMachine(),
		autoplay:  true,
		sampleLog: rate.Sometimes{Interval: time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Begin starts loading a new clip. The current track is released, playback
// is reset, and the returned generation identifies the load for Complete.
func (p *Player) Begin() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.gen++
	p.releaseLocked()
	p.sm.reset()
	p.sm.transition(StateLoading)

	log.Debug("loading clip", "generation", p.gen)
	return p.gen
}

// Complete finishes the load identified by gen with a decoded clip or a
// decode error. Results for superseded loads are dropped and reported
// false.
func (p *Player) Complete(gen uint64, clip *audio.Clip, decodeErr error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.gen || p.sm.current != StateLoading {
		log.Debug("discarding stale clip", "generation", gen, "current", p.gen)
		return false
	}

	if decodeErr == nil && clip == nil {
		decodeErr = audio.ErrEmptyAudio
	}
	if decodeErr != nil {
		p.failLocked(decodeErr)
		return true
	}

	track, err := p.out.Open(clip)
	if err != nil {
		p.failLocked(err)
		return true
	}

	p.track = track
	p.clip = clip
	p.playback = Playback{Duration: track.Duration()}
	p.sm.transition(StateReady)

	if !p.autoplay {
		return true
	}

	switch err := track.Play(); {
	case err == nil:
		p.playback.Playing = true
		p.sm.transition(StatePlaying)
	case errors.Is(err, audio.ErrAutoplayRefused):
		log.Debug("autoplay refused, waiting for play", "generation", gen)
	default:
		log.Warn("autoplay failed", "err", err)
	}
	return true
}

// Load decodes data and completes the load synchronously.
func (p *Player) Load(ctx context.Context, data []byte, mimeType string) error {
	gen := p.Begin()

	clip, err := audio.Decode(data, mimeType)
	if ctxErr := ctx.Err(); ctxErr != nil {
		p.Complete(gen, nil, ctxErr)
		return ctxErr
	}
	p.Complete(gen, clip, err)
	return p.Err()
}

// Toggle switches between playing and paused. A ready clip starts and a
// finished clip restarts from the beginning. Toggle does nothing while
// idle or loading.
func (p *Player) Toggle() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.sm.current {
	case StatePlaying:
		p.track.Pause()
		p.playback.Position = p.track.Position()
		p.playback.Playing = false
		p.sm.transition(StatePaused)
	case StatePaused, StateReady:
		if err := p.track.Play(); err != nil {
			return err
		}
		p.playback.Playing = true
		p.sm.transition(StatePlaying)
	case StateFinished:
		if err := p.track.Restart(); err != nil {
			return err
		}
		if err := p.track.Play(); err != nil {
			return err
		}
		p.playback = Playback{Playing: true, Duration: p.playback.Duration}
		p.sm.transition(StatePlaying)
	}
	return nil
}

// Sample reads the track position while playing and moves to Finished once
// the end is reached.
func (p *Player) Sample() Playback {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sm.current != StatePlaying {
		return p.playback
	}

	pos := p.track.Position()
	p.playback.Position = pos

	p.sampleLog.Do(func() {
		log.Debug("playback position", "position", pos, "duration", p.playback.Duration)
	})

	if pos >= p.playback.Duration || !p.track.Playing() {
		p.playback.Position = p.playback.Duration
		p.playback.Playing = false
		p.sm.transition(StateFinished)
	}
	return p.playback
}

// Close releases the current track and returns to Idle. Pending loads
// become stale.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.gen++
	p.releaseLocked()
	p.sm.reset()
}

// State returns the current state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sm.current
}

// Playback returns the last sampled playback state.
func (p *Player) Playback() Playback {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playback
}

// Err returns the decode failure of the current load, if any.
func (p *Player) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Peaks returns n normalized amplitude buckets of the loaded clip.
func (p *Player) Peaks(n int) []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.clip == nil {
		return nil
	}
	return p.clip.Peaks(n)
}

func (p *Player) failLocked(err error) {
	p.err = &DecodeError{Err: err}
	p.sm.transition(StateIdle)
	log.Debug("clip failed to load", "err", err)
	if p.onDecodeFailure != nil {
		p.onDecodeFailure(err)
	}
}

// releaseLocked closes the current track once and clears clip state.
func (p *Player) releaseLocked() {
	if p.track != nil {
		if err := p.track.Close(); err != nil {
			log.Warn("failed to release track", "err", err)
		}
		p.track = nil
	}
	p.clip = nil
	p.err = nil
	p.playback = Playback{}
}
