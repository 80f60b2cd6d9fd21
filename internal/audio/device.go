//go:build !nocgo
// +build !nocgo

package audio

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process.
var (
	contextOnce sync.Once
	otoContext  *oto.Context
	contextErr  error
	contextRate int
)

// Device plays clips through the system audio output.
type Device struct {
	ctx    *oto.Context
	format Format
	volume float64
	closed atomic.Bool
}

// NewDevice opens the system output. Later calls reuse the first context
// and fail if they ask for a different rate.
func NewDevice(cfg DeviceConfig) (*Device, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	contextOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   cfg.SampleRate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   cfg.BufferSize,
		})
		if err != nil {
			contextErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-ready
		otoContext = ctx
		contextRate = cfg.SampleRate
	})
	if contextErr != nil {
		return nil, contextErr
	}
	if contextRate != cfg.SampleRate {
		return nil, fmt.Errorf("audio output already open at %d Hz", contextRate)
	}

	return &Device{
		ctx:    otoContext,
		format: Format{SampleRate: cfg.SampleRate, Channels: 1},
		volume: cfg.Volume,
	}, nil
}

// Open resamples clip to the device rate and prepares a paused track.
func (d *Device) Open(clip *Clip) (Track, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}
	if clip == nil || len(clip.Samples) == 0 {
		return nil, ErrEmptyAudio
	}

	data := EncodePCM16(Resample(clip.Samples, clip.SampleRate, d.format.SampleRate))
	src := &stream{data: data, reader: bytes.NewReader(data)}

	player := d.ctx.NewPlayer(src)
	player.SetVolume(d.volume)

	log.Debug("opened track", "bytes", len(data), "duration", d.format.Duration(len(data)))

	return &deviceTrack{
		player:   player,
		src:      src,
		format:   d.format,
		duration: d.format.Duration(len(data)),
	}, nil
}

// Close stops handing out tracks. The oto context lives for the process.
func (d *Device) Close() error {
	d.closed.Store(true)
	return nil
}

// stream keeps the PCM alive while oto reads it and counts consumed bytes.
type stream struct {
	mu     sync.Mutex
	data   []byte
	reader *bytes.Reader
	read   int64
}

func (s *stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reader == nil {
		return 0, io.EOF
	}
	n, err := s.reader.Read(p)
	s.read += int64(n)
	return n, err
}

func (s *stream) Seek(offset int64, whence int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reader == nil {
		return 0, ErrClosed
	}
	pos, err := s.reader.Seek(offset, whence)
	if err == nil {
		s.read = pos
	}
	return pos, err
}

func (s *stream) consumed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read
}

func (s *stream) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	s.reader = nil
}

type deviceTrack struct {
	player    *oto.Player
	src       *stream
	format    Format
	duration  time.Duration
	closed    atomic.Bool
	closeOnce sync.Once
}

func (t *deviceTrack) Play() error {
	if t.closed.Load() {
		return ErrClosed
	}
	t.player.Play()
	return t.player.Err()
}

func (t *deviceTrack) Pause() {
	if t.closed.Load() {
		return
	}
	t.player.Pause()
}

func (t *deviceTrack) Restart() error {
	if t.closed.Load() {
		return ErrClosed
	}
	if _, err := t.player.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("restart track: %w", err)
	}
	return nil
}

func (t *deviceTrack) Playing() bool {
	return !t.closed.Load() && t.player.IsPlaying()
}

// Position is the audible position: bytes read minus what oto still buffers.
func (t *deviceTrack) Position() time.Duration {
	if t.closed.Load() {
		return 0
	}
	played := t.src.consumed() - int64(t.player.BufferedSize())
	if played < 0 {
		played = 0
	}
	pos := t.format.Duration(int(played))
	if pos > t.duration {
		pos = t.duration
	}
	return pos
}

func (t *deviceTrack) Duration() time.Duration {
	return t.duration
}

func (t *deviceTrack) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.closed.Store(true)
		t.player.Pause()
		err = t.player.Close()
		t.src.release()
	})
	return err
}
