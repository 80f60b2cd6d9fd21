package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// RawPCMRate is the sample rate assumed for audio/pcm bodies.
const RawPCMRate = 24000

var (
	// ErrEmptyAudio is returned when there is nothing to decode.
	ErrEmptyAudio = errors.New("audio data is empty")
	// ErrUnsupportedFormat is returned for containers the console cannot decode.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

type container int

const (
	containerUnknown container = iota
	containerMP3
	containerWAV
	containerPCM
)

// Clip is decoded mono audio.
type Clip struct {
	Samples    []int16
	SampleRate int
	Duration   time.Duration
}

// Decode decodes data according to mimeType, sniffing the content when the
// type is missing or generic.
func Decode(data []byte, mimeType string) (*Clip, error) {
	if len(data) == 0 {
		return nil, ErrEmptyAudio
	}

	kind := containerFor(mimeType)
	if kind == containerUnknown {
		kind = sniff(data)
	}

	var (
		samples []int16
		rate    int
		err     error
	)
	switch kind {
	case containerMP3:
		samples, rate, err = decodeMP3(data)
	case containerWAV:
		samples, rate, err = decodeWAV(data)
	case containerPCM:
		samples, rate = DecodePCM16(data), RawPCMRate
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, mimeType)
	}
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, ErrEmptyAudio
	}
	if rate <= 0 {
		return nil, fmt.Errorf("%w: invalid sample rate %d", ErrUnsupportedFormat, rate)
	}

	return &Clip{
		Samples:    samples,
		SampleRate: rate,
		Duration:   time.Duration(len(samples)) * time.Second / time.Duration(rate),
	}, nil
}

func containerFor(mimeType string) container {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return containerUnknown
	}

	switch strings.ToLower(mt) {
	case "audio/mpeg", "audio/mp3", "audio/mpeg3":
		return containerMP3
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return containerWAV
	case "audio/pcm":
		return containerPCM
	default:
		return containerUnknown
	}
}

func sniff(data []byte) container {
	switch {
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return containerWAV
	case bytes.HasPrefix(data, []byte("ID3")):
		return containerMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return containerMP3
	default:
		return containerUnknown
	}
}

// decodeMP3 returns mono samples; go-mp3 always yields 16-bit stereo.
func decodeMP3(data []byte) ([]int16, int, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("decode mp3: %w", err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, 0, fmt.Errorf("decode mp3: %w", err)
	}

	return Downmix(DecodePCM16(raw), 2), dec.SampleRate(), nil
}

func decodeWAV(data []byte) ([]int16, int, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("decode wav: %w", ErrUnsupportedFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode wav: %w", err)
	}
	if buf.Format == nil || buf.Format.SampleRate == 0 {
		return nil, 0, fmt.Errorf("decode wav: %w", ErrUnsupportedFormat)
	}

	shift := int(dec.BitDepth) - 16
	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		switch {
		case dec.BitDepth == 8:
			// 8-bit WAV is unsigned.
			samples[i] = int16((v - 128) << 8)
		case shift > 0:
			samples[i] = int16(v >> shift)
		default:
			samples[i] = int16(v)
		}
	}

	return Downmix(samples, buf.Format.NumChannels), buf.Format.SampleRate, nil
}

// Peaks reduces the clip to n normalized amplitude buckets in [0, 1].
func (c *Clip) Peaks(n int) []float64 {
	if n <= 0 {
		return nil
	}

	peaks := make([]float64, n)
	if len(c.Samples) == 0 {
		return peaks
	}

	var loudest float64
	for i := range peaks {
		start := i * len(c.Samples) / n
		end := (i + 1) * len(c.Samples) / n
		if end <= start {
			end = start + 1
		}
		if end > len(c.Samples) {
			end = len(c.Samples)
		}

		var peak float64
		for _, s := range c.Samples[start:end] {
			peak = math.Max(peak, math.Abs(float64(s)))
		}
		peaks[i] = peak
		loudest = math.Max(loudest, peak)
	}

	if loudest > 0 {
		for i := range peaks {
			peaks[i] /= loudest
		}
	}
	return peaks
}
