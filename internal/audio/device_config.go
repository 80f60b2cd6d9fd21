package audio

import (
	"fmt"
	"time"
)

// DeviceConfig configures the system output.
type DeviceConfig struct {
	SampleRate int     // 44100 or 48000
	Volume     float64 // 0.0 to 1.0
	BufferSize time.Duration
}

// DefaultDeviceConfig returns the default output configuration.
func DefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		SampleRate: 44100,
		Volume:     1.0,
		BufferSize: 100 * time.Millisecond,
	}
}

func (c DeviceConfig) validate() error {
	if c.SampleRate != 44100 && c.SampleRate != 48000 {
		return fmt.Errorf("sample rate must be 44100 or 48000 Hz, got %d", c.SampleRate)
	}
	if c.Volume < 0 || c.Volume > 1 {
		return fmt.Errorf("volume must be between 0.0 and 1.0, got %f", c.Volume)
	}
	return nil
}
