//go:build nocgo
// +build nocgo

package audio

import "errors"

// Stub implementations for builds without CGO

var errNoAudio = errors.New("audio not available in nocgo build")

// Device stub for nocgo builds
type Device struct{}

// NewDevice always fails in nocgo builds
func NewDevice(cfg DeviceConfig) (*Device, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return nil, errNoAudio
}

func (d *Device) Open(*Clip) (Track, error) {
	return nil, errNoAudio
}

func (d *Device) Close() error {
	return nil
}
