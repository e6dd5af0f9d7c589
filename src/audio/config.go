package audio

import (
	"errors"
	"fmt"
)

const (
	defaultSampleRate = 48000
	defaultBufferSize = 512
	defaultChannels   = 2
	defaultBitDepth   = 2 // bytes
	defaultVolume     = 0.15
	maxSampleRate     = 384000
	maxBufferSize     = 16384
	maxChannels       = 32
)

var (
	ErrInvalidConfig  = errors.New("invalid config")
	ErrInvalidParam   = errors.New("invalid parameter value")
	ErrUnknownParam   = errors.New("unknown parameter")
	ErrInvalidNote    = errors.New("note out of range")
	ErrUnknownCommand = errors.New("unknown command")
)

// Config is the device-facing configuration. It is fixed for the lifetime of
// an output stream; the sample rate can still be changed at runtime through
// SetSampleRate, which is what a device restart does.
type Config struct {
	SampleRate int
	BufferSize int // frames
	Channels   int
	BitDepth   int // bytes per sample for integer output, 1 or 2
}

// DefaultConfig ...
func DefaultConfig() Config {
	return Config{
		SampleRate: defaultSampleRate,
		BufferSize: defaultBufferSize,
		Channels:   defaultChannels,
		BitDepth:   defaultBitDepth,
	}
}

// Validate rejects values that would reach the audio path as zero divisors
// or unbounded allocations.
func (c Config) Validate() error {
	if c.SampleRate <= 0 || c.SampleRate > maxSampleRate {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidConfig, c.SampleRate)
	}
	if c.BufferSize <= 0 || c.BufferSize > maxBufferSize {
		return fmt.Errorf("%w: buffer size %d", ErrInvalidConfig, c.BufferSize)
	}
	if c.Channels <= 0 || c.Channels > maxChannels {
		return fmt.Errorf("%w: channels %d", ErrInvalidConfig, c.Channels)
	}
	if c.BitDepth != 1 && c.BitDepth != 2 {
		return fmt.Errorf("%w: bit depth %d", ErrInvalidConfig, c.BitDepth)
	}
	return nil
}

func (c Config) bytesPerFrame() int {
	return c.BitDepth * c.Channels
}
