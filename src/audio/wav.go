package audio

import (
	"fmt"
	"io"
	"math"

	"github.com/youpy/go-wav"
)

const wavBitsPerSample = 16

// WriteWAV writes mono samples as 16-bit PCM, copied to each of channels
// (1 or 2).
func WriteWAV(w io.Writer, samples []float64, sampleRate int, channels int) error {
	if channels != 1 && channels != 2 {
		return fmt.Errorf("%w: wav channels %d", ErrInvalidConfig, channels)
	}
	if sampleRate <= 0 || sampleRate > maxSampleRate {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidConfig, sampleRate)
	}
	writer := wav.NewWriter(w, uint32(len(samples)), uint16(channels), uint32(sampleRate), wavBitsPerSample)
	out := make([]wav.Sample, len(samples))
	for i, value := range samples {
		v := int(math.Round(value * 32767))
		out[i].Values[0] = v
		out[i].Values[1] = v
	}
	return writer.WriteSamples(out)
}
