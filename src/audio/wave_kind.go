package audio

import (
	"fmt"
	"strings"
)

// ----- Wave Kind ----- //

// WaveKind is the closed set of oscillator waveforms.
type WaveKind int

const (
	WaveSine WaveKind = iota
	WaveSquare
	WaveTriangle
	WaveSawtooth
)

var waveKindNames = [...]string{
	WaveSine:     "sine",
	WaveSquare:   "square",
	WaveTriangle: "triangle",
	WaveSawtooth: "sawtooth",
}

func (k WaveKind) String() string {
	if k < 0 || int(k) >= len(waveKindNames) {
		return fmt.Sprintf("WaveKind(%d)", int(k))
	}
	return waveKindNames[k]
}

// WaveKindFromString parses a wave name. "saw" is accepted for sawtooth.
func WaveKindFromString(s string) (WaveKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "saw" {
		return WaveSawtooth, nil
	}
	for i, name := range waveKindNames {
		if name == s {
			return WaveKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown wave kind %q: %w", s, ErrInvalidParam)
}

func (k WaveKind) valid() bool {
	return k >= WaveSine && k <= WaveSawtooth
}
