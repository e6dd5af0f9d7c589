package audio

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	vecmath "github.com/cwbudde/algo-vecmath"
)

// ----- Analyzer ----- //

// Analyzer computes magnitude spectra of fixed-size frames. Buffers are
// allocated once; an Analyzer must not be used from two goroutines at once.
type Analyzer struct {
	size   int
	plan   *algofft.Plan[complex128]
	window []float64
	frame  []float64
	in     []complex128
	out    []complex128
	re     []float64
	im     []float64
	result []float64
}

// NewAnalyzer ...
func NewAnalyzer(size int) (*Analyzer, error) {
	if size < 2 || size&(size-1) != 0 {
		return nil, fmt.Errorf("analyzer size %d is not a power of two: %w", size, ErrInvalidConfig)
	}
	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("analyzer fft plan: %w", err)
	}
	a := &Analyzer{
		size:   size,
		plan:   plan,
		window: make([]float64, size),
		frame:  make([]float64, size),
		in:     make([]complex128, size),
		out:    make([]complex128, size),
		re:     make([]float64, size/2),
		im:     make([]float64, size/2),
		result: make([]float64, size/2),
	}
	for i := range a.window {
		x := float64(i) / float64(size)
		a.window[i] = 0.5 - 0.5*math.Cos(2.0*math.Pi*x)
	}
	return a, nil
}

func (a *Analyzer) Size() int { return a.size }

// Spectrum returns the Hann-windowed magnitude of frame scaled by 2/size,
// one value per bin up to Nyquist. The result is reused by the next call.
func (a *Analyzer) Spectrum(frame []float64) ([]float64, error) {
	if len(frame) != a.size {
		return nil, fmt.Errorf("frame length %d, want %d", len(frame), a.size)
	}
	vecmath.MulBlock(a.frame, frame, a.window)
	if err := a.magnitude(a.frame); err != nil {
		return nil, err
	}
	vecmath.ScaleBlock(a.result, a.result, 2/float64(a.size))
	return a.result, nil
}

// Response returns the unwindowed, unscaled magnitude of an impulse
// response, which is the filter's frequency response.
func (a *Analyzer) Response(impulse []float64) ([]float64, error) {
	if len(impulse) != a.size {
		return nil, fmt.Errorf("impulse length %d, want %d", len(impulse), a.size)
	}
	if err := a.magnitude(impulse); err != nil {
		return nil, err
	}
	return a.result, nil
}

func (a *Analyzer) magnitude(x []float64) error {
	for i, v := range x {
		a.in[i] = complex(v, 0)
	}
	if err := a.plan.Forward(a.out, a.in); err != nil {
		return err
	}
	for i := range a.re {
		a.re[i] = real(a.out[i])
		a.im[i] = imag(a.out[i])
	}
	vecmath.Magnitude(a.result, a.re, a.im)
	return nil
}

// FrequencyResponse computes the magnitude response of a filter
// configuration at n/2 evenly spaced frequencies from 0 to Nyquist.
func FrequencyResponse(p FilterParams, freq, sampleRate float64, n int) ([]float64, error) {
	a, err := NewAnalyzer(n)
	if err != nil {
		return nil, err
	}
	impulse := make([]float64, n)
	impulseResponse(p, freq, sampleRate, impulse)
	result, err := a.Response(impulse)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), result...), nil
}
