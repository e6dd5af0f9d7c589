package audio

import (
	"fmt"
	"math"
	"strings"
)

// Filter is a single-channel processing stage whose coefficients follow
// cutoff and sample rate.
type Filter interface {
	Process(in float64) float64
	SetCutoff(freq float64)
	SetSampleRate(sampleRate float64)
	Reset()
}

// ----- Filter Kind ----- //

type FilterKind int

const (
	FilterNone FilterKind = iota
	FilterOnePole
	FilterNotch
	FilterLowPass
	FilterHighPass
	FilterBandPass
	FilterPeaking
	FilterLowShelf
	FilterHighShelf
)

var filterKindNames = [...]string{
	FilterNone:      "none",
	FilterOnePole:   "onepole",
	FilterNotch:     "notch",
	FilterLowPass:   "lowpass",
	FilterHighPass:  "highpass",
	FilterBandPass:  "bandpass",
	FilterPeaking:   "peaking",
	FilterLowShelf:  "lowshelf",
	FilterHighShelf: "highshelf",
}

func (k FilterKind) String() string {
	if k < 0 || int(k) >= len(filterKindNames) {
		return fmt.Sprintf("FilterKind(%d)", int(k))
	}
	return filterKindNames[k]
}

// FilterKindFromString ...
func FilterKindFromString(s string) (FilterKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range filterKindNames {
		if name == s {
			return FilterKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown filter kind %q: %w", s, ErrInvalidParam)
}

// clampCutoff keeps a cutoff strictly inside (0, Nyquist).
func clampCutoff(freq, sampleRate float64) float64 {
	limit := sampleRate * 0.49
	if math.IsNaN(freq) || freq < 1 {
		freq = 1
	}
	if freq > limit {
		freq = limit
	}
	return freq
}

// ----- One-pole Low-pass ----- //

// LowPassFilter is a one-pole RC low-pass: y += alpha*(x-y).
type LowPassFilter struct {
	cutoff     float64
	sampleRate float64
	alpha      float64
	prev       float64
}

// NewLowPassFilter ...
func NewLowPassFilter(cutoff, sampleRate float64) *LowPassFilter {
	if sampleRate <= 0 || math.IsNaN(sampleRate) {
		sampleRate = defaultSampleRate
	}
	f := &LowPassFilter{cutoff: cutoff, sampleRate: sampleRate}
	f.calculateAlpha()
	return f
}

func (f *LowPassFilter) calculateAlpha() {
	cutoff := clampCutoff(f.cutoff, f.sampleRate)
	rc := 1 / (2 * math.Pi * cutoff)
	dt := 1 / f.sampleRate
	f.alpha = dt / (rc + dt)
}

func (f *LowPassFilter) Process(in float64) float64 {
	f.prev += f.alpha * (in - f.prev)
	return f.prev
}

func (f *LowPassFilter) SetCutoff(freq float64) {
	f.cutoff = freq
	f.calculateAlpha()
}

func (f *LowPassFilter) SetSampleRate(sampleRate float64) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) {
		return
	}
	f.sampleRate = sampleRate
	f.calculateAlpha()
}

func (f *LowPassFilter) Reset() { f.prev = 0 }

func (f *LowPassFilter) Alpha() float64 { return f.alpha }

// ----- Biquad ----- //

// coefficients normalized to a0 = 1
type biquadCoefs struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// Biquad is a second-order RBJ cookbook filter in direct form I.
type Biquad struct {
	kind       FilterKind
	freq       float64
	q          float64
	gain       float64 // dB, peaking and shelves only
	sampleRate float64
	c          biquadCoefs
	x1, x2     float64
	y1, y2     float64
}

// NewBiquad ...
func NewBiquad(kind FilterKind, freq, q, gain, sampleRate float64) *Biquad {
	if sampleRate <= 0 || math.IsNaN(sampleRate) {
		sampleRate = defaultSampleRate
	}
	f := &Biquad{kind: kind, freq: freq, q: q, gain: gain, sampleRate: sampleRate}
	f.calculateCoefficients()
	return f
}

// NewNotchFilter ...
func NewNotchFilter(freq, q, sampleRate float64) *Biquad {
	return NewBiquad(FilterNotch, freq, q, 0, sampleRate)
}

func (f *Biquad) calculateCoefficients() {
	if f.q < 0.001 || math.IsNaN(f.q) {
		f.q = 0.001
	}
	fc := clampCutoff(f.freq, f.sampleRate) / f.sampleRate
	switch f.kind {
	case FilterNotch:
		f.c = makeBiquadNotch(fc, f.q)
	case FilterLowPass:
		f.c = makeBiquadLowpass(fc, f.q)
	case FilterHighPass:
		f.c = makeBiquadHighpass(fc, f.q)
	case FilterBandPass:
		f.c = makeBiquadBandpass(fc, f.q)
	case FilterPeaking:
		f.c = makeBiquadPeakingEQ(fc, f.q, f.gain)
	case FilterLowShelf:
		f.c = makeBiquadLowShelf(fc, f.q, f.gain)
	case FilterHighShelf:
		f.c = makeBiquadHighShelf(fc, f.q, f.gain)
	default:
		f.c = biquadCoefs{b0: 1}
	}
}

func (f *Biquad) Process(in float64) float64 {
	c := &f.c
	out := c.b0*in + c.b1*f.x1 + c.b2*f.x2 - c.a1*f.y1 - c.a2*f.y2
	f.x2 = f.x1
	f.x1 = in
	f.y2 = f.y1
	f.y1 = out
	return out
}

func (f *Biquad) SetCutoff(freq float64) {
	f.freq = freq
	f.calculateCoefficients()
}

func (f *Biquad) SetQ(q float64) {
	f.q = q
	f.calculateCoefficients()
}

func (f *Biquad) SetGain(dB float64) {
	f.gain = dB
	f.calculateCoefficients()
}

// configure replaces every parameter with a single coefficient update.
// The delay line is left as is.
func (f *Biquad) configure(kind FilterKind, freq, q, gain float64) {
	f.kind = kind
	f.freq = freq
	f.q = q
	f.gain = gain
	f.calculateCoefficients()
}

func (f *Biquad) SetSampleRate(sampleRate float64) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) {
		return
	}
	f.sampleRate = sampleRate
	f.calculateCoefficients()
}

func (f *Biquad) Reset() {
	f.x1, f.x2, f.y1, f.y2 = 0, 0, 0, 0
}

func (f *Biquad) Kind() FilterKind { return f.kind }

// ----- RBJ cookbook ----- //

func normalize(b0, b1, b2, a0, a1, a2 float64) biquadCoefs {
	return biquadCoefs{b0: b0 / a0, b1: b1 / a0, b2: b2 / a0, a1: a1 / a0, a2: a2 / a0}
}

func makeBiquadLowpass(fc float64, q float64) biquadCoefs {
	w0 := 2 * math.Pi * fc
	alpha := math.Sin(w0) / (2 * q)
	cos := math.Cos(w0)
	return normalize((1-cos)/2, 1-cos, (1-cos)/2, 1+alpha, -2*cos, 1-alpha)
}

func makeBiquadHighpass(fc float64, q float64) biquadCoefs {
	w0 := 2 * math.Pi * fc
	alpha := math.Sin(w0) / (2 * q)
	cos := math.Cos(w0)
	return normalize((1+cos)/2, -(1 + cos), (1+cos)/2, 1+alpha, -2*cos, 1-alpha)
}

// constant 0 dB peak gain
func makeBiquadBandpass(fc float64, q float64) biquadCoefs {
	w0 := 2 * math.Pi * fc
	alpha := math.Sin(w0) / (2 * q)
	return normalize(alpha, 0, -alpha, 1+alpha, -2*math.Cos(w0), 1-alpha)
}

func makeBiquadNotch(fc float64, q float64) biquadCoefs {
	w0 := 2 * math.Pi * fc
	alpha := math.Sin(w0) / (2 * q)
	cos := math.Cos(w0)
	return normalize(1, -2*cos, 1, 1+alpha, -2*cos, 1-alpha)
}

func makeBiquadPeakingEQ(fc float64, q float64, dBgain float64) biquadCoefs {
	w0 := 2 * math.Pi * fc
	alpha := math.Sin(w0) / (2 * q)
	A := math.Pow(10, dBgain/40)
	cos := math.Cos(w0)
	return normalize(1+alpha*A, -2*cos, 1-alpha*A, 1+alpha/A, -2*cos, 1-alpha/A)
}

func makeBiquadLowShelf(fc float64, q float64, dBgain float64) biquadCoefs {
	w0 := 2 * math.Pi * fc
	alpha := math.Sin(w0) / (2 * q)
	A := math.Pow(10, dBgain/40)
	cos := math.Cos(w0)
	sq := 2 * math.Sqrt(A) * alpha
	return normalize(
		A*((A+1)-(A-1)*cos+sq),
		2*A*((A-1)-(A+1)*cos),
		A*((A+1)-(A-1)*cos-sq),
		(A+1)+(A-1)*cos+sq,
		-2*((A-1)+(A+1)*cos),
		(A+1)+(A-1)*cos-sq,
	)
}

func makeBiquadHighShelf(fc float64, q float64, dBgain float64) biquadCoefs {
	w0 := 2 * math.Pi * fc
	alpha := math.Sin(w0) / (2 * q)
	A := math.Pow(10, dBgain/40)
	cos := math.Cos(w0)
	sq := 2 * math.Sqrt(A) * alpha
	return normalize(
		A*((A+1)+(A-1)*cos+sq),
		-2*A*((A-1)+(A+1)*cos),
		A*((A+1)+(A-1)*cos-sq),
		(A+1)-(A-1)*cos+sq,
		2*((A-1)-(A+1)*cos),
		(A+1)-(A-1)*cos-sq,
	)
}

// ----- Filter Params ----- //

// FilterParams selects the optional per-voice filter. When KeyTrack > 0 the
// cutoff follows the voice frequency (freq*KeyTrack); otherwise Cutoff is
// used as an absolute frequency.
type FilterParams struct {
	Kind     FilterKind
	Cutoff   float64 // Hz
	KeyTrack float64
	Q        float64
	Gain     float64 // dB
}

// DefaultFilterParams ...
func DefaultFilterParams() FilterParams {
	return FilterParams{Kind: FilterNone, Cutoff: 1000, Q: 1}
}

func (p FilterParams) cutoffFor(freq float64) float64 {
	if p.KeyTrack > 0 {
		return freq * p.KeyTrack
	}
	return p.Cutoff
}

// newFilter returns nil for FilterNone.
func newFilter(p FilterParams, freq, sampleRate float64) Filter {
	cutoff := p.cutoffFor(freq)
	switch p.Kind {
	case FilterNone:
		return nil
	case FilterOnePole:
		return NewLowPassFilter(cutoff, sampleRate)
	default:
		return NewBiquad(p.Kind, cutoff, p.Q, p.Gain, sampleRate)
	}
}

// impulseResponse runs a fresh copy of the filter over a unit impulse.
func impulseResponse(p FilterParams, freq, sampleRate float64, out []float64) {
	f := newFilter(p, freq, sampleRate)
	for i := range out {
		in := 0.0
		if i == 0 {
			in = 1
		}
		if f == nil {
			out[i] = in
			continue
		}
		out[i] = f.Process(in)
	}
}
