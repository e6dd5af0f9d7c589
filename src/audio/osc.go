package audio

import "math"

// ----- OSC Params ----- //

// OscParams configures one voice oscillator.
type OscParams struct {
	Enabled bool
	Kind    WaveKind
	Detune  float64 // semitones
	Volume  float64 // 0-1
}

// ----- OSC ----- //

// Oscillator is a phase-accumulating waveform generator. Square and
// sawtooth are corrected with PolyBLEP; a one-pole low-pass takes over as
// the fundamental approaches Nyquist.
type Oscillator struct {
	kind        WaveKind
	phase       float64 // 0-1
	detune      float64 // semitones
	detuneRatio float64
	volume      float64
	filter      *LowPassFilter
	prevCutoff  float64
	prevRate    float64
}

const initialAntiAliasCutoff = 20000.0

// NewOscillator ...
func NewOscillator(kind WaveKind, sampleRate float64) *Oscillator {
	return &Oscillator{
		kind:        kind,
		detuneRatio: 1,
		volume:      1,
		filter:      NewLowPassFilter(initialAntiAliasCutoff, sampleRate),
		prevCutoff:  initialAntiAliasCutoff,
		prevRate:    sampleRate,
	}
}

func (o *Oscillator) SetKind(kind WaveKind) {
	if kind.valid() {
		o.kind = kind
	}
}

func (o *Oscillator) SetDetune(semitones float64) {
	if math.IsNaN(semitones) || math.IsInf(semitones, 0) {
		return
	}
	o.detune = semitones
	o.detuneRatio = math.Pow(2, semitones/12)
}

func (o *Oscillator) SetVolume(v float64) {
	o.volume = clamp01(v)
}

func (o *Oscillator) applyParams(p OscParams) {
	o.SetKind(p.Kind)
	if p.Detune != o.detune {
		o.SetDetune(p.Detune)
	}
	o.SetVolume(p.Volume)
}

func (o *Oscillator) Kind() WaveKind  { return o.kind }
func (o *Oscillator) Phase() float64  { return o.phase }
func (o *Oscillator) Detune() float64 { return o.detune }
func (o *Oscillator) Volume() float64 { return o.volume }

// polyBLEP returns the band-limited step residual for normalized phase t
// with per-sample increment dt.
func polyBLEP(t, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	if t < dt {
		t /= dt
		return 2*t - t*t - 1
	} else if t > 1-dt {
		t = (t - 1) / dt
		return t*t + 2*t + 1
	}
	return 0
}

// naiveSample is the uncorrected waveform at normalized phase p.
func naiveSample(kind WaveKind, p float64) float64 {
	switch kind {
	case WaveSquare:
		if p < 0.5 {
			return 1
		}
		return -1
	case WaveSawtooth:
		return 2*p - 1
	case WaveTriangle:
		// integrated square: 0 -> 1 -> 0 -> -1 -> 0
		q := p * 4
		switch {
		case q < 1:
			return q
		case q < 2:
			return 2 - q
		case q < 3:
			return 2 - q
		default:
			return q - 4
		}
	default:
		return math.Sin(2 * math.Pi * p)
	}
}

func (o *Oscillator) rawSample(dt float64) float64 {
	p := o.phase
	value := naiveSample(o.kind, p)
	switch o.kind {
	case WaveSquare:
		q := p + 0.5
		if q >= 1 {
			q--
		}
		value += polyBLEP(p, dt)
		value -= polyBLEP(q, dt)
	case WaveSawtooth:
		value -= polyBLEP(p, dt)
	}
	return value
}

// Sample returns one sample at baseFreq*2^(detune/12) and advances the phase.
func (o *Oscillator) Sample(baseFreq, sampleRate float64) float64 {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return 0
	}
	freq := baseFreq * o.detuneRatio
	if freq <= 0 || math.IsNaN(freq) || math.IsInf(freq, 0) {
		return 0
	}
	dt := freq / sampleRate
	if dt >= 1 {
		_, dt = math.Modf(dt)
	}

	cutoff := freq * 2.5
	if freq > sampleRate*0.125 {
		cutoff = freq * 1.5
	}
	if math.Abs(cutoff-o.prevCutoff) > 1 || sampleRate != o.prevRate {
		o.filter.SetSampleRate(sampleRate)
		o.filter.SetCutoff(math.Min(cutoff, sampleRate*0.45))
		o.prevCutoff = cutoff
		o.prevRate = sampleRate
	}

	raw := o.rawSample(dt)
	o.phase += dt
	if o.phase >= 1 {
		o.phase--
	}

	filtered := o.filter.Process(raw)
	quarter := sampleRate * 0.25
	if freq > quarter {
		fade := 1 - math.Min((freq-quarter)/quarter, 1)
		return filtered * fade * o.volume
	}
	return raw * o.volume
}
