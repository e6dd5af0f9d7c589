package audio

import "math"

// ----- Voice Config ----- //

// VoiceConfig is everything a voice needs from the live parameters at
// note-on time and on every later re-apply.
type VoiceConfig struct {
	SampleRate float64
	Velocity   float64
	ADSR       ADSR
	Oscs       [2]OscParams
	Wavetable  bool // sine wavetable instead of the first oscillator
	Filter     FilterParams
}

// DefaultVoiceConfig ...
func DefaultVoiceConfig() VoiceConfig {
	return VoiceConfig{
		SampleRate: defaultSampleRate,
		Velocity:   1,
		ADSR:       DefaultADSR(),
		Oscs: [2]OscParams{
			{Enabled: true, Kind: WaveSine, Volume: 1},
			{Enabled: false, Kind: WaveSine, Volume: 1},
		},
		Filter: DefaultFilterParams(),
	}
}

// ----- Voice ----- //

// Voice is one sounding note. It owns its envelope and oscillators; the
// wavetable is the only thing shared with other voices.
type Voice struct {
	note       int
	freq       float64
	sampleRate float64
	env        *Envelope
	oscs       [2]*Oscillator
	enabled    [2]bool
	wavetable  *WavetableOscillator
	useTable   bool
	filterP    FilterParams
	filter     Filter // nil, onePole or biquad
	onePole    *LowPassFilter
	biquad     *Biquad
}

// NewVoice creates a voice and starts its envelope.
func NewVoice(note int, freq float64, cfg VoiceConfig) *Voice {
	sr := cfg.SampleRate
	if sr <= 0 || math.IsNaN(sr) {
		sr = defaultSampleRate
	}
	v := &Voice{
		note:       note,
		freq:       freq,
		sampleRate: sr,
		env:        NewEnvelope(sr),
		wavetable:  NewWavetableOscillator(SineTable(), freq, sr),
		onePole:    NewLowPassFilter(freq, sr),
		biquad:     NewBiquad(FilterNone, freq, 1, 0, sr),
	}
	for i := range v.oscs {
		v.oscs[i] = NewOscillator(cfg.Oscs[i].Kind, sr)
	}
	v.Apply(cfg)
	v.env.SetVelocity(cfg.Velocity)
	v.env.NoteOn()
	return v
}

// Apply re-applies live configuration without touching phase, envelope or
// filter state. The velocity stays as set at note-on. It does not allocate.
func (v *Voice) Apply(cfg VoiceConfig) {
	if cfg.SampleRate > 0 && cfg.SampleRate != v.sampleRate {
		v.SetSampleRate(cfg.SampleRate)
	}
	v.env.SetADSR(cfg.ADSR)
	for i, p := range cfg.Oscs {
		v.enabled[i] = p.Enabled
		v.oscs[i].applyParams(p)
	}
	v.setUseTable(cfg.Wavetable)
	v.wavetable.SetFrequency(v.tableFrequency(), v.sampleRate)
	if cfg.Filter != v.filterP {
		v.applyFilter(cfg.Filter)
	}
}

// setUseTable hands the running phase over between the first oscillator
// and the wavetable so switching mid-note stays continuous.
func (v *Voice) setUseTable(on bool) {
	if on == v.useTable {
		return
	}
	if on {
		v.wavetable.phase = v.oscs[0].phase * WavetableSize
	} else {
		v.oscs[0].phase = v.wavetable.phase / WavetableSize
	}
	v.useTable = on
}

// The wavetable stands in for the first oscillator, detune included.
func (v *Voice) tableFrequency() float64 {
	return v.freq * v.oscs[0].detuneRatio
}

// applyFilter updates the preallocated filters in place. Delay-line state
// survives parameter changes and is cleared only when another filter
// takes over.
func (v *Voice) applyFilter(p FilterParams) {
	v.filterP = p
	cutoff := p.cutoffFor(v.freq)
	var next Filter
	switch p.Kind {
	case FilterNone:
		v.filter = nil
		return
	case FilterOnePole:
		v.onePole.SetCutoff(cutoff)
		next = v.onePole
	default:
		v.biquad.configure(p.Kind, cutoff, p.Q, p.Gain)
		next = v.biquad
	}
	if v.filter != next {
		next.Reset()
		v.filter = next
	}
}

// Sample averages the enabled oscillators and runs the optional filter.
// The envelope is not applied here.
func (v *Voice) Sample() float64 {
	sum := 0.0
	count := 0
	for i, osc := range v.oscs {
		if !v.enabled[i] {
			continue
		}
		if i == 0 && v.useTable {
			sum += v.wavetable.Sample() * osc.Volume()
		} else {
			sum += osc.Sample(v.freq, v.sampleRate)
		}
		count++
	}
	if count == 0 {
		return 0
	}
	out := sum / float64(count)
	if v.filter != nil {
		out = v.filter.Process(out)
	}
	return out
}

// UpdateFrequency retunes the voice in place.
func (v *Voice) UpdateFrequency(freq float64) {
	if freq <= 0 || math.IsNaN(freq) || math.IsInf(freq, 0) {
		return
	}
	v.freq = freq
	v.wavetable.SetFrequency(v.tableFrequency(), v.sampleRate)
	if v.filter != nil && v.filterP.KeyTrack > 0 {
		v.filter.SetCutoff(v.filterP.cutoffFor(freq))
	}
}

func (v *Voice) SetSampleRate(sampleRate float64) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return
	}
	v.sampleRate = sampleRate
	v.env.SetSampleRate(sampleRate)
	v.wavetable.SetFrequency(v.tableFrequency(), sampleRate)
	v.onePole.SetSampleRate(sampleRate)
	v.biquad.SetSampleRate(sampleRate)
}

func (v *Voice) NoteOff() { v.env.NoteOff() }

func (v *Voice) Note() int           { return v.note }
func (v *Voice) Frequency() float64  { return v.freq }
func (v *Voice) SampleRate() float64 { return v.sampleRate }
func (v *Voice) Envelope() *Envelope { return v.env }

func (v *Voice) Oscillator(i int) *Oscillator {
	return v.oscs[i]
}
