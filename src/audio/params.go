package audio

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
)

const (
	maxDetune      = 48.0 // semitones
	maxEnvelopeSec = 60.0
	maxCutoff      = 100000.0
	maxKeyTrack    = 64.0
	maxQ           = 100.0
	maxShelfGain   = 48.0 // dB
	minEchoDelay   = 10.0 // ms
	maxEchoDelay   = 2000.0
)

type floatParam struct {
	atomic.Uint64
}

func (f *floatParam) load() float64   { return math.Float64frombits(f.Load()) }
func (f *floatParam) store(v float64) { f.Store(math.Float64bits(v)) }

// ----- Params ----- //

// params are written by event handlers and read by the mixing engine once
// per buffer. Every successful write bumps version.
type params struct {
	version atomic.Uint64

	volume     floatParam
	sampleRate floatParam

	wave      [2]atomic.Int32
	osc2      atomic.Bool
	detune    [2]floatParam
	wavetable atomic.Bool

	attack  floatParam
	decay   floatParam
	sustain floatParam
	release floatParam

	filterKind     atomic.Int32
	filterCutoff   floatParam
	filterKeyTrack floatParam
	filterQ        floatParam
	filterGain     floatParam

	echoEnabled  atomic.Bool
	echoDelay    floatParam // ms
	echoFeedback floatParam
	echoMix      floatParam
}

func newParams(sampleRate float64) *params {
	p := &params{}
	p.volume.store(defaultVolume)
	p.sampleRate.store(sampleRate)
	adsr := DefaultADSR()
	p.attack.store(adsr.Attack)
	p.decay.store(adsr.Decay)
	p.sustain.store(adsr.Sustain)
	p.release.store(adsr.Release)
	f := DefaultFilterParams()
	p.filterKind.Store(int32(f.Kind))
	p.filterCutoff.store(f.Cutoff)
	p.filterQ.store(f.Q)
	p.echoDelay.store(300)
	p.echoFeedback.store(0.3)
	p.echoMix.store(0.3)
	return p
}

// paramKeys lists every key accepted by set, in report order.
var paramKeys = []string{
	"volume", "sample_rate",
	"wave", "wave2", "osc2", "detune", "detune2", "wavetable",
	"attack", "decay", "sustain", "release",
	"filter.kind", "filter.cutoff", "filter.keytrack", "filter.q", "filter.gain",
	"echo.enabled", "echo.delay", "echo.feedback", "echo.mix",
}

func parseRange(key, value string, lo, hi float64) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, ErrInvalidParam)
	}
	if math.IsNaN(v) || v < lo || v > hi {
		return 0, fmt.Errorf("%s=%v out of range [%v, %v]: %w", key, value, lo, hi, ErrInvalidParam)
	}
	return v, nil
}

func parseBool(key, value string) (bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, ErrInvalidParam)
	}
	return b, nil
}

// set validates value before storing it. On error nothing changes.
func (p *params) set(key string, value string) error {
	var err error
	switch key {
	case "volume":
		err = p.setFloat(&p.volume, key, value, 0, 1)
	case "sample_rate":
		err = p.setFloat(&p.sampleRate, key, value, 1, maxSampleRate)
	case "wave", "wave2":
		var kind WaveKind
		if kind, err = WaveKindFromString(value); err == nil {
			i := 0
			if key == "wave2" {
				i = 1
			}
			p.wave[i].Store(int32(kind))
		}
	case "osc2":
		var b bool
		if b, err = parseBool(key, value); err == nil {
			p.osc2.Store(b)
		}
	case "detune":
		err = p.setFloat(&p.detune[0], key, value, -maxDetune, maxDetune)
	case "detune2":
		err = p.setFloat(&p.detune[1], key, value, -maxDetune, maxDetune)
	case "wavetable":
		var b bool
		if b, err = parseBool(key, value); err == nil {
			p.wavetable.Store(b)
		}
	case "attack":
		err = p.setFloat(&p.attack, key, value, 0, maxEnvelopeSec)
	case "decay":
		err = p.setFloat(&p.decay, key, value, 0, maxEnvelopeSec)
	case "sustain":
		err = p.setFloat(&p.sustain, key, value, 0, 1)
	case "release":
		err = p.setFloat(&p.release, key, value, 0, maxEnvelopeSec)
	case "filter.kind":
		var kind FilterKind
		if kind, err = FilterKindFromString(value); err == nil {
			p.filterKind.Store(int32(kind))
		}
	case "filter.cutoff":
		err = p.setFloat(&p.filterCutoff, key, value, 1, maxCutoff)
	case "filter.keytrack":
		err = p.setFloat(&p.filterKeyTrack, key, value, 0, maxKeyTrack)
	case "filter.q":
		err = p.setFloat(&p.filterQ, key, value, 0.001, maxQ)
	case "filter.gain":
		err = p.setFloat(&p.filterGain, key, value, -maxShelfGain, maxShelfGain)
	case "echo.enabled":
		var b bool
		if b, err = parseBool(key, value); err == nil {
			p.echoEnabled.Store(b)
		}
	case "echo.delay":
		err = p.setFloat(&p.echoDelay, key, value, minEchoDelay, maxEchoDelay)
	case "echo.feedback":
		err = p.setFloat(&p.echoFeedback, key, value, 0, 0.99)
	case "echo.mix":
		err = p.setFloat(&p.echoMix, key, value, 0, 1)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownParam, key)
	}
	if err != nil {
		return err
	}
	p.version.Add(1)
	return nil
}

func (p *params) setFloat(f *floatParam, key, value string, lo, hi float64) error {
	v, err := parseRange(key, value, lo, hi)
	if err != nil {
		return err
	}
	f.store(v)
	return nil
}

// ----- Snapshot ----- //

type paramsSnapshot struct {
	version    uint64
	volume     float64
	sampleRate float64
	voice      VoiceConfig
	echo       echoParams
}

// snapshot reads the version first so a write racing with the read is
// picked up again on the next buffer.
func (p *params) snapshot() paramsSnapshot {
	s := paramsSnapshot{
		version:    p.version.Load(),
		volume:     p.volume.load(),
		sampleRate: p.sampleRate.load(),
	}
	s.voice = VoiceConfig{
		SampleRate: s.sampleRate,
		Velocity:   1,
		ADSR: ADSR{
			Attack:  p.attack.load(),
			Decay:   p.decay.load(),
			Sustain: p.sustain.load(),
			Release: p.release.load(),
		},
		Oscs: [2]OscParams{
			{Enabled: true, Kind: WaveKind(p.wave[0].Load()), Detune: p.detune[0].load(), Volume: 1},
			{Enabled: p.osc2.Load(), Kind: WaveKind(p.wave[1].Load()), Detune: p.detune[1].load(), Volume: 1},
		},
		Wavetable: p.wavetable.Load(),
		Filter: FilterParams{
			Kind:     FilterKind(p.filterKind.Load()),
			Cutoff:   p.filterCutoff.load(),
			KeyTrack: p.filterKeyTrack.load(),
			Q:        p.filterQ.load(),
			Gain:     p.filterGain.load(),
		},
	}
	s.echo = echoParams{
		enabled:      p.echoEnabled.Load(),
		delay:        p.echoDelay.load(),
		feedbackGain: p.echoFeedback.load(),
		mix:          p.echoMix.load(),
	}
	return s
}

// ----- JSON ----- //

// get formats a parameter the way set accepts it.
func (p *params) get(key string) (interface{}, error) {
	s := p.snapshot()
	switch key {
	case "volume":
		return s.volume, nil
	case "sample_rate":
		return s.sampleRate, nil
	case "wave":
		return s.voice.Oscs[0].Kind.String(), nil
	case "wave2":
		return s.voice.Oscs[1].Kind.String(), nil
	case "osc2":
		return s.voice.Oscs[1].Enabled, nil
	case "detune":
		return s.voice.Oscs[0].Detune, nil
	case "detune2":
		return s.voice.Oscs[1].Detune, nil
	case "wavetable":
		return s.voice.Wavetable, nil
	case "attack":
		return s.voice.ADSR.Attack, nil
	case "decay":
		return s.voice.ADSR.Decay, nil
	case "sustain":
		return s.voice.ADSR.Sustain, nil
	case "release":
		return s.voice.ADSR.Release, nil
	case "filter.kind":
		return s.voice.Filter.Kind.String(), nil
	case "filter.cutoff":
		return s.voice.Filter.Cutoff, nil
	case "filter.keytrack":
		return s.voice.Filter.KeyTrack, nil
	case "filter.q":
		return s.voice.Filter.Q, nil
	case "filter.gain":
		return s.voice.Filter.Gain, nil
	case "echo.enabled":
		return s.echo.enabled, nil
	case "echo.delay":
		return s.echo.delay, nil
	case "echo.feedback":
		return s.echo.feedbackGain, nil
	case "echo.mix":
		return s.echo.mix, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownParam, key)
}

func (p *params) toJSON() json.RawMessage {
	m := make(map[string]interface{}, len(paramKeys))
	for _, key := range paramKeys {
		v, _ := p.get(key)
		m[key] = v
	}
	return toRawMessage(m)
}
