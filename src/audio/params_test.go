package audio

import (
	"encoding/json"
	"testing"
)

func TestParamsDefaults(t *testing.T) {
	p := newParams(44100)
	s := p.snapshot()
	expectEqual(t, s.version, uint64(0))
	expectNearlyEqual(t, s.volume, defaultVolume)
	expectNearlyEqual(t, s.sampleRate, 44100)
	expectEqual(t, s.voice.ADSR, DefaultADSR())
	expectEqual(t, s.voice.Filter, DefaultFilterParams())
	expectEqual(t, s.voice.Oscs[0].Enabled, true)
	expectEqual(t, s.voice.Oscs[0].Kind, WaveSine)
	expectEqual(t, s.voice.Oscs[1].Enabled, false)
	expectEqual(t, s.echo.enabled, false)
}

func TestParamsSet(t *testing.T) {
	p := newParams(48000)
	testCases := []struct {
		key   string
		value string
	}{
		{"volume", "0.5"},
		{"sample_rate", "96000"},
		{"wave", "square"},
		{"wave2", "saw"},
		{"osc2", "true"},
		{"detune", "-12"},
		{"detune2", "0.1"},
		{"wavetable", "1"},
		{"attack", "0"},
		{"decay", "1.5"},
		{"sustain", "0"},
		{"release", "60"},
		{"filter.kind", "bandpass"},
		{"filter.cutoff", "440"},
		{"filter.keytrack", "1.5"},
		{"filter.q", "4"},
		{"filter.gain", "-6"},
		{"echo.enabled", "true"},
		{"echo.delay", "250"},
		{"echo.feedback", "0.5"},
		{"echo.mix", "1"},
	}
	for i, tc := range testCases {
		expectNoError(t, p.set(tc.key, tc.value))
		expectEqual(t, p.snapshot().version, uint64(i+1))
	}
	s := p.snapshot()
	expectNearlyEqual(t, s.volume, 0.5)
	expectNearlyEqual(t, s.sampleRate, 96000)
	expectNearlyEqual(t, s.voice.SampleRate, 96000)
	expectEqual(t, s.voice.Oscs[0].Kind, WaveSquare)
	expectEqual(t, s.voice.Oscs[1].Kind, WaveSawtooth)
	expectEqual(t, s.voice.Oscs[1].Enabled, true)
	expectNearlyEqual(t, s.voice.Oscs[0].Detune, -12)
	expectEqual(t, s.voice.Wavetable, true)
	expectEqual(t, s.voice.ADSR, ADSR{Attack: 0, Decay: 1.5, Sustain: 0, Release: 60})
	expectEqual(t, s.voice.Filter, FilterParams{Kind: FilterBandPass, Cutoff: 440, KeyTrack: 1.5, Q: 4, Gain: -6})
	expectEqual(t, s.echo, echoParams{enabled: true, delay: 250, feedbackGain: 0.5, mix: 1})
}

func TestParamsRejectInvalid(t *testing.T) {
	p := newParams(48000)
	testCases := []struct {
		key   string
		value string
	}{
		{"volume", "-0.1"},
		{"volume", "NaN"},
		{"volume", ""},
		{"sample_rate", "0"},
		{"sample_rate", "1e9"},
		{"wave", "pulse"},
		{"osc2", "maybe"},
		{"detune", "100"},
		{"attack", "-1"},
		{"sustain", "1.1"},
		{"filter.kind", "comb"},
		{"filter.cutoff", "0"},
		{"filter.q", "0"},
		{"filter.gain", "100"},
		{"echo.delay", "5"},
		{"echo.feedback", "1"},
	}
	for _, tc := range testCases {
		err := p.set(tc.key, tc.value)
		expectError(t, err, ErrInvalidParam)
	}
	expectError(t, p.set("glide", "1"), ErrUnknownParam)
	expectEqual(t, p.snapshot().version, uint64(0))
	expectNearlyEqual(t, p.snapshot().volume, defaultVolume)
}

func TestParamsGet(t *testing.T) {
	p := newParams(48000)
	for _, key := range paramKeys {
		if _, err := p.get(key); err != nil {
			t.Errorf("get(%q): %v", key, err)
		}
	}
	_, err := p.get("glide")
	expectError(t, err, ErrUnknownParam)

	expectNoError(t, p.set("filter.kind", "lowshelf"))
	v, err := p.get("filter.kind")
	expectNoError(t, err)
	expectEqual(t, v, "lowshelf")
}

func TestParamsToJSON(t *testing.T) {
	p := newParams(48000)
	expectNoError(t, p.set("echo.enabled", "true"))
	m := make(map[string]interface{})
	expectNoError(t, json.Unmarshal(p.toJSON(), &m))
	expectEqual(t, len(m), len(paramKeys))
	expectEqual(t, m["echo.enabled"], true)
	expectEqual(t, m["wave"], "sine")
	expectEqual(t, m["sample_rate"], 48000.0)
}
