package audio

import (
	"math"
	"testing"
)

func TestVoiceApplyKeepsPhase(t *testing.T) {
	cfg := DefaultVoiceConfig()
	cfg.Oscs[0].Kind = WaveSawtooth
	v := NewVoice(69, 440, cfg)
	for i := 0; i < 100; i++ {
		v.Sample()
		v.env.NextSample()
	}
	phase := v.Oscillator(0).Phase()
	level := v.Envelope().Level()

	cfg.Oscs[0].Kind = WaveSquare
	cfg.Oscs[0].Detune = 7
	cfg.ADSR.Release = 2
	cfg.Velocity = 0.1
	v.Apply(cfg)
	expectEqual(t, v.Oscillator(0).Phase(), phase)
	expectEqual(t, v.Oscillator(0).Kind(), WaveSquare)
	expectNearlyEqual(t, v.Oscillator(0).Detune(), 7)
	expectEqual(t, v.Envelope().Level(), level)
	expectEqual(t, v.Envelope().Velocity(), 1.0)
	expectNearlyEqual(t, v.Envelope().Params().Release, 2)
}

func TestVoiceAverage(t *testing.T) {
	cfg := DefaultVoiceConfig()
	cfg.Oscs[0] = OscParams{Enabled: true, Kind: WaveSquare, Volume: 1}
	cfg.Oscs[1] = OscParams{Enabled: true, Kind: WaveSquare, Volume: 1}
	v := NewVoice(60, 100, cfg)
	for i := 0; i < 1000; i++ {
		if s := v.Sample(); math.Abs(s) > 1+1e-9 {
			t.Fatalf("sample %d is %v", i, s)
		}
	}

	cfg.Oscs[0].Enabled = false
	cfg.Oscs[1].Enabled = false
	v.Apply(cfg)
	expectEqual(t, v.Sample(), 0.0)
}

func TestVoiceWavetable(t *testing.T) {
	cfg := DefaultVoiceConfig()
	cfg.Wavetable = true
	v := NewVoice(69, 440, cfg)
	table := NewWavetableOscillator(SineTable(), 440, cfg.SampleRate)
	for i := 0; i < 100; i++ {
		expectNearlyEqual(t, v.Sample(), table.Sample())
	}
}

func TestVoiceFilterKeptOnChange(t *testing.T) {
	cfg := DefaultVoiceConfig()
	cfg.Filter = FilterParams{Kind: FilterLowPass, Cutoff: 2000, Q: 1}
	v := NewVoice(60, 261.63, cfg)
	f, ok := v.filter.(*Biquad)
	if !ok {
		t.Fatal("expected a biquad")
	}
	for i := 0; i < 100; i++ {
		v.Sample()
	}
	y1, y2 := f.y1, f.y2
	if y1 == 0 {
		t.Fatal("expected the filter to hold state")
	}

	cfg.ADSR.Attack = 0.5
	v.Apply(cfg)
	cfg.Filter.Cutoff = 3000
	cfg.Filter.Q = 2
	v.Apply(cfg)
	if v.filter != Filter(f) {
		t.Fatal("expected the filter to be kept")
	}
	expectNearlyEqual(t, f.freq, 3000)
	expectNearlyEqual(t, f.q, 2)
	expectEqual(t, f.y1, y1)
	expectEqual(t, f.y2, y2)

	cfg.Filter.Kind = FilterHighPass
	v.Apply(cfg)
	if v.filter != Filter(f) {
		t.Error("expected the biquad to be reused for another response")
	}
	expectEqual(t, f.Kind(), FilterHighPass)
	expectEqual(t, f.y1, y1)

	cfg.Filter.Kind = FilterOnePole
	v.Apply(cfg)
	if v.filter != Filter(v.onePole) {
		t.Error("expected the one-pole filter")
	}
	cfg.Filter.Kind = FilterNone
	v.Apply(cfg)
	if v.filter != nil {
		t.Error("expected no filter")
	}

	// a filter taking over again starts from silence
	cfg.Filter.Kind = FilterLowPass
	v.Apply(cfg)
	if v.filter != Filter(f) {
		t.Fatal("expected the biquad again")
	}
	expectEqual(t, f.y1, 0.0)
}

func TestVoiceApplyDoesNotAllocate(t *testing.T) {
	cfg := DefaultVoiceConfig()
	cfg.Filter = FilterParams{Kind: FilterLowPass, Cutoff: 2000, Q: 1}
	v := NewVoice(57, 220, cfg)
	kinds := []FilterKind{FilterLowPass, FilterOnePole, FilterPeaking, FilterNone}
	i := 0
	allocs := testing.AllocsPerRun(50, func() {
		i++
		cfg.Filter.Cutoff = 2000 + float64(i)
		cfg.Filter.Kind = kinds[i%len(kinds)]
		cfg.Wavetable = i%2 == 0
		cfg.SampleRate = 44100 + float64(i%2)*3900
		v.Apply(cfg)
		v.Sample()
	})
	expectEqual(t, allocs, 0.0)
}

func TestVoiceCutoffChangeIsContinuous(t *testing.T) {
	cfg := DefaultVoiceConfig()
	cfg.Filter = FilterParams{Kind: FilterLowPass, Cutoff: 2000, Q: 1}
	v := NewVoice(57, 220, cfg)
	prev := 0.0
	maxStep := 0.0
	for i := 0; i < 4800; i++ {
		s := v.Sample()
		if i > 0 {
			maxStep = math.Max(maxStep, math.Abs(s-prev))
		}
		prev = s
	}

	cfg.Filter.Cutoff = 2001
	v.Apply(cfg)
	s := v.Sample()
	// a sine at 220 Hz moves less than 0.03 per sample at 48 kHz
	if step := math.Abs(s - prev); step > 2*maxStep {
		t.Errorf("expected a continuous output across a cutoff change, but stepped %v (max %v)", step, maxStep)
	}
}

func TestVoiceWavetableFollowsFirstOscillator(t *testing.T) {
	cfg := DefaultVoiceConfig()
	cfg.Oscs[0].Detune = 12
	v := NewVoice(69, 440, cfg)
	for i := 0; i < 37; i++ {
		v.Sample()
	}
	phase := v.Oscillator(0).Phase()
	before := v.Sample()
	phase += 880 / cfg.SampleRate

	cfg.Wavetable = true
	v.Apply(cfg)
	expectNearlyEqual(t, v.wavetable.Phase(), phase*WavetableSize)
	expectNearlyEqual(t, v.wavetable.Increment(), 880*WavetableSize/cfg.SampleRate)
	after := v.Sample()
	if step := math.Abs(after - before); step > 2*math.Pi*880/cfg.SampleRate+1e-3 {
		t.Errorf("expected the sine to continue, but stepped from %v to %v", before, after)
	}

	for i := 0; i < 50; i++ {
		v.Sample()
	}
	cfg.Wavetable = false
	v.Apply(cfg)
	expectNearlyEqual(t, v.Oscillator(0).Phase(), v.wavetable.Phase()/WavetableSize)

	v.UpdateFrequency(220)
	expectNearlyEqual(t, v.wavetable.Increment(), 440*WavetableSize/cfg.SampleRate)
}

func TestVoiceUpdateFrequency(t *testing.T) {
	cfg := DefaultVoiceConfig()
	cfg.Filter = FilterParams{Kind: FilterHighPass, KeyTrack: 2, Q: 1}
	v := NewVoice(60, 200, cfg)
	v.UpdateFrequency(300)
	expectNearlyEqual(t, v.Frequency(), 300)
	expectNearlyEqual(t, v.wavetable.Increment(), 300*WavetableSize/cfg.SampleRate)
	expectNearlyEqual(t, v.filter.(*Biquad).freq, 600)

	v.UpdateFrequency(0)
	v.UpdateFrequency(math.Inf(1))
	expectNearlyEqual(t, v.Frequency(), 300)
}

func TestVoiceSampleRate(t *testing.T) {
	cfg := DefaultVoiceConfig()
	v := NewVoice(69, 440, cfg)
	cfg.SampleRate = 96000
	v.Apply(cfg)
	expectNearlyEqual(t, v.SampleRate(), 96000)
	expectNearlyEqual(t, v.wavetable.Increment(), 440*WavetableSize/96000.0)
	v.SetSampleRate(-1)
	expectNearlyEqual(t, v.SampleRate(), 96000)

	cfg.SampleRate = 0
	v2 := NewVoice(69, 440, cfg)
	expectNearlyEqual(t, v2.SampleRate(), defaultSampleRate)
}
