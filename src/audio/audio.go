package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"strconv"
	"strings"
	"sync"
)

const (
	fftSize        = 2048
	gainRampMillis = 20.0
	clipKnee       = 0.95
	clipCeiling    = 1 - 1e-6
	shapeSize      = 1024
	shapeRefFreq   = baseFreq
)

// ----- Utility ----- //

func toRawMessage(v interface{}) json.RawMessage {
	bytes, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return json.RawMessage(bytes)
}

/*
  identity up to the knee, then an exponential approach to 1

  1 +          ..----
    |       .-'
 .95+      /
    |     /
  0 +----+-----------
*/

// softClip maps any input into (-1, 1).
func softClip(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	a := math.Abs(x)
	if a > clipKnee {
		a = clipKnee + (1-clipKnee)*(1-math.Exp(-(a-clipKnee)/(1-clipKnee)))
	}
	if a > clipCeiling {
		a = clipCeiling
	}
	return math.Copysign(a, x)
}

// ----- Changes ----- //

// Changes ...
type Changes struct {
	sync.Mutex
	dict map[string]struct{}
}

func newChanges() *Changes {
	return &Changes{dict: make(map[string]struct{})}
}

// Add ...
func (c *Changes) Add(key string) {
	c.Lock()
	c.dict[key] = struct{}{}
	c.Unlock()
}

// Has ...
func (c *Changes) Has(key string) bool {
	c.Lock()
	_, ok := c.dict[key]
	c.Unlock()
	return ok
}

// Delete ...
func (c *Changes) Delete(key string) {
	c.Lock()
	delete(c.dict, key)
	c.Unlock()
}

// ----- State ----- //

// state belongs to the rendering side.
type state struct {
	sync.Mutex
	ctx        context.Context
	version    uint64
	sampleRate float64
	gain       *transitiveValue
	echo       *echo
	mono       []float64 // length: frames per device buffer
	out        []float64 // length: fftSize
	pos        int64
}

func newState(cfg Config, p paramsSnapshot) *state {
	s := &state{
		ctx:        context.Background(),
		version:    p.version,
		sampleRate: p.sampleRate,
		gain:       newTransitiveValue(p.volume),
		echo:       newEcho(p.sampleRate),
		mono:       make([]float64, cfg.BufferSize),
		out:        make([]float64, fftSize),
	}
	s.echo.applyParams(p.echo, p.sampleRate)
	return s
}

// ----- Audio ----- //

// Audio is the mixing engine. It renders the voice pool through Process
// (float32 callbacks), Read (interleaved integer PCM) or Render (mono).
type Audio struct {
	config    Config
	CommandCh chan []string
	Changes   *Changes
	params    *params
	pool      *VoicePool
	state     *state
	closeOnce sync.Once

	fftMu     sync.Mutex
	analyzer  *Analyzer
	fftFrame  []float64 // length: fftSize
	fftResult []float64 // length: fftSize/2
}

var _ io.Reader = (*Audio)(nil)

// NewAudio ...
func NewAudio(cfg Config) (*Audio, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	analyzer, err := NewAnalyzer(fftSize)
	if err != nil {
		return nil, err
	}
	p := newParams(float64(cfg.SampleRate))
	commandCh := make(chan []string, 256)
	audio := &Audio{
		config:    cfg,
		CommandCh: commandCh,
		Changes:   newChanges(),
		params:    p,
		pool:      NewVoicePool(),
		state:     newState(cfg, p.snapshot()),
		analyzer:  analyzer,
		fftFrame:  make([]float64, fftSize),
		fftResult: make([]float64, fftSize/2),
	}
	go processCommands(audio, commandCh)
	return audio, nil
}

func (a *Audio) Config() Config { return a.config }

func processCommands(audio *Audio, commandCh <-chan []string) {
	for command := range commandCh {
		if err := audio.update(command); err != nil {
			log.Printf("error: %v", err)
		}
	}
	log.Println("processCommands() ended.")
}

func (a *Audio) update(command []string) error {
	e, err := ParseCommand(command)
	if err != nil {
		return err
	}
	return a.Dispatch(e)
}

// Dispatch applies one event. Pool changes take the pool lock once;
// parameter changes go through the live parameters.
func (a *Audio) Dispatch(e Event) error {
	switch e := e.(type) {
	case NoteOn:
		cfg := a.params.snapshot().voice
		cfg.Velocity = clamp01(e.Velocity)
		freq := e.Frequency
		if freq <= 0 || math.IsNaN(freq) || math.IsInf(freq, 0) {
			freq = noteToFreq(e.Note)
		}
		return a.pool.NoteOn(e.Note, freq, cfg)
	case NoteOff:
		a.pool.NoteOff(e.Note)
	case AllNotesOff:
		a.pool.AllNotesOff()
	case ParamChange:
		if err := a.params.set(e.Key, e.Value); err != nil {
			return err
		}
		if strings.HasPrefix(e.Key, "filter.") {
			a.Changes.Add("filter-shape")
		}
		a.Changes.Add("data")
	default:
		return fmt.Errorf("unsupported event %T", e)
	}
	return nil
}

// NoteOn starts note with an equal-tempered frequency.
func (a *Audio) NoteOn(note int, velocity float64) error {
	return a.Dispatch(NewNoteOn(note, velocity))
}

func (a *Audio) NoteOff(note int) {
	a.pool.NoteOff(note)
}

// Set changes one live parameter.
func (a *Audio) Set(key, value string) error {
	return a.Dispatch(ParamChange{Key: key, Value: value})
}

// SetSampleRate retunes the engine and every sounding voice from the next
// buffer on.
func (a *Audio) SetSampleRate(sampleRate int) error {
	return a.Set("sample_rate", strconv.Itoa(sampleRate))
}

// AddMidiEvent translates and applies a raw MIDI message.
func (a *Audio) AddMidiEvent(data []byte) {
	e, ok := TranslateMIDI(data)
	if !ok {
		return
	}
	switch e.(type) {
	case NoteOn:
		log.Printf("got note-on: %v\n", data)
	case NoteOff:
		log.Printf("got note-off: %v\n", data)
	}
	if err := a.Dispatch(e); err != nil {
		log.Printf("error: %v", err)
	}
}

// Voices returns the number of voices in the pool.
func (a *Audio) Voices() int {
	return a.pool.Len()
}

// ----- Rendering ----- //

// render fills out with mono samples. Requires the state lock.
func (a *Audio) render(out []float64) {
	s := a.state
	snap := a.params.snapshot()

	a.pool.Lock()
	defer a.pool.Unlock()
	if snap.version != s.version {
		s.version = snap.version
		s.sampleRate = snap.sampleRate
		s.echo.applyParams(snap.echo, s.sampleRate)
		if snap.volume != s.gain.target() {
			s.gain.linear(gainRampMillis, s.sampleRate, snap.volume)
		}
		for _, v := range a.pool.voices() {
			v.Apply(snap.voice)
		}
	}
	voices := a.pool.voices()
	for i := range out {
		sum := 0.0
		for _, v := range voices {
			sum += v.Sample() * v.env.NextSample()
		}
		s.gain.step()
		out[i] = softClip(s.echo.step(sum * s.gain.value))
	}
	a.pool.retainActive()

	for _, v := range out {
		s.out[s.pos%fftSize] = v
		s.pos++
	}
}

// Process renders into non-interleaved float32 channels.
func (a *Audio) Process(out [][]float32) {
	if len(out) == 0 {
		return
	}
	a.state.Lock()
	defer a.state.Unlock()
	frames := len(out[0])
	for start := 0; start < frames; start += len(a.state.mono) {
		n := min(frames-start, len(a.state.mono))
		mono := a.state.mono[:n]
		a.render(mono)
		for _, ch := range out {
			for i, v := range mono {
				ch[start+i] = float32(v)
			}
		}
	}
}

// Render renders mono float64 samples.
func (a *Audio) Render(out []float64) {
	a.state.Lock()
	defer a.state.Unlock()
	for start := 0; start < len(out); start += len(a.state.mono) {
		end := min(start+len(a.state.mono), len(out))
		a.render(out[start:end])
	}
}

// reserveFrames grows the render buffer so a device buffer of frames is
// rendered under one pool lock. Call it before the stream starts.
func (a *Audio) reserveFrames(frames int) {
	a.state.Lock()
	defer a.state.Unlock()
	if frames > len(a.state.mono) {
		a.state.mono = make([]float64, frames)
	}
}

func (a *Audio) setContext(ctx context.Context) {
	a.state.Lock()
	a.state.ctx = ctx
	a.state.Unlock()
}

// Read renders interleaved little-endian PCM. It returns io.EOF once the
// context given to the output device is done.
func (a *Audio) Read(buf []byte) (int, error) {
	a.state.Lock()
	defer a.state.Unlock()
	select {
	case <-a.state.ctx.Done():
		log.Println("Read() interrupted.")
		return 0, io.EOF
	default:
	}
	bytesPerFrame := a.config.bytesPerFrame()
	frames := len(buf) / bytesPerFrame
	for start := 0; start < frames; start += len(a.state.mono) {
		n := min(frames-start, len(a.state.mono))
		mono := a.state.mono[:n]
		a.render(mono)
		writeBuffer(mono, buf[start*bytesPerFrame:], a.config.Channels, a.config.BitDepth)
	}
	return frames * bytesPerFrame, nil
}

func writeBuffer(mono []float64, buf []byte, channels int, bitDepth int) {
	bytesPerFrame := channels * bitDepth
	for i, value := range mono {
		frame := buf[bytesPerFrame*i:]
		switch bitDepth {
		case 1:
			const max = 127
			b := byte(int(math.Round(value*max)) + 128)
			for ch := 0; ch < channels; ch++ {
				frame[ch] = b
			}
		case 2:
			const max = 32767
			b := int16(math.Round(value * max))
			for ch := 0; ch < channels; ch++ {
				frame[2*ch] = byte(b)
				frame[2*ch+1] = byte(b >> 8)
			}
		}
	}
}

// Close ...
func (a *Audio) Close() error {
	a.closeOnce.Do(func() {
		log.Println("Closing Audio...")
		close(a.CommandCh)
	})
	return nil
}

// ----- Reports ----- //

// GetFFT returns the spectrum of the most recent output. The slice is
// reused by the next call.
func (a *Audio) GetFFT() []float64 {
	a.fftMu.Lock()
	defer a.fftMu.Unlock()
	a.state.Lock()
	// out:      | 4 | 1 | 2 | 3 |
	// offset:       ^
	// fftFrame: | 1 | 2 | 3 | 4 |
	offset := int(a.state.pos % fftSize)
	copy(a.fftFrame, a.state.out[offset:])
	copy(a.fftFrame[fftSize-offset:], a.state.out[:offset])
	a.state.Unlock()
	result, err := a.analyzer.Spectrum(a.fftFrame)
	if err != nil {
		log.Printf("error: %v", err)
		return nil
	}
	copy(a.fftResult, result)
	return a.fftResult
}

// GetFilterShape returns the magnitude response of the current filter
// settings, key-tracked at A4.
func (a *Audio) GetFilterShape() []float64 {
	snap := a.params.snapshot()
	shape, err := FrequencyResponse(snap.voice.Filter, shapeRefFreq, snap.sampleRate, shapeSize)
	if err != nil {
		log.Printf("error: %v", err)
		return nil
	}
	return shape
}

// ----- JSON ----- //

type audioJSON struct {
	Params json.RawMessage `json:"params"`
	Voices int             `json:"voices"`
}

// ToJSON ...
func (a *Audio) ToJSON() []byte {
	bytes, err := json.Marshal(&audioJSON{
		Params: a.params.toJSON(),
		Voices: a.pool.Len(),
	})
	if err != nil {
		panic(err)
	}
	return bytes
}
