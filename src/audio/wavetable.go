package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
)

// WavetableSize is the number of entries in one cycle. It must stay a power
// of two so indices can wrap with a mask.
const (
	WavetableSize = 4096
	wavetableMask = WavetableSize - 1
)

// ----- Wavetable ----- //

// Wavetable is one cycle of a waveform. It is never mutated after it has
// been generated, so any number of oscillators may share it.
type Wavetable struct {
	values [WavetableSize]float64
}

// NewWavetable fills a table from a function of the phase in radians.
func NewWavetable(phaseToValue func(phase float64) float64) *Wavetable {
	wt := &Wavetable{}
	for i := range wt.values {
		phase := 2.0 * math.Pi / WavetableSize * float64(i)
		wt.values[i] = phaseToValue(phase)
	}
	return wt
}

// SineTable returns the process-wide sine table, built on first use.
var SineTable = sync.OnceValue(func() *Wavetable {
	return NewWavetable(math.Sin)
})

// At returns the linearly interpolated value at a table position in
// [0, WavetableSize).
func (wt *Wavetable) At(pos float64) float64 {
	index := int(pos)
	frac := pos - float64(index)
	a := wt.values[index&wavetableMask]
	b := wt.values[(index+1)&wavetableMask]
	return a + (b-a)*frac
}

// IO
//   table = { number_of_samples int32, samples []float64 }

// WriteTo writes the table in big endian.
func (wt *Wavetable) WriteTo(w io.Writer) (int64, error) {
	if err := binary.Write(w, binary.BigEndian, int32(WavetableSize)); err != nil {
		return 0, err
	}
	if err := binary.Write(w, binary.BigEndian, wt.values[:]); err != nil {
		return 4, err
	}
	return 4 + 8*WavetableSize, nil
}

// ReadWavetable reads a table written by WriteTo.
func ReadWavetable(r io.Reader) (*Wavetable, error) {
	var numSamples int32
	if err := binary.Read(r, binary.BigEndian, &numSamples); err != nil {
		return nil, err
	}
	if numSamples != WavetableSize {
		return nil, fmt.Errorf("wavetable has %d samples, want %d", numSamples, WavetableSize)
	}
	wt := &Wavetable{}
	if err := binary.Read(r, binary.BigEndian, wt.values[:]); err != nil {
		return nil, err
	}
	return wt, nil
}

// ----- Wavetable Oscillator ----- //

// WavetableOscillator reads a shared table. Its position is kept in table
// units so the per-sample work is one add and one interpolation.
type WavetableOscillator struct {
	table          *Wavetable
	phase          float64 // [0, WavetableSize)
	phaseIncrement float64
}

// NewWavetableOscillator ...
func NewWavetableOscillator(table *Wavetable, freq, sampleRate float64) *WavetableOscillator {
	o := &WavetableOscillator{table: table}
	o.SetFrequency(freq, sampleRate)
	return o
}

// SetFrequency changes the increment only; the position is left alone.
func (o *WavetableOscillator) SetFrequency(freq, sampleRate float64) {
	if sampleRate <= 0 || freq < 0 || math.IsNaN(freq) || math.IsInf(freq, 0) || math.IsNaN(sampleRate) {
		o.phaseIncrement = 0
		return
	}
	inc := freq * WavetableSize / sampleRate
	if inc >= WavetableSize {
		inc = math.Mod(inc, WavetableSize)
	}
	o.phaseIncrement = inc
}

func (o *WavetableOscillator) Sample() float64 {
	value := o.table.At(o.phase)
	o.phase += o.phaseIncrement
	if o.phase >= WavetableSize {
		o.phase -= WavetableSize
	}
	return value
}

func (o *WavetableOscillator) Phase() float64     { return o.phase }
func (o *WavetableOscillator) Increment() float64 { return o.phaseIncrement }
