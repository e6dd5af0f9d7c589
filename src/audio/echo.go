package audio

// ----- Delay ----- //

type delay struct {
	cursor int
	past   []float64
}

// resize keeps the backing array when it is large enough. Samples exposed
// by growing are zeroed.
func (d *delay) resize(millis float64, sampleRate float64) {
	if millis < minEchoDelay {
		millis = minEchoDelay
	}
	length := int(sampleRate * millis / 1000)
	if length < 1 {
		length = 1
	}
	if cap(d.past) >= length {
		prev := len(d.past)
		d.past = d.past[0:length]
		if length > prev {
			clear(d.past[prev:])
		}
	} else {
		d.past = make([]float64, length)
	}
	if d.cursor >= len(d.past) {
		d.cursor = 0
	}
}

func (d *delay) step(in float64) {
	d.past[d.cursor] = in
	d.cursor++
	if d.cursor >= len(d.past) {
		d.cursor = 0
	}
}

func (d *delay) getDelayed() float64 {
	return d.past[d.cursor]
}

// clear zeroes the whole backing array, not only the current length.
func (d *delay) clear() {
	clear(d.past[:cap(d.past)])
	d.cursor = 0
}

// ----- Echo ----- //

type echoParams struct {
	enabled      bool
	delay        float64 // ms
	feedbackGain float64 // [0,1)
	mix          float64 // [0,1]
}

// echo is a feedback delay on the master bus. Disabled by default.
type echo struct {
	enabled      bool
	delay        *delay
	feedbackGain float64
	mix          float64
}

// newEcho preallocates for the longest delay at sampleRate.
func newEcho(sampleRate float64) *echo {
	d := &delay{}
	d.resize(maxEchoDelay, sampleRate)
	return &echo{delay: d}
}

func (e *echo) applyParams(p echoParams, sampleRate float64) {
	if e.enabled && !p.enabled {
		e.delay.clear()
	}
	e.enabled = p.enabled
	e.delay.resize(p.delay, sampleRate)
	e.feedbackGain = p.feedbackGain
	e.mix = p.mix
}

func (e *echo) step(in float64) float64 {
	if !e.enabled {
		return in
	}
	delayed := e.delay.getDelayed()
	e.delay.step(in + delayed*e.feedbackGain)
	return in + delayed*e.mix
}
