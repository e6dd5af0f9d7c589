package audio

import "math"

// ----- Envelope State ----- //

// EnvelopeState is the phase of an ADSR envelope.
type EnvelopeState int

const (
	StateIdle EnvelopeState = iota
	StateAttack
	StateDecay
	StateSustain
	StateRelease
)

func (s EnvelopeState) String() string {
	switch s {
	case StateAttack:
		return "attack"
	case StateDecay:
		return "decay"
	case StateSustain:
		return "sustain"
	case StateRelease:
		return "release"
	default:
		return "idle"
	}
}

// ----- ADSR Params ----- //

const minEnvelopeTime = 0.0001 // sec

// ADSR holds envelope times in seconds and the sustain level.
type ADSR struct {
	Attack  float64 // sec
	Decay   float64 // sec
	Sustain float64 // 0-1
	Release float64 // sec
}

// DefaultADSR ...
func DefaultADSR() ADSR {
	return ADSR{Attack: 0.01, Decay: 0.1, Sustain: 0.7, Release: 0.3}
}

func (p ADSR) clamped() ADSR {
	p.Attack = clampTime(p.Attack)
	p.Decay = clampTime(p.Decay)
	p.Sustain = clamp01(p.Sustain)
	p.Release = clampTime(p.Release)
	return p
}

func clampTime(t float64) float64 {
	if math.IsNaN(t) || t < minEnvelopeTime {
		return minEnvelopeTime
	}
	return t
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ----- Envelope ----- //

/*
  1 +    x
    |   / \
    |  /   \
  s + /     x------x
    |/              \
  0 +----+--+------+--x
    |a   |d |      |r |
*/

// Envelope is a linear ADSR generator advanced once per sample.
// The level stays in [0,1]; NextSample scales it by velocity.
type Envelope struct {
	state      EnvelopeState
	level      float64
	params     ADSR
	velocity   float64
	sampleRate float64

	attackIncrement  float64
	decayDecrement   float64
	releaseDecrement float64
}

// NewEnvelope returns an idle envelope with the default ADSR.
func NewEnvelope(sampleRate float64) *Envelope {
	if sampleRate <= 0 || math.IsNaN(sampleRate) {
		sampleRate = defaultSampleRate
	}
	e := &Envelope{
		state:      StateIdle,
		params:     DefaultADSR(),
		velocity:   1,
		sampleRate: sampleRate,
	}
	e.recalculate()
	return e
}

// SetADSR ...
func (e *Envelope) SetADSR(p ADSR) {
	e.params = p.clamped()
	e.recalculate()
}

// SetVelocity ...
func (e *Envelope) SetVelocity(v float64) {
	e.velocity = clamp01(v)
	e.recalculate()
}

// SetSampleRate ignores non-positive rates.
func (e *Envelope) SetSampleRate(sampleRate float64) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) {
		return
	}
	e.sampleRate = sampleRate
	e.recalculate()
}

func (e *Envelope) recalculate() {
	p := e.params
	e.attackIncrement = 1 / (p.Attack * e.sampleRate)
	e.decayDecrement = (1 - p.Sustain) / (p.Decay * e.sampleRate)
	if p.Sustain > 0 {
		e.releaseDecrement = p.Sustain / (p.Release * e.sampleRate)
	} else {
		// without a sustain level the release slope would be flat
		e.releaseDecrement = 1 / (p.Release * e.sampleRate)
	}
}

// NoteOn restarts the attack from the current level.
func (e *Envelope) NoteOn() {
	e.state = StateAttack
	e.recalculate()
}

// NoteOff moves any active state to release.
func (e *Envelope) NoteOff() {
	if e.state != StateIdle {
		e.state = StateRelease
	}
}

// NextSample advances one sample period and returns level*velocity.
func (e *Envelope) NextSample() float64 {
	switch e.state {
	case StateIdle:
		return 0
	case StateAttack:
		e.level += e.attackIncrement
		if e.level >= 1 {
			e.level = 1
			e.state = StateDecay
		}
	case StateDecay:
		if s := e.params.Sustain; e.level < s {
			// sustain raised above the decaying level, glide up to it
			e.state = StateSustain
			e.level = math.Min(e.level+e.attackIncrement, s)
			break
		}
		e.level -= e.decayDecrement
		if e.level <= e.params.Sustain {
			e.level = e.params.Sustain
			e.state = StateSustain
		}
	case StateSustain:
		// glide to a sustain level changed while holding
		if s := e.params.Sustain; e.level > s {
			e.level = math.Max(e.level-e.decayDecrement, s)
		} else if e.level < s {
			e.level = math.Min(e.level+e.attackIncrement, s)
		}
	case StateRelease:
		e.level -= e.releaseDecrement
		if e.level <= 0 {
			e.level = 0
			e.state = StateIdle
		}
	}
	return e.level * e.velocity
}

// IsFinished reports whether the envelope is back to idle.
func (e *Envelope) IsFinished() bool {
	return e.state == StateIdle
}

func (e *Envelope) State() EnvelopeState { return e.state }
func (e *Envelope) Level() float64       { return e.level }
func (e *Envelope) Params() ADSR         { return e.params }
func (e *Envelope) Velocity() float64    { return e.velocity }
