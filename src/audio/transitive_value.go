package audio

// ----- Transition Kind ----- //

const (
	transitionNone = iota
	transitionLinear
)

// ----- Transitive Value ----- //

// transitiveValue moves toward a target one sample at a time. The engine
// uses it for master gain so volume changes do not click.
type transitiveValue struct {
	kind         int
	samples      int // length of a linear transition
	initialValue float64
	targetValue  float64
	value        float64
	pos          int
}

func newTransitiveValue(value float64) *transitiveValue {
	return &transitiveValue{value: value, targetValue: value}
}

func (tv *transitiveValue) init(value float64) {
	tv.kind = transitionNone
	tv.samples = 0
	tv.initialValue = value
	tv.targetValue = value
	tv.value = value
	tv.pos = 0
}

// linear ramps to targetValue over duration milliseconds.
func (tv *transitiveValue) linear(duration float64, sampleRate float64, targetValue float64) {
	samples := int(duration * sampleRate / 1000)
	if samples <= 0 {
		tv.init(targetValue)
		return
	}
	tv.kind = transitionLinear
	tv.samples = samples
	tv.pos = 0
	tv.initialValue = tv.value
	tv.targetValue = targetValue
}

// step advances one sample and reports whether the transition ended.
func (tv *transitiveValue) step() bool {
	ended := false
	switch tv.kind {
	case transitionLinear:
		if tv.pos >= tv.samples {
			tv.end()
			ended = true
		} else {
			t := float64(tv.pos) / float64(tv.samples)
			tv.value = t*tv.targetValue + (1-t)*tv.initialValue
			tv.pos++
		}
	case transitionNone:

	}
	return ended
}

func (tv *transitiveValue) end() {
	tv.kind = transitionNone
	tv.value = tv.targetValue
	tv.pos = 0
}

func (tv *transitiveValue) target() float64 { return tv.targetValue }
