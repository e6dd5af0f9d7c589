package audio

import (
	"fmt"
	"math"
	"strconv"
)

const baseFreq = 440.0 // A4

func noteToFreq(note int) float64 {
	return baseFreq * math.Pow(2, float64(note-69)/12)
}

// ----- Events ----- //

// Event is one of NoteOn, NoteOff, AllNotesOff or ParamChange.
type Event interface {
	isEvent()
}

type NoteOn struct {
	Note      int
	Velocity  float64 // 0-1
	Frequency float64 // Hz
}

type NoteOff struct {
	Note int
}

type AllNotesOff struct{}

type ParamChange struct {
	Key   string
	Value string
}

func (NoteOn) isEvent()      {}
func (NoteOff) isEvent()     {}
func (AllNotesOff) isEvent() {}
func (ParamChange) isEvent() {}

// NewNoteOn builds a NoteOn with an equal-tempered frequency.
func NewNoteOn(note int, velocity float64) NoteOn {
	return NoteOn{Note: note, Velocity: clamp01(velocity), Frequency: noteToFreq(note)}
}

// ----- MIDI ----- //

const (
	ccAllSoundOff = 120
	ccAllNotesOff = 123
)

// TranslateMIDI converts a raw channel message. ok is false for messages
// that carry no event.
func TranslateMIDI(data []byte) (e Event, ok bool) {
	if len(data) < 3 {
		return nil, false
	}
	note := int(data[1] & 0x7f)
	value := int(data[2] & 0x7f)
	switch data[0] >> 4 {
	case 0x8:
		return NoteOff{Note: note}, true
	case 0x9:
		if value == 0 {
			return NoteOff{Note: note}, true
		}
		return NewNoteOn(note, float64(value)/127), true
	case 0xb:
		if note == ccAllSoundOff || note == ccAllNotesOff {
			return AllNotesOff{}, true
		}
	}
	return nil, false
}

// ----- Commands ----- //

// ParseCommand converts a text command:
//
//	note_on <note> [velocity 0-127]
//	note_off <note>
//	all_notes_off
//	set <key> <value>
func ParseCommand(command []string) (Event, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrUnknownCommand)
	}
	switch command[0] {
	case "note_on":
		if len(command) != 2 && len(command) != 3 {
			return nil, fmt.Errorf("invalid arguments %v", command)
		}
		note, err := parseNote(command[1])
		if err != nil {
			return nil, err
		}
		velocity := 127
		if len(command) == 3 {
			v, err := strconv.Atoi(command[2])
			if err != nil || v < 0 || v > 127 {
				return nil, fmt.Errorf("invalid velocity %q: %w", command[2], ErrInvalidParam)
			}
			velocity = v
		}
		if velocity == 0 {
			return NoteOff{Note: note}, nil
		}
		return NewNoteOn(note, float64(velocity)/127), nil
	case "note_off":
		if len(command) != 2 {
			return nil, fmt.Errorf("invalid arguments %v", command)
		}
		note, err := parseNote(command[1])
		if err != nil {
			return nil, err
		}
		return NoteOff{Note: note}, nil
	case "all_notes_off":
		return AllNotesOff{}, nil
	case "set":
		if len(command) != 3 {
			return nil, fmt.Errorf("invalid key-value pair %v", command[1:])
		}
		return ParamChange{Key: command[1], Value: command[2]}, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownCommand, command[0])
}

func parseNote(s string) (int, error) {
	note, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid note %q: %w", s, ErrInvalidNote)
	}
	if !validNote(note) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidNote, note)
	}
	return note, nil
}
