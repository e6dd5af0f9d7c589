package audio

import (
	"testing"
)

func TestNoteToFreq(t *testing.T) {
	expectNearlyEqual(t, noteToFreq(69), 440)
	expectNearlyEqual(t, noteToFreq(81), 880)
	expectNearlyEqual(t, noteToFreq(57), 220)
	expectNearlyEqual(t, noteToFreq(60), 261.6256)
}

func TestTranslateMIDI(t *testing.T) {
	testCases := []struct {
		data     []byte
		expected Event
		ok       bool
	}{
		{data: []byte{0x90, 60, 127}, expected: NoteOn{Note: 60, Velocity: 1, Frequency: noteToFreq(60)}, ok: true},
		{data: []byte{0x9f, 69, 127}, expected: NoteOn{Note: 69, Velocity: 1, Frequency: 440}, ok: true},
		{data: []byte{0x90, 60, 0}, expected: NoteOff{Note: 60}, ok: true},
		{data: []byte{0x80, 60, 64}, expected: NoteOff{Note: 60}, ok: true},
		{data: []byte{0xb0, 123, 0}, expected: AllNotesOff{}, ok: true},
		{data: []byte{0xb3, 120, 0}, expected: AllNotesOff{}, ok: true},
		{data: []byte{0xb0, 7, 100}, ok: false},
		{data: []byte{0xe0, 0, 64}, ok: false},
		{data: []byte{0x90, 60}, ok: false},
		{data: nil, ok: false},
	}
	for _, tc := range testCases {
		e, ok := TranslateMIDI(tc.data)
		expectEqual(t, ok, tc.ok)
		if !tc.ok {
			continue
		}
		if on, isOn := e.(NoteOn); isOn {
			expected := tc.expected.(NoteOn)
			expectEqual(t, on.Note, expected.Note)
			expectNearlyEqual(t, on.Velocity, expected.Velocity)
			expectNearlyEqual(t, on.Frequency, expected.Frequency)
			continue
		}
		expectEqual(t, e, tc.expected)
	}
}

func TestTranslateMIDIVelocity(t *testing.T) {
	e, ok := TranslateMIDI([]byte{0x90, 60, 64})
	expectEqual(t, ok, true)
	expectNearlyEqual(t, e.(NoteOn).Velocity, 64.0/127)
}

func TestParseCommand(t *testing.T) {
	e, err := ParseCommand([]string{"note_on", "60"})
	expectNoError(t, err)
	expectEqual(t, e.(NoteOn).Note, 60)
	expectNearlyEqual(t, e.(NoteOn).Velocity, 1)

	e, err = ParseCommand([]string{"note_on", "60", "0"})
	expectNoError(t, err)
	expectEqual(t, e, Event(NoteOff{Note: 60}))

	e, err = ParseCommand([]string{"note_off", "127"})
	expectNoError(t, err)
	expectEqual(t, e, Event(NoteOff{Note: 127}))

	e, err = ParseCommand([]string{"all_notes_off"})
	expectNoError(t, err)
	expectEqual(t, e, Event(AllNotesOff{}))

	e, err = ParseCommand([]string{"set", "filter.kind", "notch"})
	expectNoError(t, err)
	expectEqual(t, e, Event(ParamChange{Key: "filter.kind", Value: "notch"}))
}

func TestParseCommandErrors(t *testing.T) {
	_, err := ParseCommand(nil)
	expectError(t, err, ErrUnknownCommand)
	_, err = ParseCommand([]string{"glide", "1"})
	expectError(t, err, ErrUnknownCommand)
	_, err = ParseCommand([]string{"note_on", "128"})
	expectError(t, err, ErrInvalidNote)
	_, err = ParseCommand([]string{"note_on", "C4"})
	expectError(t, err, ErrInvalidNote)
	_, err = ParseCommand([]string{"note_on", "60", "200"})
	expectError(t, err, ErrInvalidParam)
	_, err = ParseCommand([]string{"note_off", "-1"})
	expectError(t, err, ErrInvalidNote)

	for _, command := range [][]string{
		{"note_on"},
		{"note_on", "60", "100", "1"},
		{"note_off"},
		{"set", "volume"},
	} {
		if _, err := ParseCommand(command); err == nil {
			t.Errorf("expected an error for %v", command)
		}
	}
}
