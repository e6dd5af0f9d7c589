package audio

import (
	"fmt"
	"sync"
)

// NumNotes is the number of note identities a pool can hold.
const NumNotes = 128

// ----- Voice Pool ----- //

// VoicePool holds at most one voice per note. The mixing engine locks it
// once per buffer and event handlers once per event.
type VoicePool struct {
	sync.Mutex
	slots  [NumNotes]*Voice
	active []*Voice // in note-on order, len <= NumNotes
}

// NewVoicePool ...
func NewVoicePool() *VoicePool {
	return &VoicePool{
		active: make([]*Voice, 0, NumNotes),
	}
}

func validNote(note int) bool {
	return note >= 0 && note < NumNotes
}

// NoteOn starts a fresh voice for note. A voice already sounding for the
// same note is replaced.
func (p *VoicePool) NoteOn(note int, freq float64, cfg VoiceConfig) error {
	if !validNote(note) {
		return fmt.Errorf("%w: %d", ErrInvalidNote, note)
	}
	v := NewVoice(note, freq, cfg)
	p.Lock()
	defer p.Unlock()
	p.noteOn(v)
	return nil
}

func (p *VoicePool) noteOn(v *Voice) {
	if old := p.slots[v.note]; old != nil {
		p.remove(old)
	}
	p.slots[v.note] = v
	p.active = append(p.active, v)
}

func (p *VoicePool) remove(v *Voice) {
	for i, o := range p.active {
		if o == v {
			copy(p.active[i:], p.active[i+1:])
			p.active[len(p.active)-1] = nil
			p.active = p.active[:len(p.active)-1]
			return
		}
	}
}

// NoteOff releases the voice for note. Missing notes are ignored.
func (p *VoicePool) NoteOff(note int) {
	if !validNote(note) {
		return
	}
	p.Lock()
	defer p.Unlock()
	if v := p.slots[note]; v != nil {
		v.NoteOff()
	}
}

// AllNotesOff releases every voice.
func (p *VoicePool) AllNotesOff() {
	p.Lock()
	defer p.Unlock()
	for _, v := range p.active {
		v.NoteOff()
	}
}

// RetainActive drops voices whose envelope has finished.
func (p *VoicePool) RetainActive() {
	p.Lock()
	defer p.Unlock()
	p.retainActive()
}

// retainActive requires the lock.
func (p *VoicePool) retainActive() {
	removed := 0
	for i := 0; i < len(p.active); i++ {
		v := p.active[i]
		if v.env.IsFinished() {
			if p.slots[v.note] == v {
				p.slots[v.note] = nil
			}
			removed++
		} else {
			p.active[i-removed] = v
		}
	}
	for i := len(p.active) - removed; i < len(p.active); i++ {
		p.active[i] = nil
	}
	p.active = p.active[:len(p.active)-removed]
}

// Len returns the number of voices currently held.
func (p *VoicePool) Len() int {
	p.Lock()
	defer p.Unlock()
	return len(p.active)
}

// Voice returns the voice for note, or nil.
func (p *VoicePool) Voice(note int) *Voice {
	if !validNote(note) {
		return nil
	}
	p.Lock()
	defer p.Unlock()
	return p.slots[note]
}

// voices requires the lock.
func (p *VoicePool) voices() []*Voice {
	return p.active
}
