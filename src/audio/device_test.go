package audio

import (
	"context"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	expectNoError(t, DefaultConfig().Validate())
	invalid := []func(*Config){
		func(c *Config) { c.SampleRate = 0 },
		func(c *Config) { c.SampleRate = maxSampleRate + 1 },
		func(c *Config) { c.BufferSize = 0 },
		func(c *Config) { c.BufferSize = maxBufferSize + 1 },
		func(c *Config) { c.Channels = 0 },
		func(c *Config) { c.BitDepth = 3 },
	}
	for _, f := range invalid {
		cfg := DefaultConfig()
		f(&cfg)
		expectError(t, cfg.Validate(), ErrInvalidConfig)
		_, err := NewAudio(cfg)
		expectError(t, err, ErrInvalidConfig)
	}
}

func TestNewDevice(t *testing.T) {
	audio := newTestAudio(t)
	_, err := NewDevice("jack", audio)
	expectError(t, err, ErrInvalidConfig)

	device, err := NewDevice("null", audio)
	expectNoError(t, err)
	defer device.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	expectNoError(t, audio.NoteOn(60, 1))
	expectNoError(t, device.Start(ctx))

	// the device context is done, so Read stops the stream
	n, err := audio.Read(make([]byte, 64))
	expectEqual(t, n, 0)
	if err == nil {
		t.Error("expected EOF after the device stopped")
	}
}

func TestOtoBufferSize(t *testing.T) {
	cfg := DefaultConfig()
	expectEqual(t, otoBufferSize(cfg), 4096)
	cfg.Channels = 3
	expectEqual(t, otoBufferSize(cfg), 683*6)
	cfg.BufferSize = 2048
	expectEqual(t, otoBufferSize(cfg), 2048*6)
}

func TestReadRendersDeviceBufferAtOnce(t *testing.T) {
	audio := newTestAudio(t)
	cfg := audio.Config()
	size := otoBufferSize(cfg)
	frames := size / cfg.bytesPerFrame()
	audio.reserveFrames(frames)
	expectEqual(t, len(audio.state.mono), frames)
	audio.reserveFrames(16)
	expectEqual(t, len(audio.state.mono), frames)

	expectNoError(t, audio.NoteOn(69, 1))
	n, err := audio.Read(make([]byte, size))
	expectNoError(t, err)
	expectEqual(t, n, size)
	expectEqual(t, audio.state.pos, int64(frames))
}

func TestPumpMidi(t *testing.T) {
	audio := newTestAudio(t)
	ch := make(chan []byte, 4)
	ch <- []byte{0x90, 60, 100}
	ch <- []byte{0x90, 64, 100}
	ch <- []byte{0x80, 60, 0}
	close(ch)
	expectNoError(t, PumpMidi(context.Background(), ch, audio))
	expectEqual(t, audio.Voices(), 2)
	expectEqual(t, audio.pool.Voice(60).Envelope().State(), StateRelease)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	expectNoError(t, PumpMidi(ctx, make(chan []byte), audio))
}
