package audio

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/hajimehoshi/oto"
)

// Device streams an Audio to an output until ctx is done.
type Device interface {
	Start(ctx context.Context) error
	Close() error
}

// NewDevice opens the named output: "oto", "portaudio" or "null".
func NewDevice(name string, audio *Audio) (Device, error) {
	switch name {
	case "oto":
		return NewOtoDevice(audio)
	case "portaudio":
		return NewPortAudioDevice(audio)
	case "null":
		return &NullDevice{audio: audio}, nil
	}
	return nil, fmt.Errorf("%w: unknown device %q", ErrInvalidConfig, name)
}

// ----- oto ----- //

// OtoDevice pulls interleaved integer PCM through Audio.Read.
type OtoDevice struct {
	audio      *Audio
	otoContext *oto.Context
	bufferSize int // bytes
}

const minOtoBufferSize = 4096 // bytes

// otoBufferSize is the player buffer in bytes, a whole number of frames
// and at least minOtoBufferSize.
func otoBufferSize(cfg Config) int {
	bytesPerFrame := cfg.bytesPerFrame()
	frames := max(cfg.BufferSize, (minOtoBufferSize+bytesPerFrame-1)/bytesPerFrame)
	return frames * bytesPerFrame
}

// NewOtoDevice sizes the engine so that one player buffer is rendered in
// a single pass.
func NewOtoDevice(audio *Audio) (*OtoDevice, error) {
	cfg := audio.Config()
	bufferSize := otoBufferSize(cfg)
	audio.reserveFrames(bufferSize / cfg.bytesPerFrame())
	otoContext, err := oto.NewContext(cfg.SampleRate, cfg.Channels, cfg.BitDepth, bufferSize)
	if err != nil {
		return nil, err
	}
	return &OtoDevice{audio: audio, otoContext: otoContext, bufferSize: bufferSize}, nil
}

// Start blocks until ctx is done.
func (d *OtoDevice) Start(ctx context.Context) error {
	p := d.otoContext.NewPlayer()
	defer func() {
		if err := p.Close(); err != nil {
			log.Printf("error: %v", err)
		}
	}()
	d.audio.setContext(ctx)

	// Read returns io.EOF once ctx is done
	if _, err := io.CopyBuffer(p, d.audio, make([]byte, d.bufferSize)); err != nil {
		return err
	}
	log.Println("Start() ended.")
	return nil
}

func (d *OtoDevice) Close() error {
	log.Println("Closing oto...")
	return d.otoContext.Close()
}

// ----- PortAudio ----- //

// PortAudioDevice calls Audio.Process from the PortAudio callback.
type PortAudioDevice struct {
	stream *portaudio.Stream
}

// NewPortAudioDevice ...
func NewPortAudioDevice(audio *Audio) (*PortAudioDevice, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	cfg := audio.Config()
	stream, err := portaudio.OpenDefaultStream(0, cfg.Channels, float64(cfg.SampleRate), cfg.BufferSize, audio.Process)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	return &PortAudioDevice{stream: stream}, nil
}

// Start blocks until ctx is done.
func (d *PortAudioDevice) Start(ctx context.Context) error {
	if err := d.stream.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	if err := d.stream.Stop(); err != nil {
		return err
	}
	log.Println("Start() ended.")
	return nil
}

func (d *PortAudioDevice) Close() error {
	log.Println("Closing PortAudio...")
	err := d.stream.Close()
	if terr := portaudio.Terminate(); err == nil {
		err = terr
	}
	return err
}

// ----- Null ----- //

// NullDevice renders in real time and discards the result.
type NullDevice struct {
	audio *Audio
}

// Start blocks until ctx is done.
func (d *NullDevice) Start(ctx context.Context) error {
	cfg := d.audio.Config()
	buf := make([]byte, cfg.BufferSize*cfg.bytesPerFrame())
	period := time.Duration(float64(time.Second) * float64(cfg.BufferSize) / float64(cfg.SampleRate))
	t := time.NewTicker(period)
	defer t.Stop()
	d.audio.setContext(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Println("Start() ended.")
			return nil
		case <-t.C:
			if _, err := d.audio.Read(buf); err != nil {
				if err == io.EOF {
					return nil
				}
				return err
			}
		}
	}
}

func (d *NullDevice) Close() error { return nil }
