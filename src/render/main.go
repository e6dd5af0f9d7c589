package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/jinjor/polysynth/src/audio"
	"golang.org/x/sync/errgroup"
)

var (
	sampleRate = flag.Int("sample-rate", 48000, "sample rate in Hz")
	note       = flag.Int("note", 57, "MIDI note to render")
	held       = flag.Float64("held", 1.0, "seconds the note is held")
	tail       = flag.Float64("tail", 0.5, "seconds rendered after note-off")
	volume     = flag.String("volume", "0.5", "master volume 0-1")
	table      = flag.Bool("table", false, "also write the sine wavetable")
)

var waves = []string{"sine", "square", "triangle", "sawtooth"}

func main() {
	flag.Parse()
	dir := flag.Arg(0)
	if dir == "" {
		log.Fatalln("usage: render [flags] <dir>")
	}
	log.SetFlags(log.Lshortfile)

	ctx := context.Background()
	g, ctx := errgroup.WithContext(ctx)
	for _, wave := range waves {
		g.Go(func() error {
			path := filepath.Join(dir, wave+".wav")
			if err := renderWave(ctx, wave, path); err != nil {
				return fmt.Errorf("%s: %w", wave, err)
			}
			log.Printf("saved %s\n", path)
			return nil
		})
	}
	if *table {
		g.Go(func() error {
			path := filepath.Join(dir, "sine.wt")
			file, err := os.Create(path)
			if err != nil {
				return err
			}
			defer file.Close()
			if _, err := audio.SineTable().WriteTo(file); err != nil {
				return err
			}
			log.Printf("saved %s\n", path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("error: %v\n", err)
	}
	log.Println("Successfully rendered waves.")
}

func renderWave(ctx context.Context, wave string, path string) error {
	cfg := audio.DefaultConfig()
	cfg.SampleRate = *sampleRate
	a, err := audio.NewAudio(cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.Set("wave", wave); err != nil {
		return err
	}
	if err := a.Set("volume", *volume); err != nil {
		return err
	}
	if err := a.NoteOn(*note, 1); err != nil {
		return err
	}
	heldSamples := int(*held * float64(cfg.SampleRate))
	samples := make([]float64, heldSamples+int(*tail*float64(cfg.SampleRate)))
	a.Render(samples[:heldSamples])
	if err := ctx.Err(); err != nil {
		return err
	}
	a.NoteOff(*note)
	a.Render(samples[heldSamples:])

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := audio.WriteWAV(file, samples, cfg.SampleRate, 2); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
