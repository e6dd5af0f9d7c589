package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/url"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/jinjor/polysynth/src/audio"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

var (
	deviceName = flag.String("device", "oto", "output device: oto, portaudio or null")
	sampleRate = flag.Int("sample-rate", 48000, "sample rate in Hz")
	bufferSize = flag.Int("buffer", 512, "buffer size in frames")
	channels   = flag.Int("channels", 2, "output channels")
	sockFile   = flag.String("ipc", "", "unix socket path for the command protocol")
	midiIn     = flag.Bool("midi", false, "listen to MIDI input")
	midiPort   = flag.String("midi-port", "", "MIDI input port name (substring)")
	volume     = flag.Float64("volume", 0.15, "master volume 0-1")
	wave       = flag.String("wave", "sine", "waveform: sine, square, triangle or sawtooth")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Lshortfile)
	log.Printf("NumCPU: %v\n", runtime.NumCPU())

	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg := audio.DefaultConfig()
	cfg.SampleRate = *sampleRate
	cfg.BufferSize = *bufferSize
	cfg.Channels = *channels
	a, err := audio.NewAudio(cfg)
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}
	defer a.Close()
	if err := setup(a); err != nil {
		log.Fatalf("error: %v\n", err)
	}

	device, err := audio.NewDevice(*deviceName, a)
	if err != nil {
		log.Fatalf("error: %v\n", err)
	}
	defer func() {
		if err := device.Close(); err != nil {
			log.Printf("error: %v", err)
		}
	}()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer func() {
		signal.Stop(signalCh)
		cancel()
	}()
	go func() {
		select {
		case sig := <-signalCh:
			log.Printf("Caught signal %s: shutting down...\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return device.Start(ctx)
	})
	if *midiIn {
		ch := audio.ListenToMidiIn(ctx, *midiPort)
		g.Go(func() error {
			return audio.PumpMidi(ctx, ch, a)
		})
	}
	switch {
	case *sockFile != "":
		g.Go(func() error {
			defer cancel()
			return withIPCConnection(ctx, *sockFile, func(conn net.Conn) error {
				g, ctx := errgroup.WithContext(ctx)
				g.Go(func() error {
					return receiveCommands(ctx, conn, a.CommandCh)
				})
				g.Go(func() error {
					return sendReports(ctx, conn, a)
				})
				return g.Wait()
			})
		})
	case term.IsTerminal(int(os.Stdin.Fd())):
		g.Go(func() error {
			defer cancel()
			return repl(ctx, a)
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("error: %v\n", err)
	}
	log.Println("main() ended.")
}

func setup(a *audio.Audio) error {
	if err := a.Set("volume", strconv.FormatFloat(*volume, 'f', -1, 64)); err != nil {
		return err
	}
	return a.Set("wave", *wave)
}

// ----- IPC ----- //

func withIPCConnection(ctx context.Context, sockFileName string, f func(net.Conn) error) error {
	os.Remove(sockFileName)
	listener, err := new(net.ListenConfig).Listen(ctx, "unix", sockFileName)
	if err != nil {
		return err
	}
	defer func() {
		log.Println("Closing IPC...")
		err := listener.Close()
		if err != nil && !errors.Is(err, net.ErrClosed) {
			log.Printf("error while closing listener: %v", err)
		}
		os.Remove(sockFileName)
	}()
	go func() {
		<-ctx.Done()
		listener.Close()
	}()
	log.Printf("start listening %s...\n", sockFileName)
	conn, err := listener.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer func() {
		err := conn.Close()
		if err != nil && !errors.Is(err, net.ErrClosed) {
			log.Printf("error while closing connection: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	return f(conn)
}

func receiveCommands(ctx context.Context, conn net.Conn, commandCh chan<- []string) error {
	reader := bufio.NewReader(conn)
	var line []byte
loop:
	for {
		select {
		case <-ctx.Done():
			log.Println("Connection interrupted")
			break loop
		default:
		}
		next, isPrefix, err := reader.ReadLine()
		if err == io.EOF || errors.Is(err, net.ErrClosed) {
			break loop
		}
		if err != nil {
			return err
		}
		line = append(line, next...)
		if isPrefix {
			continue
		}
		command, err := parseCommand(string(line))
		if err != nil {
			return err
		}
		commandCh <- command
		log.Printf("received: %s\n", string(line))
		line = []byte{}
	}
	log.Println("receiveCommands() ended.")
	return nil
}

func parseCommand(line string) ([]string, error) {
	lineStr := strings.Fields(line)
	for i, item := range lineStr {
		escaped, err := url.QueryUnescape(item)
		if err != nil {
			return nil, err
		}
		lineStr[i] = escaped
	}
	return lineStr, nil
}

func formatFloats(prefix string, values []float64) string {
	var sb strings.Builder
	sb.WriteString(prefix)
	for _, value := range values {
		sb.WriteByte(' ')
		sb.WriteString(strconv.FormatFloat(value, 'f', 6, 64))
	}
	sb.WriteByte('\n')
	return sb.String()
}

func sendReports(ctx context.Context, conn net.Conn, a *audio.Audio) error {
	t := time.NewTicker(time.Second / 60)
	defer t.Stop()
	a.Changes.Add("data")
	a.Changes.Add("filter-shape")
loop:
	for {
		select {
		case <-ctx.Done():
			log.Println("sendReports() interrupted")
			break loop
		case <-t.C:
			var reports []string
			if a.Changes.Has("data") {
				a.Changes.Delete("data")
				reports = append(reports, "data "+url.QueryEscape(string(a.ToJSON()))+"\n")
			}
			if a.Changes.Has("filter-shape") {
				a.Changes.Delete("filter-shape")
				if shape := a.GetFilterShape(); shape != nil {
					reports = append(reports, formatFloats("filter-shape", shape))
				}
			}
			if result := a.GetFFT(); result != nil {
				reports = append(reports, formatFloats("fft", result))
			}
			for _, s := range reports {
				if _, err := conn.Write([]byte(s)); err != nil {
					if ctx.Err() != nil {
						break loop
					}
					return err
				}
			}
		}
	}
	log.Println("sendReports() ended.")
	return nil
}

// ----- REPL ----- //

const replHelp = `commands:
  note_on <note> [velocity]
  note_off <note>
  all_notes_off
  set <key> <value>
  get
  voices
  help`

func repl(ctx context.Context, a *audio.Audio) error {
	rl, err := readline.New("> ")
	if err != nil {
		return err
	}
	defer rl.Close()
	go func() {
		<-ctx.Done()
		rl.Close()
	}()

	for {
		line, err := rl.Readline()
		if err == io.EOF || err == readline.ErrInterrupt {
			return nil
		}
		if err != nil {
			fmt.Println(err)
			continue
		}
		command, err := parseCommand(line)
		if err != nil {
			fmt.Println(err)
			continue
		}
		if len(command) == 0 {
			continue
		}
		switch command[0] {
		case "help":
			fmt.Println(replHelp)
		case "get":
			fmt.Println(string(a.ToJSON()))
		case "voices":
			fmt.Println(a.Voices())
		default:
			e, err := audio.ParseCommand(command)
			if err != nil {
				fmt.Println(err)
				continue
			}
			if err := a.Dispatch(e); err != nil {
				fmt.Println(err)
			}
		}
	}
}
