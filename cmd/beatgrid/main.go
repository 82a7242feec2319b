package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/cbegin/beatgrid-go"
)

const defaultPattern = "kick.wav:x...x...x...x...;snare.wav:....x.......x...;hat.wav:x.x.x.x.x.x.x.x."

var logger *slog.Logger

func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	logger = slog.New(h)
	slog.SetDefault(logger)
}

func main() {
	var (
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		samplesDir = flag.String("samples", ".", "directory the pattern's sample paths are relative to")
		patternArg = flag.String("pattern", defaultPattern, "channels as sample:cells separated by ';' (x = hit, 0-9 = semitones up, . = rest)")
		bpm        = flag.Float64("bpm", beatgrid.DefaultTempo, "tempo (60..180)")
		loops      = flag.Int("loops", 2, "stop after N passes over the grid (0 = forever)")
		pitch      = flag.Int("pitch", 0, "base pitch of every sample in semitones")
		reverb     = flag.Int("reverb", 0, "reverb intensity 0..10")
		reversed   = flag.Bool("reversed", false, "play samples backwards")
		volume     = flag.Float64("volume", 0.8, "master gain")
		debug      = flag.Bool("debug", false, "debug logging")
	)
	flag.Parse()
	initLogger(*debug)

	specs, steps, err := parsePattern(*patternArg)
	if err != nil {
		fatal(err)
	}
	session, err := buildSession(specs, steps, beatgrid.Tone{Pitch: *pitch, Reverb: *reverb, Reversed: *reversed})
	if err != nil {
		fatal(err)
	}
	session.SetTempo(*bpm)
	loader := beatgrid.NewDirLoader(*samplesDir, *sampleRate)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := play(ctx, session, loader, *sampleRate, *loops, *volume); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	logger.Error("beatgrid failed", "err", err)
	os.Exit(1)
}

func play(ctx context.Context, s *beatgrid.Session, loader beatgrid.Loader, sampleRate, loops int, volume float64) error {
	engine, err := beatgrid.NewEngine(sampleRate, s, loader,
		beatgrid.WithLogger(logger), beatgrid.WithMasterGain(volume))
	if err != nil {
		return err
	}
	defer engine.Close()
	events := engine.Watch()

	if err := engine.Preload(ctx); err != nil {
		logger.Warn("some samples failed to load", "err", err)
	}
	startCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = engine.Start(startCtx)
	cancel()
	if err != nil {
		return err
	}

	loopCount := 0
	for {
		select {
		case <-ctx.Done():
			engine.Stop()
			return nil
		case ev := <-events:
			switch ev.Kind {
			case beatgrid.EventPlayhead:
				logger.Debug("step", "step", ev.Step, "at", ev.Time)
				if ev.Step >= 0 && ev.Playhead == 0 {
					loopCount++
					fmt.Printf("loop %d completed\n", loopCount)
					if loops > 0 && loopCount >= loops {
						engine.Stop()
						time.Sleep(time.Second)
						return nil
					}
				}
			case beatgrid.EventAssetLoadError, beatgrid.EventTriggerError:
				logger.Warn(ev.Kind.String(), "ref", ev.Ref, "err", ev.Err)
			case beatgrid.EventNoteSkipped:
				logger.Debug("note skipped", "ref", ev.Ref, "step", ev.Step)
			}
		}
	}
}
