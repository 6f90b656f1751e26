// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"spectrum/cmd"
	"spectrum/internal/analysis"
	"spectrum/internal/audio"
	"spectrum/internal/buffer"
	"spectrum/internal/config"
	"spectrum/internal/log"
	"spectrum/pkg/build"

	"golang.org/x/sync/errgroup"
)

// main is the entry point for the spectrum visualizer.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load configuration
//   - Execute one-off commands if requested
//   - Open the input source and start delivering chunks
//
// 2. Concurrent Phase (Hot Path):
//   - Capture callback overwrites the shared frame
//   - Analyzer windows, transforms and renders it every refresh period
//   - Monitor logs stream errors and stops on fatal ones
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Close the input source
//   - Terminate PortAudio
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Development builds have no ldflags; that is not an error worth stopping for.
	if err := build.Initialize(); err != nil {
		log.Debugf("build: %v", err)
	}

	// One thread for the capture callback, one for analysis and rendering.
	runtime.GOMAXPROCS(2)

	cfg, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}
	if cfg == nil {
		return // Help or version was printed
	}

	level, _ := log.ParseLevel(cfg.LogLevel)
	log.SetLevel(level)

	if err := run(cfg); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(cfg *config.Config) error {
	// Handle one-off commands (e.g., device listing) that don't require
	// the analysis loop to be running
	if cfg.Command != "" {
		return executeCommand(cfg.Command)
	}

	buf, err := buffer.New(config.FFTSize)
	if err != nil {
		return err
	}
	feeder, err := audio.NewFeeder(buf)
	if err != nil {
		return err
	}

	src, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Errorf("Error closing input: %v", err)
		}
	}()

	analyzer, err := analysis.NewAnalyzer(buf, analysis.Options{
		SampleRate: config.SampleRate,
		Period:     cfg.Display.Refresh,
		Output:     os.Stdout,
	})
	if err != nil {
		return err
	}

	// CRITICAL: Start of real-time capture. From here on the source
	// overwrites the shared frame on its own thread.
	if err := src.Start(feeder); err != nil {
		return err
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stop()
		return analyzer.Run(ctx)
	})
	g.Go(func() error {
		return monitor(ctx, src)
	})

	err = g.Wait()

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	if err == nil {
		log.Info("Shutting down")
	}
	return err
}

// openSource returns the WAV replay when an input file is configured and
// the PortAudio capture engine otherwise.
func openSource(cfg *config.Config) (audio.Source, error) {
	if cfg.Audio.InputFile != "" {
		return audio.NewFileSource(cfg.Audio.InputFile, cfg.Audio.Loop, config.FFTSize, config.SampleRate)
	}

	if err := audio.Initialize(); err != nil {
		return nil, err
	}
	engine, err := audio.NewEngine(cfg)
	if err != nil {
		audio.Terminate()
		return nil, err
	}
	return &terminatingSource{Engine: engine}, nil
}

// terminatingSource shuts PortAudio down after the engine is closed.
type terminatingSource struct {
	*audio.Engine
}

func (s *terminatingSource) Close() error {
	err := s.Engine.Close()
	if termErr := audio.Terminate(); termErr != nil && err == nil {
		err = termErr
	}
	return err
}

// monitor logs non-fatal stream errors and returns the first fatal one.
func monitor(ctx context.Context, src audio.Source) error {
	var finished <-chan struct{}
	if f, ok := src.(interface{ Finished() <-chan struct{} }); ok {
		finished = f.Finished()
	}

	errs := src.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-finished:
			log.Info("Input file finished, holding last frame")
			finished = nil
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			var streamErr *audio.StreamError
			if errors.As(err, &streamErr) && streamErr.Fatal {
				return err
			}
			log.Errorf("%v", err)
		}
	}
}

// executeCommand handles one-off commands that don't require the analysis
// loop, such as listing available audio devices.
func executeCommand(command string) error {
	switch command {
	case "list":
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer audio.Terminate()
		return audio.ListDevices(os.Stdout)
	default:
		return errors.New("unknown command: " + command)
	}
}
