// SPDX-License-Identifier: MIT
/*
Package audio captures mono sample chunks and publishes them into the shared
frame buffer. Two sources exist:
- Engine, a PortAudio input stream on a host capture device
- FileSource, a paced replay of a WAV file

Thread Safety:
- Chunks are delivered on the source's own thread (PortAudio callback or replay goroutine)
- The callback path does one bounded copy per chunk and never logs
- Runtime errors travel over a bounded channel and are dropped when it is full
*/
package audio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"spectrum/internal/config"
	applog "spectrum/internal/log"

	"github.com/gordonklaus/portaudio"
)

var paLibOpenStream = portaudio.OpenStream

// Engine is a Source backed by a PortAudio input stream.
type Engine struct {
	device     *portaudio.DeviceInfo
	latency    time.Duration
	frames     int
	sampleRate float64

	stream *portaudio.Stream
	sink   FrameSink
	errs   chan error

	closeOnce sync.Once
}

// NewEngine resolves the configured capture device. PortAudio must already
// be initialized.
func NewEngine(cfg *config.Config) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("engine requires a configuration")
	}

	device, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, err
	}

	return &Engine{
		device:     device,
		latency:    device.DefaultHighInputLatency,
		frames:     config.FFTSize,
		sampleRate: config.SampleRate,
		errs:       make(chan error, errQueueSize),
	}, nil
}

// Device returns the capture device the engine opens.
func (e *Engine) Device() *portaudio.DeviceInfo {
	return e.device
}

// Start opens a mono input stream of FFTSize frames per callback and begins
// capture into sink.
func (e *Engine) Start(sink FrameSink) error {
	if sink == nil {
		return errors.New("engine requires a frame sink")
	}
	if e.stream != nil {
		return errors.New("input stream already started")
	}
	e.sink = sink

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: config.Channels,
			Device:   e.device,
			Latency:  e.latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // Capture only
			Device:   nil,
		},
		FramesPerBuffer: e.frames,
		SampleRate:      e.sampleRate,
	}

	stream, err := paLibOpenStream(params, e.processInputStream)
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start input stream: %w", err)
	}
	e.stream = stream

	applog.Infof("audio: capturing from %q at %.0f Hz, %d frames per chunk",
		e.device.Name, e.sampleRate, e.frames)
	return nil
}

// Errors reports runtime stream errors.
func (e *Engine) Errors() <-chan error {
	return e.errs
}

// Close stops and closes the stream. It is safe to call more than once.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		if e.stream != nil {
			if stopErr := e.stream.Stop(); stopErr != nil {
				err = fmt.Errorf("failed to stop input stream: %w", stopErr)
			}
			if closeErr := e.stream.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("failed to close input stream: %w", closeErr)
			}
			e.stream = nil
		}
		close(e.errs)
	})
	return err
}

// processInputStream is the PortAudio input callback.
// Performance Critical:
// - Runs on the PortAudio callback thread
// - Hands the chunk straight to the sink, no allocation
// - Overflow and underflow are reported and capture continues
func (e *Engine) processInputStream(in []float32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
	if flags&portaudio.InputOverflow != 0 {
		report(e.errs, &StreamError{Err: errInputOverflow})
	}
	if flags&portaudio.InputUnderflow != 0 {
		report(e.errs, &StreamError{Err: errInputUnderflow})
	}

	if err := e.sink.Feed(in); err != nil {
		report(e.errs, &StreamError{Err: err, Fatal: true})
	}
}

var (
	errInputOverflow  = errors.New("input overflow")
	errInputUnderflow = errors.New("input underflow")
)

var _ Source = (*Engine)(nil)
