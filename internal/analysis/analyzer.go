// SPDX-License-Identifier: MIT
/*
Package analysis turns the shared sample frame into a rendered spectrum.

Each cycle the Analyzer:
 1. locks the shared buffer, applies the Hann window to the live frame in
    place and copies it out as complex samples, then unlocks
 2. runs a forward FFT of length N outside the lock
 3. converts bins [0, N/2) to single-sided magnitudes |X[k]|*2/N
 4. keeps bins below MaxDisplayHz whose index is a multiple of BinStride
 5. maps each kept magnitude to a dB-scaled bar and writes one frame

Windowing mutates the shared frame. If no new audio arrives between two
cycles the second cycle analyses a frame that has been windowed twice.
*/
package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/cmplx"
	"os"
	"time"

	"spectrum/internal/buffer"
	"spectrum/internal/config"
	"spectrum/internal/fft"
	applog "spectrum/internal/log"
)

// Options configures an Analyzer. Zero values select the defaults noted
// per field.
type Options struct {
	SampleRate float64       // Capture rate in Hz (required)
	Period     time.Duration // Pause between cycles (config.DefaultRefresh)
	Output     io.Writer     // Frame destination (os.Stdout)
	Cycles     int           // Stop after this many cycles; 0 runs until cancelled
}

// Bin is one displayed spectrum line.
type Bin struct {
	Index     int     // FFT bin index k
	Frequency float64 // k * rate / N
	Magnitude float64 // |X[k]| * 2 / N
	Decibels  float64 // 20 * log10(Magnitude), may be -Inf
	Level     float64 // (dB + 60) / 60 floored at 0, not capped above
	Width     int     // Bar length in characters
}

// Pre-allocated buffers reused every cycle.
type workspace struct {
	input     []complex128 // Windowed frame, imaginary parts zero.
	output    []complex128 // FFT coefficients.
	magnitude []float64    // Single-sided magnitudes for k in [0, N/2).
	bins      []Bin        // Displayed bins of the last cycle.
	frame     bytes.Buffer // Rendered frame, written in one call.
}

// Analyzer is the periodic pipeline stage between the shared buffer and the
// terminal. It is not safe for concurrent use; run it from one goroutine.
type Analyzer struct {
	buf        *buffer.SampleBuffer
	n          int
	sampleRate float64
	period     time.Duration
	out        io.Writer
	cycles     int

	window    *Window
	transform *fft.Transform
	workspace workspace
}

// NewAnalyzer builds an analyzer over buf. The FFT length is the buffer's
// frame length; the window and FFT plan are built once here.
func NewAnalyzer(buf *buffer.SampleBuffer, opts Options) (*Analyzer, error) {
	if buf == nil {
		return nil, errors.New("analyzer requires a sample buffer")
	}
	if opts.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", opts.SampleRate)
	}
	if opts.Cycles < 0 {
		return nil, fmt.Errorf("cycle limit must not be negative, got %d", opts.Cycles)
	}
	if opts.Period <= 0 {
		opts.Period = config.DefaultRefresh
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	n := buf.Len()
	win, err := NewHannWindow(n)
	if err != nil {
		return nil, err
	}
	transform, err := fft.NewTransform(n)
	if err != nil {
		return nil, err
	}

	half := n / 2
	maxShown := half/config.BinStride + 1

	applog.Infof("analysis: N=%d, rate=%.0f Hz, resolution=%.2f Hz, period=%s",
		n, opts.SampleRate, opts.SampleRate/float64(n), opts.Period)

	return &Analyzer{
		buf:        buf,
		n:          n,
		sampleRate: opts.SampleRate,
		period:     opts.Period,
		out:        opts.Output,
		cycles:     opts.Cycles,
		window:     win,
		transform:  transform,
		workspace: workspace{
			input:     make([]complex128, n),
			output:    make([]complex128, n),
			magnitude: make([]float64, half),
			bins:      make([]Bin, 0, maxShown),
		},
	}, nil
}

// Analyze runs one capture-to-bins pass and returns the displayed bins.
// The returned slice is reused by the next call.
func (a *Analyzer) Analyze() ([]Bin, error) {
	ws := &a.workspace

	// Hold the lock only for windowing and the copy out.
	err := a.buf.With(func(frame []float32) error {
		a.window.Apply(frame)
		for i, s := range frame {
			ws.input[i] = complex(float64(s), 0)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.transform.Forward(ws.output, ws.input)

	scale := 2 / float64(a.n)
	ws.bins = ws.bins[:0]
	for k := range ws.magnitude {
		mag := cmplx.Abs(ws.output[k]) * scale
		ws.magnitude[k] = mag

		freq := a.FrequencyForBin(k)
		if freq >= config.MaxDisplayHz || k%config.BinStride != 0 {
			continue
		}
		level := Level(mag)
		ws.bins = append(ws.bins, Bin{
			Index:     k,
			Frequency: freq,
			Magnitude: mag,
			Decibels:  20 * math.Log10(mag),
			Level:     level,
			Width:     BarWidth(level),
		})
	}

	return ws.bins, nil
}

// Step runs one full cycle: analyse, render, write.
func (a *Analyzer) Step() error {
	bins, err := a.Analyze()
	if err != nil {
		return err
	}

	a.workspace.frame.Reset()
	renderFrame(&a.workspace.frame, bins)
	if _, err := a.out.Write(a.workspace.frame.Bytes()); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// Run repeats Step every period until ctx is cancelled or the configured
// cycle limit is reached, both of which return nil. A poisoned buffer or a
// failed write stops the loop with that error.
func (a *Analyzer) Run(ctx context.Context) error {
	timer := time.NewTimer(a.period)
	timer.Stop()
	defer timer.Stop()

	for cycle := 0; a.cycles == 0 || cycle < a.cycles; cycle++ {
		if ctx.Err() != nil {
			return nil
		}
		if err := a.Step(); err != nil {
			return err
		}
		if a.cycles != 0 && cycle == a.cycles-1 {
			break
		}

		timer.Reset(a.period)
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
	}

	applog.Debugf("analysis: stopped after %d cycles", a.cycles)
	return nil
}

// Magnitudes returns a copy of the last computed half spectrum.
func (a *Analyzer) Magnitudes() []float64 {
	out := make([]float64, len(a.workspace.magnitude))
	copy(out, a.workspace.magnitude)
	return out
}

// FrequencyForBin returns the centre frequency in Hz of bin k.
func (a *Analyzer) FrequencyForBin(k int) float64 {
	return a.transform.Freq(k, a.sampleRate)
}

// FFTSize returns N.
func (a *Analyzer) FFTSize() int {
	return a.n
}

// Level maps a magnitude onto the drawable range: (20*log10(mag) + 60) / 60,
// floored at 0. Silence gives log10(0) = -Inf which floors to 0, as does
// NaN. Magnitudes above 1 (0 dB) give levels above 1.
func Level(mag float64) float64 {
	db := 20 * math.Log10(mag)
	level := (db - config.FloorDB) / -config.FloorDB
	if !(level > 0) {
		return 0
	}
	return level
}

// BarWidth converts a level to a bar length, truncating toward zero.
func BarWidth(level float64) int {
	if math.IsInf(level, 0) || math.IsNaN(level) || level <= 0 {
		return 0
	}
	return int(level * config.BarWidth)
}
