// SPDX-License-Identifier: MIT
package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"spectrum/internal/buffer"
	"spectrum/internal/config"
	"spectrum/pkg/utils"
)

const (
	testFFTSize    = config.FFTSize
	testSampleRate = config.SampleRate
)

func newTestAnalyzer(t *testing.T, frame []float32, out *bytes.Buffer) (*Analyzer, *buffer.SampleBuffer) {
	t.Helper()
	buf, err := buffer.New(testFFTSize)
	if err != nil {
		t.Fatal(err)
	}
	if frame != nil {
		if err := buf.Store(frame); err != nil {
			t.Fatal(err)
		}
	}
	opts := Options{SampleRate: testSampleRate, Period: time.Millisecond}
	if out != nil {
		opts.Output = out
	}
	a, err := NewAnalyzer(buf, opts)
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}
	return a, buf
}

func TestNewAnalyzerValidation(t *testing.T) {
	good, _ := buffer.New(testFFTSize)
	single, _ := buffer.New(1)

	tests := []struct {
		name string
		buf  *buffer.SampleBuffer
		opts Options
	}{
		{"Nil buffer", nil, Options{SampleRate: testSampleRate}},
		{"Zero rate", good, Options{}},
		{"Negative cycles", good, Options{SampleRate: testSampleRate, Cycles: -1}},
		{"Single sample frame", single, Options{SampleRate: testSampleRate}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewAnalyzer(tt.buf, tt.opts); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestNewAnalyzerDefaults(t *testing.T) {
	buf, _ := buffer.New(testFFTSize)
	a, err := NewAnalyzer(buf, Options{SampleRate: testSampleRate})
	if err != nil {
		t.Fatal(err)
	}
	if a.period != config.DefaultRefresh {
		t.Errorf("period = %s, want %s", a.period, config.DefaultRefresh)
	}
	if a.out == nil {
		t.Error("output should default to stdout")
	}
	if a.FFTSize() != testFFTSize {
		t.Errorf("FFTSize() = %d, want %d", a.FFTSize(), testFFTSize)
	}
}

func TestFrequencyLabels(t *testing.T) {
	a, _ := newTestAnalyzer(t, nil, nil)

	if got := a.FrequencyForBin(0); got != 0 {
		t.Errorf("bin 0 = %f Hz, want 0", got)
	}
	if got := a.FrequencyForBin(46); got >= config.MaxDisplayHz || math.Abs(got-1981.05) > 0.01 {
		t.Errorf("bin 46 = %f Hz, want ~1981.05 below cutoff", got)
	}
	if got := a.FrequencyForBin(47); got < config.MaxDisplayHz {
		t.Errorf("bin 47 = %f Hz, want at or above cutoff", got)
	}

	bins, err := a.Analyze()
	if err != nil {
		t.Fatal(err)
	}
	var idx []int
	for _, b := range bins {
		idx = append(idx, b.Index)
	}
	want := []int{0, 4, 8, 12, 16, 20, 24, 28, 32, 36, 40, 44}
	if fmt.Sprint(idx) != fmt.Sprint(want) {
		t.Errorf("displayed bins = %v, want %v", idx, want)
	}
}

func TestAllZeroEndToEnd(t *testing.T) {
	var out bytes.Buffer
	a, _ := newTestAnalyzer(t, nil, &out)

	bins, err := a.Analyze()
	if err != nil {
		t.Fatal(err)
	}
	for _, b := range bins {
		if b.Magnitude != 0 {
			t.Errorf("bin %d magnitude = %g, want 0", b.Index, b.Magnitude)
		}
		if !math.IsInf(b.Decibels, -1) {
			t.Errorf("bin %d dB = %g, want -Inf", b.Index, b.Decibels)
		}
		if b.Level != 0 || b.Width != 0 {
			t.Errorf("bin %d level/width = %g/%d, want 0/0", b.Index, b.Level, b.Width)
		}
	}

	if err := a.Step(); err != nil {
		t.Fatal(err)
	}

	var want strings.Builder
	want.WriteString("\x1B[2J\x1B[H\n")
	for k := 0; k <= 44; k += 4 {
		fmt.Fprintf(&want, "%4.0fHz: \n", float64(k)*testSampleRate/testFFTSize)
	}
	if out.String() != want.String() {
		t.Errorf("frame mismatch:\n got %q\nwant %q", out.String(), want.String())
	}

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if lines[1] != "   0Hz: " {
		t.Errorf("first bin line = %q, want %q", lines[1], "   0Hz: ")
	}
	if last := lines[len(lines)-1]; last != "1895Hz: " {
		t.Errorf("last bin line = %q, want %q", last, "1895Hz: ")
	}
}

func TestConstantInputConcentratesInDC(t *testing.T) {
	a, _ := newTestAnalyzer(t, utils.ConstantFrame(testFFTSize, 0.5), nil)

	if _, err := a.Analyze(); err != nil {
		t.Fatal(err)
	}
	mags := a.Magnitudes()
	if len(mags) != testFFTSize/2 {
		t.Fatalf("len(Magnitudes()) = %d, want %d", len(mags), testFFTSize/2)
	}

	if math.Abs(mags[0]-0.5) > 1e-3 {
		t.Errorf("DC magnitude = %f, want ~0.5", mags[0])
	}
	// Bin 1 carries the Hann main lobe (half the DC value); nothing beyond it.
	if math.Abs(mags[1]-0.25) > 1e-3 {
		t.Errorf("bin 1 magnitude = %f, want ~0.25", mags[1])
	}
	for k := 2; k < len(mags); k++ {
		if mags[k] > 1e-3*mags[0] {
			t.Fatalf("bin %d magnitude = %g, want near zero", k, mags[k])
		}
	}
}

func TestSinePeakBar(t *testing.T) {
	freq := 20.0 * testSampleRate / testFFTSize
	a, _ := newTestAnalyzer(t, utils.GenerateSineWave(testFFTSize, testSampleRate, freq), nil)

	bins, err := a.Analyze()
	if err != nil {
		t.Fatal(err)
	}
	for _, b := range bins {
		switch b.Index {
		case 20:
			if b.Width != 44 {
				t.Errorf("peak bar width = %d, want 44 (mag %f)", b.Width, b.Magnitude)
			}
		default:
			if b.Width != 0 {
				t.Errorf("bin %d width = %d, want 0", b.Index, b.Width)
			}
		}
	}

	if peak := utils.FindPeakBin(a.Magnitudes(), 0, testFFTSize/2-1); peak != 20 {
		t.Errorf("peak bin = %d, want 20", peak)
	}
}

func TestLoudSignalExceedsBarWidth(t *testing.T) {
	a, _ := newTestAnalyzer(t, utils.ConstantFrame(testFFTSize, 4), nil)

	bins, _ := a.Analyze()
	if bins[0].Level <= 1 {
		t.Errorf("DC level = %f, want above 1 (no upper clamp)", bins[0].Level)
	}
	if bins[0].Width <= config.BarWidth {
		t.Errorf("DC width = %d, want more than %d", bins[0].Width, config.BarWidth)
	}
}

func TestWindowAppliedInPlaceCompounds(t *testing.T) {
	a, buf := newTestAnalyzer(t, utils.ConstantFrame(testFFTSize, 1), nil)
	coeffs := a.window.Coefficients()

	if _, err := a.Analyze(); err != nil {
		t.Fatal(err)
	}
	once, _ := buf.Snapshot()
	if _, err := a.Analyze(); err != nil {
		t.Fatal(err)
	}
	twice, _ := buf.Snapshot()

	for i := range once {
		if math.Abs(float64(once[i])-coeffs[i]) > 1e-6 {
			t.Fatalf("after one cycle sample %d = %f, want %f", i, once[i], coeffs[i])
		}
		if math.Abs(float64(twice[i])-coeffs[i]*coeffs[i]) > 1e-6 {
			t.Fatalf("after two cycles sample %d = %f, want %f", i, twice[i], coeffs[i]*coeffs[i])
		}
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		name  string
		mag   float64
		level float64
		width int
	}{
		{"Silence", 0, 0, 0},
		{"NaN", math.NaN(), 0, 0},
		{"Negative", -1, 0, 0},
		{"Floor", 1e-3, 0, 0},
		{"Below floor", 1e-5, 0, 0},
		{"Minus 20 dB", 0.1, 2.0 / 3.0, 33},
		{"Full scale", 1, 1, 50},
		{"Plus 20 dB", 10, 4.0 / 3.0, 66},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Level(tt.mag)
			if math.Abs(got-tt.level) > 1e-9 {
				t.Errorf("Level(%g) = %f, want %f", tt.mag, got, tt.level)
			}
			if w := BarWidth(got); w != tt.width {
				t.Errorf("BarWidth(%f) = %d, want %d", got, w, tt.width)
			}
		})
	}

	if w := BarWidth(math.Inf(1)); w != 0 {
		t.Errorf("BarWidth(+Inf) = %d, want 0", w)
	}
}

func TestAnalyzePoisonedBuffer(t *testing.T) {
	a, buf := newTestAnalyzer(t, nil, nil)
	_ = buf.With(func([]float32) error { panic("callback crashed") })

	if _, err := a.Analyze(); !errors.Is(err, buffer.ErrPoisoned) {
		t.Errorf("Analyze() error = %v, want ErrPoisoned", err)
	}
	if err := a.Run(context.Background()); !errors.Is(err, buffer.ErrPoisoned) {
		t.Errorf("Run() error = %v, want ErrPoisoned", err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("terminal gone") }

func TestStepWriteError(t *testing.T) {
	buf, _ := buffer.New(testFFTSize)
	a, _ := NewAnalyzer(buf, Options{SampleRate: testSampleRate, Output: failingWriter{}})

	err := a.Step()
	if err == nil || !strings.Contains(err.Error(), "terminal gone") {
		t.Errorf("Step() error = %v, want write failure", err)
	}
}

func TestRunCycleLimit(t *testing.T) {
	var out bytes.Buffer
	buf, _ := buffer.New(testFFTSize)
	a, _ := NewAnalyzer(buf, Options{
		SampleRate: testSampleRate,
		Period:     time.Millisecond,
		Output:     &out,
		Cycles:     3,
	})

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n := strings.Count(out.String(), "\x1B[2J"); n != 3 {
		t.Errorf("rendered %d frames, want 3", n)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	var out bytes.Buffer
	a, _ := newTestAnalyzer(t, nil, &out)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.Run(ctx); err != nil {
		t.Errorf("Run() on cancelled context = %v, want nil", err)
	}
	if out.Len() != 0 {
		t.Errorf("cancelled run rendered %d bytes, want none", out.Len())
	}

	var live bytes.Buffer
	a, _ = newTestAnalyzer(t, nil, &live)
	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := a.Run(ctx); err != nil {
		t.Errorf("Run() = %v, want nil on timeout", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Run() did not return promptly after cancellation")
	}
	if strings.Count(live.String(), "\x1B[2J") < 1 {
		t.Error("expected at least one frame before cancellation")
	}
}

func TestRender(t *testing.T) {
	var out bytes.Buffer
	bins := []Bin{
		{Index: 0, Frequency: 0, Width: 0},
		{Index: 4, Frequency: 172.265625, Width: 3},
		{Index: 44, Frequency: 1894.921875, Width: 60},
	}
	if err := Render(&out, bins); err != nil {
		t.Fatal(err)
	}
	want := "\x1B[2J\x1B[H\n" +
		"   0Hz: \n" +
		" 172Hz: ###\n" +
		"1895Hz: " + strings.Repeat("#", 60) + "\n"
	if out.String() != want {
		t.Errorf("Render() = %q, want %q", out.String(), want)
	}

	if err := Render(failingWriter{}, bins); err == nil {
		t.Error("Render() to failing writer should error")
	}
}

func BenchmarkStep(b *testing.B) {
	buf, _ := buffer.New(testFFTSize)
	_ = buf.Store(utils.GenerateComplexWave(testFFTSize, testSampleRate))
	a, _ := NewAnalyzer(buf, Options{SampleRate: testSampleRate, Output: &bytes.Buffer{}})

	b.ReportAllocs()
	for b.Loop() {
		_ = a.Step()
	}
}
