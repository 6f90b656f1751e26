// SPDX-License-Identifier: MIT
package fft

import (
	"fmt"

	applog "spectrum/internal/log"
	"spectrum/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Transform is a reusable complex FFT plan of fixed length. It holds no
// per-call state beyond gonum's internal work area, so one Transform must
// not be shared between goroutines.
type Transform struct {
	n    int
	plan *fourier.CmplxFFT
}

// NewTransform builds a forward/inverse plan for n points. Any positive n
// is accepted; powers of two are fastest.
func NewTransform(n int) (*Transform, error) {
	if n <= 0 {
		return nil, fmt.Errorf("fft size must be positive, got %d", n)
	}
	if !bitint.IsPowerOfTwo(n) {
		applog.Warnf("fft: size %d is not a power of 2 (nearest: %d), falling back to mixed radix",
			n, bitint.NextPowerOfTwo(n))
	}
	return &Transform{n: n, plan: fourier.NewCmplxFFT(n)}, nil
}

// Len returns the number of points.
func (t *Transform) Len() int {
	return t.n
}

// Forward computes the unnormalized DFT of src into dst and returns dst.
// dst is allocated when nil. Index k maps to frequency k*rate/n; indices
// above n/2 hold the negative frequencies.
func (t *Transform) Forward(dst, src []complex128) []complex128 {
	return t.plan.Coefficients(dst, src)
}

// Inverse computes the inverse DFT of src into dst scaled by 1/n, so that
// Inverse(Forward(x)) reproduces x.
func (t *Transform) Inverse(dst, src []complex128) []complex128 {
	dst = t.plan.Sequence(dst, src)
	scale := complex(1/float64(t.n), 0)
	for i := range dst {
		dst[i] *= scale
	}
	return dst
}

// Freq returns the frequency in Hz of bin k for the given sample rate.
// Out of range bins return 0.
func (t *Transform) Freq(k int, sampleRate float64) float64 {
	if k < 0 || k >= t.n {
		return 0
	}
	return float64(k) * sampleRate / float64(t.n)
}
