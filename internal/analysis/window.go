// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"

	"gonum.org/v1/gonum/dsp/window"
)

// Window holds precomputed Hann coefficients
// w[i] = 0.5 * (1 - cos(2*pi*i/(n-1))) for a fixed frame length.
type Window struct {
	coeffs []float64
}

// NewHannWindow precomputes a symmetric Hann window of n points. The
// formula divides by n-1, so n must be at least 2.
func NewHannWindow(n int) (*Window, error) {
	if n <= 1 {
		return nil, fmt.Errorf("hann window needs at least 2 points, got %d", n)
	}

	// gonum windows scale the slice in place, so start from unity.
	coeffs := make([]float64, n)
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	window.Hann(coeffs)

	return &Window{coeffs: coeffs}, nil
}

// Len returns the number of coefficients.
func (w *Window) Len() int {
	return len(w.coeffs)
}

// Apply multiplies frame by the window in place. Only the overlapping
// prefix is touched when the lengths differ.
func (w *Window) Apply(frame []float32) {
	n := min(len(frame), len(w.coeffs))
	for i := range n {
		frame[i] = float32(float64(frame[i]) * w.coeffs[i])
	}
}

// Coefficients returns a copy of the window coefficients.
func (w *Window) Coefficients() []float64 {
	out := make([]float64, len(w.coeffs))
	copy(out, w.coeffs)
	return out
}
