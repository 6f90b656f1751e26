// SPDX-License-Identifier: MIT
/*
Package buffer holds the single-slot sample buffer shared between the
capture callback (writer) and the spectrum analyzer (reader and in-place
mutator).

Thread Safety:
- One mutex guards the frame; every access goes through With
- Lock hold time is bounded by an O(N) copy or window pass
- Last writer wins, there is no frame queue
*/
package buffer

import (
	"errors"
	"fmt"
	"sync"
)

// ErrPoisoned is returned once a panic escaped a With callback. The frame
// contents can no longer be trusted after that point.
var ErrPoisoned = errors.New("sample buffer poisoned")

// SampleBuffer is a mutually exclusive slot holding the latest audio frame.
type SampleBuffer struct {
	mu       sync.Mutex
	frame    []float32
	poisoned bool
}

// New allocates a zeroed buffer holding frames of exactly n samples.
func New(n int) (*SampleBuffer, error) {
	if n <= 0 {
		return nil, fmt.Errorf("sample buffer size must be positive, got %d", n)
	}
	return &SampleBuffer{frame: make([]float32, n)}, nil
}

// Len returns the fixed frame length.
func (b *SampleBuffer) Len() int {
	return len(b.frame)
}

// With blocks until exclusive access is granted and runs fn with the live
// frame. The lock is released on every exit path. fn must not retain the
// slice. A panic inside fn poisons the buffer and is returned as an error.
func (b *SampleBuffer) With(fn func(frame []float32) error) (err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.poisoned {
		return ErrPoisoned
	}

	defer func() {
		if r := recover(); r != nil {
			b.poisoned = true
			err = fmt.Errorf("%w: %v", ErrPoisoned, r)
		}
	}()

	return fn(b.frame)
}

// Store overwrites the frame with src. src must have exactly Len() samples.
func (b *SampleBuffer) Store(src []float32) error {
	if len(src) != len(b.frame) {
		return fmt.Errorf("frame length %d does not match buffer length %d", len(src), len(b.frame))
	}
	return b.With(func(frame []float32) error {
		copy(frame, src)
		return nil
	})
}

// Snapshot returns a copy of the current frame.
// NOTE: allocates, keep it off the audio thread.
func (b *SampleBuffer) Snapshot() ([]float32, error) {
	out := make([]float32, len(b.frame))
	err := b.With(func(frame []float32) error {
		copy(out, frame)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Poisoned reports whether a prior access panicked.
func (b *SampleBuffer) Poisoned() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.poisoned
}
