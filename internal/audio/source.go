// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
)

// ErrNoInputDevice is returned when no usable capture device exists.
var ErrNoInputDevice = errors.New("no input device available")

// FrameSink receives captured chunks. Feed runs on the capture thread and
// must not block beyond a bounded copy.
type FrameSink interface {
	Feed(chunk []float32) error
}

// Source produces mono chunks of a fixed frame length at the capture rate
// and pushes them into a FrameSink.
type Source interface {
	// Start begins delivering chunks to sink. Failures here are startup
	// failures and are not retried.
	Start(sink FrameSink) error

	// Errors reports runtime stream errors as *StreamError values.
	Errors() <-chan error

	// Close stops delivery and releases the underlying stream or file.
	Close() error
}

// StreamError is a runtime failure reported by a running Source. Fatal
// errors mean the shared frame can no longer be trusted; the rest are
// informational and capture carries on.
type StreamError struct {
	Err   error
	Fatal bool
}

func (e *StreamError) Error() string {
	if e.Fatal {
		return fmt.Sprintf("fatal stream error: %v", e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// errQueueSize bounds pending runtime errors; extra reports are dropped so
// the capture thread never blocks on a slow consumer.
const errQueueSize = 16

// report queues err without blocking.
func report(errs chan<- error, err *StreamError) {
	select {
	case errs <- err:
	default:
	}
}
