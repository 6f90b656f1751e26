// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	applog "spectrum/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// FileSource replays a PCM WAV file as if it were a capture device. Only
// channel 0 is used. Chunks are paced at frames/sampleRate so the display
// runs at the same speed it would for live input.
type FileSource struct {
	path     string
	file     *os.File
	dec      *wav.Decoder
	loop     bool
	frames   int
	chans    int
	scale    float32
	interval time.Duration

	pcm   *audio.IntBuffer
	chunk []float32

	errs     chan error
	done     chan struct{}
	finished chan struct{}
	wg       sync.WaitGroup

	startOnce sync.Once
	closeOnce sync.Once
}

// NewFileSource opens path and checks it can stand in for a capture device
// running at sampleRate with frames per chunk.
func NewFileSource(path string, loop bool, frames, sampleRate int) (*FileSource, error) {
	if frames <= 0 {
		return nil, fmt.Errorf("invalid frame length: %d", frames)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("%s is not a valid WAV file", path)
	}
	if int(dec.SampleRate) != sampleRate {
		f.Close()
		return nil, fmt.Errorf("unsupported configuration: %s has sample rate %d Hz, want %d Hz",
			path, dec.SampleRate, sampleRate)
	}

	var scale float32
	switch dec.BitDepth {
	case 16, 24, 32:
		scale = 1 / float32(int64(1)<<(dec.BitDepth-1))
	default:
		f.Close()
		return nil, fmt.Errorf("unsupported configuration: %d-bit samples", dec.BitDepth)
	}

	chans := int(dec.NumChans)
	return &FileSource{
		path:     path,
		file:     f,
		dec:      dec,
		loop:     loop,
		frames:   frames,
		chans:    chans,
		scale:    scale,
		interval: time.Duration(float64(frames) / float64(sampleRate) * float64(time.Second)),
		pcm: &audio.IntBuffer{
			Format: &audio.Format{NumChannels: chans, SampleRate: sampleRate},
			Data:   make([]int, frames*chans),
		},
		chunk:    make([]float32, frames),
		errs:     make(chan error, errQueueSize),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}, nil
}

// Start begins paced replay into sink.
func (s *FileSource) Start(sink FrameSink) error {
	if sink == nil {
		return errors.New("file source requires a frame sink")
	}

	started := false
	s.startOnce.Do(func() {
		started = true
		s.wg.Add(1)
		go s.run(sink)
	})
	if !started {
		return errors.New("file source already started")
	}

	applog.Infof("audio: replaying %s (%d channel(s), %d-bit)", s.path, s.chans, s.dec.BitDepth)
	return nil
}

// Errors reports runtime decode and delivery errors.
func (s *FileSource) Errors() <-chan error {
	return s.errs
}

// Finished is closed once a non-looping replay has delivered its last chunk
// or stopped on a decode error.
func (s *FileSource) Finished() <-chan struct{} {
	return s.finished
}

// Close stops replay and closes the file. It is safe to call more than once.
func (s *FileSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
		close(s.errs)
		if closeErr := s.file.Close(); closeErr != nil {
			err = fmt.Errorf("failed to close input file: %w", closeErr)
		}
	})
	return err
}

func (s *FileSource) run(sink FrameSink) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}

		n, err := s.next()
		if err != nil {
			report(s.errs, &StreamError{Err: err})
			close(s.finished)
			return
		}
		if n == 0 {
			applog.Debugf("audio: reached end of %s", s.path)
			close(s.finished)
			return
		}

		if err := sink.Feed(s.chunk[:n]); err != nil {
			report(s.errs, &StreamError{Err: err, Fatal: true})
		}
	}
}

// next decodes the following chunk into s.chunk and returns its length in
// frames. Zero means the file is exhausted and looping is off.
func (s *FileSource) next() (int, error) {
	n, err := s.read()
	if err != nil || n > 0 || !s.loop {
		return n, err
	}

	if err := s.dec.Rewind(); err != nil {
		return 0, fmt.Errorf("failed to rewind %s: %w", s.path, err)
	}
	return s.read()
}

func (s *FileSource) read() (int, error) {
	s.pcm.Data = s.pcm.Data[:cap(s.pcm.Data)]
	n, err := s.dec.PCMBuffer(s.pcm)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, fmt.Errorf("failed to decode %s: %w", s.path, err)
	}

	frames := n / s.chans
	for i := range frames {
		s.chunk[i] = float32(s.pcm.Data[i*s.chans]) * s.scale
	}
	return frames, nil
}

var _ Source = (*FileSource)(nil)
