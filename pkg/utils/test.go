// SPDX-License-Identifier: MIT
//
// Package utils provides deterministic signal generators and helpers shared
// by the analysis and capture tests.
package utils

import "math"

// RecordingFeeder collects every chunk handed to it, for tests that drive a
// capture source without a shared buffer.
type RecordingFeeder struct {
	Chunks [][]float32
}

// Feed stores a copy of chunk.
func (r *RecordingFeeder) Feed(chunk []float32) error {
	c := make([]float32, len(chunk))
	copy(c, chunk)
	r.Chunks = append(r.Chunks, c)
	return nil
}

// GenerateComplexWave returns a 440 Hz fundamental with two harmonics,
// peaking at 0.9 full scale.
func GenerateComplexWave(size int, sampleRate float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = float32(signal * 0.9)
	}
	return buffer
}

// GenerateSineWave returns a sine at frequency Hz with 0.9 amplitude.
func GenerateSineWave(size int, sampleRate, frequency float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = float32(math.Sin(2*math.Pi*frequency*t) * 0.9)
	}
	return buffer
}

// ConstantFrame returns size samples all equal to value.
func ConstantFrame(size int, value float32) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		buffer[i] = value
	}
	return buffer
}

// FindPeakBin returns the index of the largest magnitude in [startBin, endBin].
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}
