// SPDX-License-Identifier: MIT
package config

import "time"

// Analysis parameters. These are fixed: the spectrum layout (bin spacing,
// label column, bar scale) is tuned for exactly this frame size and rate.
const (
	FFTSize    = 1024  // Samples per analysed frame (N)
	SampleRate = 44100 // Capture rate (Hz)
	Channels   = 1     // Mono capture only

	MaxDisplayHz = 2000.0 // Bins at or above this frequency are not drawn
	BinStride    = 4      // Only every 4th bin index is drawn
	BarWidth     = 50     // Characters for a 0 dB bin
	FloorDB      = -60.0  // Bins at or below this level draw an empty bar
)

// Defaults and limits for the tunable settings.
const (
	DefaultLogLevel = "info"
	DefaultDeviceID = MinDeviceID // System default input device
	DefaultRefresh  = 50 * time.Millisecond

	MinDeviceID = -1 // -1 represents the system default device
	MinRefresh  = 5 * time.Millisecond
	MaxRefresh  = 10 * time.Second

	DefaultConfigFile = "spectrum.yaml"
)
