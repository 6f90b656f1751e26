// SPDX-License-Identifier: MIT
package analysis

import (
	"bytes"
	"fmt"
	"io"
)

const (
	// clearScreen erases the terminal and homes the cursor so each frame
	// replaces the last one instead of scrolling.
	clearScreen = "\x1B[2J\x1B[H\n"
	barChar     = '#'
)

// Render writes one frame for bins to w: the clear sequence followed by a
// "%4.0fHz: " label and a bar per bin.
func Render(w io.Writer, bins []Bin) error {
	var buf bytes.Buffer
	renderFrame(&buf, bins)
	_, err := w.Write(buf.Bytes())
	return err
}

func renderFrame(buf *bytes.Buffer, bins []Bin) {
	buf.WriteString(clearScreen)
	for _, b := range bins {
		fmt.Fprintf(buf, "%4.0fHz: ", b.Frequency)
		for range b.Width {
			buf.WriteByte(barChar)
		}
		buf.WriteByte('\n')
	}
}
