package robot

import (
	"bytes"
	"strings"
)

// LineDecoder reassembles newline-delimited frames from arbitrary chunks.
// It is owned by a single reader and is not safe for concurrent use.
type LineDecoder struct {
	buf        []byte
	maxLen     int
	discarding bool
	overflows  int
}

// NewLineDecoder creates a decoder. maxLen <= 0 disables the fragment limit.
func NewLineDecoder(maxLen int) *LineDecoder {
	return &LineDecoder{maxLen: maxLen}
}

// Feed appends chunk and returns every complete, trimmed, non-empty line.
func (d *LineDecoder) Feed(chunk []byte) []string {
	var lines []string

	for len(chunk) > 0 {
		idx := bytes.IndexByte(chunk, '\n')
		if idx < 0 {
			if !d.discarding {
				d.buf = append(d.buf, chunk...)
				if d.maxLen > 0 && len(d.buf) > d.maxLen {
					// Runaway fragment; skip everything up to the next newline
					d.buf = d.buf[:0]
					d.discarding = true
					d.overflows++
				}
			}
			break
		}

		if d.discarding {
			d.discarding = false
		} else {
			d.buf = append(d.buf, chunk[:idx]...)
			if d.maxLen > 0 && len(d.buf) > d.maxLen {
				// Same verdict as a fragment that overflowed before its newline
				d.overflows++
			} else if line := strings.TrimSpace(string(d.buf)); line != "" {
				lines = append(lines, line)
			}
		}
		d.buf = d.buf[:0]
		chunk = chunk[idx+1:]
	}

	return lines
}

// Pending returns the bytes of the unterminated trailing fragment.
func (d *LineDecoder) Pending() int {
	return len(d.buf)
}

// TakeOverflows returns and resets the number of discarded fragments.
func (d *LineDecoder) TakeOverflows() int {
	n := d.overflows
	d.overflows = 0
	return n
}
