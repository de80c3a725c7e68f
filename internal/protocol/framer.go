package protocol

import "bytes"

// LineDecoder reassembles newline-delimited messages from an arbitrary
// sequence of byte chunks. Each connection owns exactly one decoder; it is
// not safe for concurrent use.
type LineDecoder struct {
	buf []byte
}

// Feed appends a chunk to the decode buffer and returns every complete
// line it now contains, in arrival order. The trailing fragment after the
// last newline stays buffered for the next call. Lines that are blank
// after trimming are dropped.
//
// Returned slices are copies; callers may retain them across Feed calls.
func (d *LineDecoder) Feed(chunk []byte) [][]byte {
	d.buf = append(d.buf, chunk...)

	var lines [][]byte
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimSpace(d.buf[:i])
		d.buf = d.buf[i+1:]
		if len(line) == 0 {
			continue
		}
		out := make([]byte, len(line))
		copy(out, line)
		lines = append(lines, out)
	}

	// Drop the backing array once fully consumed so a long-lived idle
	// connection does not pin its largest historical chunk.
	if len(d.buf) == 0 {
		d.buf = nil
	}
	return lines
}

// Pending reports how many buffered bytes are waiting for a newline.
func (d *LineDecoder) Pending() int {
	return len(d.buf)
}
