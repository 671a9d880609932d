// Package chunk provides a bounded reader over a region of an open file,
// used to stream exactly one upload part from the source file.
package chunk

import (
	"fmt"
	"io"
)

// Window is an io.Reader restricted to [offset, end) of the underlying
// seeker, where end is the smaller of offset+maxSize and end-of-file.
// Reads never return bytes past the window, regardless of the buffer size.
type Window struct {
	r    io.ReadSeeker
	pos  int64
	end  int64
	size int64
}

// Open seeks r to offset and returns a Window over at most maxSize bytes.
// The underlying seeker's position is owned by the Window until it is
// fully consumed; interleaved reads through r corrupt the part payload.
func Open(r io.ReadSeeker, offset, maxSize int64) (*Window, error) {
	fileEnd, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("chunk: seeking to end: %w", err)
	}

	end := offset + maxSize
	if fileEnd < end {
		end = fileEnd
	}

	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("chunk: seeking to offset %d: %w", offset, err)
	}

	return &Window{r: r, pos: offset, end: end, size: end - offset}, nil
}

// Size returns the total number of bytes the window spans. It is fixed at
// Open time and does not shrink as the window is consumed.
func (w *Window) Size() int64 {
	return w.size
}

// Read fills p with up to min(len(p), remaining) bytes, returning io.EOF
// once the window is exhausted.
func (w *Window) Read(p []byte) (int, error) {
	left := w.end - w.pos
	if left <= 0 {
		return 0, io.EOF
	}

	if int64(len(p)) > left {
		p = p[:left]
	}

	n, err := w.r.Read(p)
	w.pos += int64(n)

	return n, err
}
