package mjpeg

import (
	"bytes"
	"io"
)

const (
	// DefaultChunkSize matches the chunk size the camera clients read with.
	DefaultChunkSize = 1024
	// DefaultMaxGarbage bounds how many bytes without any start marker are
	// kept around before they are trimmed.
	DefaultMaxGarbage = 4 * 1024 * 1024
)

// Reader pulls chunks from an underlying stream and hands out complete
// frames one at a time, in stream order.
type Reader struct {
	src        io.Reader
	chunk      []byte
	buf        []byte
	pending    [][]byte
	maxGarbage int
	bytesRead  uint64
	err        error
}

type Option func(*Reader)

// WithChunkSize sets how many bytes are requested per read.
func WithChunkSize(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.chunk = make([]byte, n)
		}
	}
}

// WithMaxGarbage sets the trimming threshold for marker-less bytes.
// Zero disables trimming.
func WithMaxGarbage(n int) Option {
	return func(r *Reader) {
		r.maxGarbage = n
	}
}

func NewReader(src io.Reader, opts ...Option) *Reader {
	r := &Reader{
		src:        src,
		chunk:      make([]byte, DefaultChunkSize),
		maxGarbage: DefaultMaxGarbage,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Next returns the next complete frame. It blocks on the underlying reader
// until a frame is available. At the end of the stream it returns io.EOF;
// a trailing partial frame is never returned.
func (r *Reader) Next() ([]byte, error) {
	for len(r.pending) == 0 {
		if r.err != nil {
			return nil, r.err
		}

		n, err := r.src.Read(r.chunk)
		if n > 0 {
			r.bytesRead += uint64(n)
			r.feed(r.chunk[:n])
		}
		if err != nil {
			r.err = err
		}
	}

	frame := r.pending[0]
	r.pending[0] = nil
	r.pending = r.pending[1:]
	return frame, nil
}

// BytesRead reports how many bytes were consumed from the stream so far.
func (r *Reader) BytesRead() uint64 {
	return r.bytesRead
}

// Buffered reports how many bytes are waiting for the rest of a frame.
func (r *Reader) Buffered() int {
	return len(r.buf)
}

func (r *Reader) feed(chunk []byte) {
	r.buf = append(r.buf, chunk...)

	frames, rest := Extract(r.buf)
	if len(frames) > 0 {
		r.pending = append(r.pending, frames...)
		// frames alias the old backing array, so the remainder moves out
		r.buf = append([]byte(nil), rest...)
	}

	// Bytes ahead of the first start marker are dropped with the next frame
	// anyway. The last byte stays: it may be the first half of a marker.
	if r.maxGarbage > 0 && len(r.buf) > r.maxGarbage && !bytes.Contains(r.buf, StartMarker) {
		r.buf = append([]byte(nil), r.buf[len(r.buf)-1:]...)
	}
}
