// Package mjpeg reassembles JPEG frames from a continuous MJPEG byte
// stream such as the one served by an ESP32-CAM `/stream` endpoint.
package mjpeg

import "bytes"

var (
	// StartMarker opens a JPEG image (SOI).
	StartMarker = []byte{0xff, 0xd8}
	// EndMarker closes a JPEG image (EOI).
	EndMarker = []byte{0xff, 0xd9}
)

// Extract slices every complete frame out of buf and returns them in
// stream order together with the bytes that still have to wait for more
// input.
//
// A frame runs from the first start marker in the buffer through the
// first end marker that follows it, both inclusive. Everything before the
// start marker is dropped with the frame. When a second start marker shows
// up before the end marker the frame still anchors on the first one, so a
// corrupted stream can yield a frame holding more than one image.
//
// Returned frames alias buf. Callers that keep appending to the returned
// remainder must copy it first if they need the frames to stay intact.
func Extract(buf []byte) (frames [][]byte, rest []byte) {
	rest = buf
	for {
		start := bytes.Index(rest, StartMarker)
		if start < 0 {
			return frames, rest
		}

		end := bytes.Index(rest[start+len(StartMarker):], EndMarker)
		if end < 0 {
			return frames, rest
		}
		end += start + len(StartMarker) + len(EndMarker)

		frames = append(frames, rest[start:end])
		rest = rest[end:]
	}
}
