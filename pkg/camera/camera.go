// Package camera defines the frame type and video source contract used by
// the capture loop. Hardware access lives in the opencv subpackage.
package camera

import (
	"errors"
	"time"
)

// Frame represents a single camera frame.
type Frame struct {
	Data      []byte
	Width     int
	Height    int
	Format    string // "JPEG", "RGB", "GRAY"
	Timestamp time.Time
}

// Clone returns a deep copy of the frame. Later reads from the source never
// alter the copy.
func (f Frame) Clone() Frame {
	out := f
	if f.Data != nil {
		out.Data = make([]byte, len(f.Data))
		copy(out.Data, f.Data)
	}
	return out
}

// Empty reports whether the frame carries no pixel data.
func (f Frame) Empty() bool {
	return len(f.Data) == 0
}

// Source is an open video device.
type Source interface {
	// Read returns the next frame. An error means this frame was dropped;
	// the caller may keep reading.
	Read() (Frame, error)
	Close() error
}

// ErrCameraNotFound is returned when the camera device is not found.
var ErrCameraNotFound = errors.New("camera device not found")

// ErrCameraNotOpen is returned when trying to capture from a closed camera.
var ErrCameraNotOpen = errors.New("camera not open")

// ErrNoFrame is returned when no frame could be captured.
var ErrNoFrame = errors.New("failed to capture frame")
