package capture

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrCodeEU/posegate/pkg/pose"
)

// ErrTimeout matches any *PoseTimeoutError via errors.Is.
var ErrTimeout = errors.New("pose capture timed out")

// ErrBusy is returned when a loop is asked to capture while it already holds
// the video source.
var ErrBusy = errors.New("capture already in progress")

// PoseTimeoutError is returned when no frame matched the target pose before
// the deadline.
type PoseTimeoutError struct {
	Pose    pose.Pose
	Timeout time.Duration
}

func (e *PoseTimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for pose '%s'", e.Timeout, e.Pose)
}

// Is lets errors.Is(err, ErrTimeout) match.
func (e *PoseTimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// DeviceError is returned when the video source or landmark detector cannot
// be opened.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("capture device error: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *DeviceError) Unwrap() error {
	return e.Err
}
