// Package capture drives the live video feed until a frame shows the head in
// a requested pose, the session times out, or the user aborts.
package capture

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/MrCodeEU/posegate/pkg/camera"
	"github.com/MrCodeEU/posegate/pkg/logging"
	"github.com/MrCodeEU/posegate/pkg/pose"
)

// DefaultTimeout is how long a session waits for the target pose.
const DefaultTimeout = 40 * time.Second

// Detector finds facial landmarks in a frame. A nil set with a nil error
// means no face was found.
type Detector interface {
	Detect(frame camera.Frame) (pose.LandmarkSet, error)
	Close() error
}

// Devices opens the per-session resources.
type Devices interface {
	OpenSource() (camera.Source, error)
	OpenDetector() (Detector, error)
}

// Display renders live feedback. Show returns true when the user asked to
// quit.
type Display interface {
	Show(frame camera.Frame, status Status) bool
	Close() error
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Status describes the current iteration, for display.
type Status struct {
	Target       pose.Pose
	State        State
	FaceDetected bool
	Orientation  pose.Orientation
	Elapsed      time.Duration
}

// Result is the outcome of a capture session that did not fail.
// Frame is nil unless State is Matched.
type Result struct {
	Target      pose.Pose
	State       State
	Frame       *camera.Frame
	Orientation pose.Orientation
	Elapsed     time.Duration
	Frames      int
}

// Options tunes a capture loop.
type Options struct {
	Timeout    time.Duration
	Thresholds pose.Thresholds
}

// DefaultOptions returns a 40 second timeout and 12 degree thresholds.
func DefaultOptions() Options {
	return Options{
		Timeout:    DefaultTimeout,
		Thresholds: pose.DefaultThresholds(),
	}
}

// Loop runs capture sessions. A Loop holds the video source for the
// duration of one Capture call and rejects overlapping calls.
type Loop struct {
	devices     Devices
	openDisplay func() (Display, error)
	clock       Clock
	opts        Options
	busy        atomic.Bool
}

// NewLoop creates a headless capture loop.
func NewLoop(devices Devices, opts Options) *Loop {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Thresholds.Yaw <= 0 || opts.Thresholds.Pitch <= 0 {
		opts.Thresholds = pose.DefaultThresholds()
	}
	return &Loop{
		devices: devices,
		clock:   systemClock{},
		opts:    opts,
	}
}

// SetDisplay enables live feedback. open is called once per session.
func (l *Loop) SetDisplay(open func() (Display, error)) {
	l.openDisplay = open
}

// SetClock replaces the wall clock, for simulated time.
func (l *Loop) SetClock(c Clock) {
	l.clock = c
}

// Options returns the loop configuration.
func (l *Loop) Options() Options {
	return l.opts
}

// session holds the resources acquired for one Capture call.
type session struct {
	source   camera.Source
	detector Detector
	display  Display
}

// release closes everything that was opened, in reverse order.
func (s *session) release() {
	log := logging.Component("capture")
	if s.display != nil {
		if err := s.display.Close(); err != nil {
			log.WithError(err).Debug("Failed to close display")
		}
	}
	if s.detector != nil {
		if err := s.detector.Close(); err != nil {
			log.WithError(err).Warn("Failed to close landmark detector")
		}
	}
	if s.source != nil {
		if err := s.source.Close(); err != nil {
			log.WithError(err).Warn("Failed to close video source")
		}
	}
}

func (s *session) show(frame camera.Frame, status Status) bool {
	if s.display == nil {
		return false
	}
	return s.display.Show(frame, status)
}

// Capture waits for a frame showing the target pose.
//
// On a match it returns a Result in state Matched holding a private copy of
// the frame. A user abort, via the display or ctx, returns state Aborted with
// no frame and a nil error. Running past the timeout returns a
// *PoseTimeoutError. Resources are released before Capture returns,
// whatever the outcome.
func (l *Loop) Capture(ctx context.Context, target pose.Pose) (Result, error) {
	if !l.busy.CompareAndSwap(false, true) {
		return Result{Target: target}, ErrBusy
	}
	defer l.busy.Store(false)

	log := logging.Component("capture").WithField("pose", target)
	start := l.clock.Now()
	res := Result{Target: target, State: Waiting}

	sess := &session{}
	defer sess.release()

	var err error
	if sess.source, err = l.devices.OpenSource(); err != nil {
		return res, &DeviceError{Op: "open video source", Err: err}
	}
	if sess.detector, err = l.devices.OpenDetector(); err != nil {
		return res, &DeviceError{Op: "open landmark detector", Err: err}
	}
	if l.openDisplay != nil {
		if sess.display, err = l.openDisplay(); err != nil {
			log.WithError(err).Warn("Live preview unavailable")
			sess.display = nil
		}
	}

	log.Debugf("Capture started (timeout %s)", l.opts.Timeout)

	for {
		res.Elapsed = l.clock.Now().Sub(start)
		if res.Elapsed > l.opts.Timeout {
			res.State = Next(res.State, Deadline)
			log.WithField("frames", res.Frames).Info("Pose capture timed out")
			return res, &PoseTimeoutError{Pose: target, Timeout: l.opts.Timeout}
		}

		frame, err := sess.source.Read()
		if err != nil {
			res.State = Next(res.State, FrameDropped)
			log.WithError(err).Debug("Frame dropped")
			if abortRequested(ctx, sess, frame, Status{Target: target, State: res.State, Elapsed: res.Elapsed}) {
				return abort(res), nil
			}
			continue
		}
		res.Frames++

		landmarks, err := sess.detector.Detect(frame)
		if err != nil {
			return res, fmt.Errorf("landmark detection failed: %w", err)
		}

		status := Status{Target: target, Elapsed: res.Elapsed}
		if landmarks == nil {
			res.State = Next(res.State, NoFace)
		} else if o, err := pose.ComputeOrientation(landmarks); err != nil {
			res.State = Next(res.State, NoFace)
			log.WithError(err).Debug("Incomplete landmarks")
		} else {
			status.FaceDetected = true
			status.Orientation = o

			if pose.Matches(target, o, l.opts.Thresholds) {
				res.Elapsed = l.clock.Now().Sub(start)
				if res.Elapsed > l.opts.Timeout {
					res.State = Next(res.State, Deadline)
					return res, &PoseTimeoutError{Pose: target, Timeout: l.opts.Timeout}
				}

				res.State = Next(res.State, FaceMatch)
				frozen := frame.Clone()
				res.Frame = &frozen
				res.Orientation = o

				status.State = res.State
				sess.show(frame, status)

				log.WithFields(logging.Fields{
					"yaw":    fmt.Sprintf("%.1f", o.Yaw),
					"pitch":  fmt.Sprintf("%.1f", o.Pitch),
					"frames": res.Frames,
				}).Infof("Pose matched after %s", res.Elapsed.Round(time.Millisecond))
				return res, nil
			}
			res.State = Next(res.State, FaceMismatch)
			log.Debugf("Pose not matched: %s", o)
		}

		status.State = res.State
		if abortRequested(ctx, sess, frame, status) {
			return abort(res), nil
		}
	}
}

func abortRequested(ctx context.Context, sess *session, frame camera.Frame, status Status) bool {
	quit := false
	if !frame.Empty() {
		quit = sess.show(frame, status)
	}
	return quit || ctx.Err() != nil
}

func abort(res Result) Result {
	res.State = Next(res.State, Abort)
	res.Frame = nil
	logging.Component("capture").WithField("pose", res.Target).Info("Pose capture aborted by user")
	return res
}
