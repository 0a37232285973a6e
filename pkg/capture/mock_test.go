package capture

import (
	"math"
	"time"

	"github.com/MrCodeEU/posegate/pkg/camera"
	"github.com/MrCodeEU/posegate/pkg/pose"
)

// fakeClock is advanced explicitly by the fakes below.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// step is one scripted camera frame.
type step struct {
	dropped   bool
	landmarks pose.LandmarkSet
}

func face(yaw, pitch float64) step {
	const span, eyeDrop = 0.2, 0.2
	dx := span * math.Tan(yaw*math.Pi/180)
	dy := eyeDrop * math.Tan(pitch*math.Pi/180)
	return step{landmarks: pose.LandmarkSet{
		pose.LeftEyeOuter:  {X: 0.6, Y: 0.3},
		pose.RightEyeOuter: {X: 0.4, Y: 0.5},
		pose.Chin:          {X: 0.5, Y: 0.8},
		pose.NoseTip:       {X: 0.5 + dx, Y: 0.6 + dy},
	}}
}

func noFace() step  { return step{} }
func dropped() step { return step{dropped: true} }

// scriptedCamera plays back steps, one per Read, advancing the clock by
// interval per frame. Once the script is exhausted it keeps returning
// frames without a face. It serves as both source and detector.
type scriptedCamera struct {
	clock    *fakeClock
	interval time.Duration
	steps    []step
	pos      int
	current  step
	buf      []byte

	detectDelay time.Duration
	DetectFunc  func(frame camera.Frame) (pose.LandmarkSet, error)

	reads          int
	sourceClosed   int
	detectorClosed int
}

func newScriptedCamera(clock *fakeClock, steps ...step) *scriptedCamera {
	return &scriptedCamera{
		clock:    clock,
		interval: time.Second,
		steps:    steps,
		buf:      make([]byte, 16),
	}
}

func (s *scriptedCamera) Read() (camera.Frame, error) {
	s.clock.Advance(s.interval)
	s.reads++

	s.current = noFace()
	if s.pos < len(s.steps) {
		s.current = s.steps[s.pos]
		s.pos++
	}
	if s.current.dropped {
		return camera.Frame{}, camera.ErrNoFrame
	}

	// The same buffer is reused for every frame, like a real driver.
	for i := range s.buf {
		s.buf[i] = byte(s.reads)
	}
	return camera.Frame{Data: s.buf, Width: 4, Height: 4, Format: "GRAY", Timestamp: s.clock.Now()}, nil
}

func (s *scriptedCamera) Detect(frame camera.Frame) (pose.LandmarkSet, error) {
	s.clock.Advance(s.detectDelay)
	if s.DetectFunc != nil {
		return s.DetectFunc(frame)
	}
	return s.current.landmarks, nil
}

// sourceHandle and detectorHandle let the two halves count Close calls
// separately.
type sourceHandle struct{ *scriptedCamera }

func (h sourceHandle) Close() error {
	h.sourceClosed++
	return nil
}

type detectorHandle struct{ *scriptedCamera }

func (h detectorHandle) Close() error {
	h.detectorClosed++
	return nil
}

// MockDevices implements Devices for testing.
type MockDevices struct {
	OpenSourceFunc   func() (camera.Source, error)
	OpenDetectorFunc func() (Detector, error)
}

func (m *MockDevices) OpenSource() (camera.Source, error) {
	if m.OpenSourceFunc != nil {
		return m.OpenSourceFunc()
	}
	return nil, camera.ErrCameraNotFound
}

func (m *MockDevices) OpenDetector() (Detector, error) {
	if m.OpenDetectorFunc != nil {
		return m.OpenDetectorFunc()
	}
	return nil, camera.ErrCameraNotFound
}

func devicesFor(cam *scriptedCamera) *MockDevices {
	return &MockDevices{
		OpenSourceFunc:   func() (camera.Source, error) { return sourceHandle{cam}, nil },
		OpenDetectorFunc: func() (Detector, error) { return detectorHandle{cam}, nil },
	}
}

// MockDisplay implements Display for testing.
type MockDisplay struct {
	ShowFunc func(frame camera.Frame, status Status) bool
	shown    []Status
	closed   int
}

func (m *MockDisplay) Show(frame camera.Frame, status Status) bool {
	m.shown = append(m.shown, status)
	if m.ShowFunc != nil {
		return m.ShowFunc(frame, status)
	}
	return false
}

func (m *MockDisplay) Close() error {
	m.closed++
	return nil
}
