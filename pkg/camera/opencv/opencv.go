// Package opencv provides the gocv-backed video source and the optional
// live preview window.
package opencv

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"sync"
	"time"

	"github.com/MrCodeEU/posegate/pkg/camera"
	"github.com/MrCodeEU/posegate/pkg/capture"
	"github.com/MrCodeEU/posegate/pkg/logging"
	"gocv.io/x/gocv"
)

// Source reads frames from a V4L2/OpenCV video device and hands them out as
// JPEG-encoded camera.Frame values.
type Source struct {
	mu     sync.Mutex
	vc     *gocv.VideoCapture
	mat    gocv.Mat
	device string
	closed bool
}

// Open opens the video device. device may be a numeric index ("0") or a
// path ("/dev/video0").
func Open(device string, width, height int) (*Source, error) {
	var id interface{} = device
	if n, err := strconv.Atoi(device); err == nil {
		id = n
	}

	vc, err := gocv.OpenVideoCapture(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", camera.ErrCameraNotFound, device, err)
	}
	if !vc.IsOpened() {
		_ = vc.Close()
		return nil, fmt.Errorf("%w: %s", camera.ErrCameraNotFound, device)
	}

	if width > 0 && height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}

	logging.Component("camera").Debugf("Opened video device %s", device)
	return &Source{
		vc:     vc,
		mat:    gocv.NewMat(),
		device: device,
	}, nil
}

// Read grabs the next frame and encodes it as JPEG.
func (s *Source) Read() (camera.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return camera.Frame{}, camera.ErrCameraNotOpen
	}
	if ok := s.vc.Read(&s.mat); !ok || s.mat.Empty() {
		return camera.Frame{}, camera.ErrNoFrame
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, s.mat)
	if err != nil {
		return camera.Frame{}, fmt.Errorf("%w: %v", camera.ErrNoFrame, err)
	}
	defer buf.Close()

	return jpegFrame(buf.GetBytes(), s.mat.Cols(), s.mat.Rows(), time.Now()), nil
}

// jpegFrame builds a frame that owns its bytes. The encoded buffer lives in
// native memory that is freed when the buffer is closed, so data is copied.
func jpegFrame(data []byte, width, height int, ts time.Time) camera.Frame {
	return camera.Frame{
		Data:      append([]byte(nil), data...),
		Width:     width,
		Height:    height,
		Format:    "JPEG",
		Timestamp: ts,
	}
}

// Close releases the device. Calling it more than once is a no-op.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	_ = s.mat.Close()
	logging.Component("camera").Debugf("Closed video device %s", s.device)
	return s.vc.Close()
}

// Devices opens the configured camera for each capture session.
type Devices struct {
	Device        string
	Width, Height int
	OpenDetectorF func() (capture.Detector, error)
}

// OpenSource implements capture.Devices.
func (d Devices) OpenSource() (camera.Source, error) {
	return Open(d.Device, d.Width, d.Height)
}

// OpenDetector implements capture.Devices.
func (d Devices) OpenDetector() (capture.Detector, error) {
	if d.OpenDetectorF == nil {
		return nil, fmt.Errorf("no landmark detector configured")
	}
	return d.OpenDetectorF()
}

// Window is the live preview. It draws the target pose and the current
// orientation over each frame and reports a press of 'q' as an abort.
type Window struct {
	win *gocv.Window
}

// NewWindow opens a preview window with the given title.
func NewWindow(title string) *Window {
	return &Window{win: gocv.NewWindow(title)}
}

// Show implements capture.Display.
func (w *Window) Show(frame camera.Frame, status capture.Status) bool {
	img, err := gocv.IMDecode(frame.Data, gocv.IMReadColor)
	if err != nil {
		return w.pollQuit()
	}
	defer img.Close()

	text := fmt.Sprintf("Pose: target=%s", status.Target)
	if status.FaceDetected {
		text = fmt.Sprintf("Pose: target=%s yaw=%.1f pitch=%.1f",
			status.Target, status.Orientation.Yaw, status.Orientation.Pitch)
	}
	gocv.PutText(&img, text, image.Pt(10, 30), gocv.FontHersheySimplex, 0.6, color.RGBA{G: 255}, 2)
	w.win.IMShow(img)

	return w.pollQuit()
}

func (w *Window) pollQuit() bool {
	return w.win.WaitKey(1)&0xFF == 'q'
}

// Close implements capture.Display.
func (w *Window) Close() error {
	return w.win.Close()
}
