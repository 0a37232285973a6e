// Package recognition provides face detection and signature extraction.
// It uses dlib/go-face for face detection, landmark extraction, and embedding generation.
package recognition

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/Kagami/go-face"
	"github.com/MrCodeEU/posegate/pkg/camera"
	"github.com/MrCodeEU/posegate/pkg/capture"
	"github.com/MrCodeEU/posegate/pkg/logging"
	"github.com/MrCodeEU/posegate/pkg/pose"
	"github.com/MrCodeEU/posegate/pkg/signature"
)

// Model files expected in the model directory.
const (
	ShapePredictorModel = "shape_predictor_5_face_landmarks.dat"
	ResNetModel         = "dlib_face_recognition_resnet_model_v1.dat"
	CNNDetectorModel    = "mmod_human_face_detector.dat"
)

// ErrMultipleFaces is returned when multiple faces are detected.
var ErrMultipleFaces = errors.New("multiple faces detected")

// ErrModelNotLoaded is returned when models are not loaded.
var ErrModelNotLoaded = errors.New("recognition models not loaded")

// ErrUnsupportedFormat is returned for frames that are not JPEG encoded.
var ErrUnsupportedFormat = errors.New("unsupported frame format")

// FaceEngine is the part of go-face the recognizer uses.
type FaceEngine interface {
	Recognize(imgData []byte) ([]face.Face, error)
	Close()
}

func newDlibEngine(modelPath string) (FaceEngine, error) {
	return face.NewRecognizer(modelPath)
}

// Recognizer wraps a dlib engine. It extracts signatures for enrollment and
// login, and also serves as a capture.Detector by mapping the dlib
// five-point shape onto pose landmarks.
type Recognizer struct {
	mu        sync.RWMutex
	engine    FaceEngine
	factory   func(modelPath string) (FaceEngine, error)
	modelPath string
}

// NewRecognizer creates a new Recognizer instance.
func NewRecognizer() *Recognizer {
	return &Recognizer{factory: newDlibEngine}
}

// LoadModels loads the dlib face recognition models from the specified path.
// The path should contain:
// - shape_predictor_5_face_landmarks.dat
// - dlib_face_recognition_resnet_model_v1.dat
func (r *Recognizer) LoadModels(modelPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.engine != nil {
		return nil
	}

	logging.Debugf("Loading face recognition models from: %s", modelPath)

	engine, err := r.factory(modelPath)
	if err != nil {
		return fmt.Errorf("failed to load models: %w", err)
	}

	r.engine = engine
	r.modelPath = modelPath
	return nil
}

// IsLoaded returns true if models are loaded.
func (r *Recognizer) IsLoaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.engine != nil
}

// Close releases the recognizer resources.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.engine != nil {
		r.engine.Close()
		r.engine = nil
	}
	return nil
}

// detect runs the engine on a JPEG frame.
func (r *Recognizer) detect(frame camera.Frame) ([]face.Face, error) {
	if frame.Format != "" && frame.Format != "JPEG" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, frame.Format)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.engine == nil {
		return nil, ErrModelNotLoaded
	}

	faces, err := r.engine.Recognize(frame.Data)
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}
	return faces, nil
}

// Extract implements signature.Extractor. The frame must contain exactly
// one face.
func (r *Recognizer) Extract(frame camera.Frame) (signature.Signature, error) {
	faces, err := r.detect(frame)
	if err != nil {
		return nil, err
	}

	switch len(faces) {
	case 0:
		return nil, signature.ErrNoSignature
	case 1:
	default:
		return nil, ErrMultipleFaces
	}

	desc := faces[0].Descriptor
	sig := make(signature.Signature, len(desc))
	copy(sig, desc[:])
	return sig, nil
}

// Detect implements capture.Detector. Frames with no face, or with several,
// yield a nil set.
func (r *Recognizer) Detect(frame camera.Frame) (pose.LandmarkSet, error) {
	faces, err := r.detect(frame)
	if err != nil {
		return nil, err
	}
	if len(faces) != 1 {
		if len(faces) > 1 {
			logging.Debugf("Ignoring frame with %d faces", len(faces))
		}
		return nil, nil
	}
	return ShapeLandmarks(faces[0], frame.Width, frame.Height), nil
}

// ShapeLandmarks converts a dlib five-point shape into the landmarks used
// for orientation. dlib orders the points as the subject's left eye (outer,
// inner), right eye (outer, inner), then the base of the nose. dlib has no
// chin point, so the bottom centre of the face box stands in for it.
// Coordinates are normalized when the frame size is known.
func ShapeLandmarks(f face.Face, width, height int) pose.LandmarkSet {
	if len(f.Shapes) < 5 {
		return nil
	}

	sx, sy := 1.0, 1.0
	if width > 0 && height > 0 {
		sx, sy = 1/float64(width), 1/float64(height)
	}
	pt := func(p image.Point) pose.Point3D {
		return pose.Point3D{X: float64(p.X) * sx, Y: float64(p.Y) * sy}
	}

	chin := image.Pt((f.Rectangle.Min.X+f.Rectangle.Max.X)/2, f.Rectangle.Max.Y)
	return pose.LandmarkSet{
		pose.LeftEyeOuter:  pt(f.Shapes[0]),
		pose.RightEyeOuter: pt(f.Shapes[2]),
		pose.NoseTip:       pt(f.Shapes[4]),
		pose.Chin:          pt(chin),
	}
}

// Detector returns a capture.Detector backed by r. Closing it leaves the
// models loaded, so one recognizer can serve every capture session.
func (r *Recognizer) Detector() capture.Detector {
	return sessionDetector{r}
}

type sessionDetector struct {
	r *Recognizer
}

func (d sessionDetector) Detect(frame camera.Frame) (pose.LandmarkSet, error) {
	return d.r.Detect(frame)
}

func (d sessionDetector) Close() error {
	return nil
}
