package pose

import (
	"errors"
	"fmt"
	"math"
)

// Landmark indices, MediaPipe face-mesh numbering.
const (
	NoseTip       = 1
	RightEyeOuter = 33
	Chin          = 152
	LeftEyeOuter  = 263
)

// requiredLandmarks are the indices ComputeOrientation reads.
var requiredLandmarks = []int{LeftEyeOuter, RightEyeOuter, NoseTip, Chin}

// ErrMissingLandmark is returned when a required landmark is absent.
var ErrMissingLandmark = errors.New("missing landmark")

// Point3D is a landmark position. X and Y are normalized image coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func midpoint(a, b Point3D) Point3D {
	return Point3D{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2, Z: (a.Z + b.Z) / 2}
}

// LandmarkSet maps landmark indices to positions for a single frame.
type LandmarkSet map[int]Point3D

// Orientation is head rotation in degrees.
// Positive yaw means the subject turned to their left, positive pitch means
// the head tilted down.
type Orientation struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
}

// String implements fmt.Stringer.
func (o Orientation) String() string {
	return fmt.Sprintf("yaw=%.1f pitch=%.1f", o.Yaw, o.Pitch)
}

// ComputeOrientation derives yaw and pitch from eye corners, nose tip and chin.
//
// Yaw is the nose offset from the eye centre measured against the horizontal
// eye span. Pitch is the nose offset from the eye/chin midpoint measured
// against the vertical span between the eyes (right eye minus left eye).
// With perfectly level eyes that span is zero and pitch collapses to 0 or
// ±90 depending on which side of the midpoint the nose sits.
func ComputeOrientation(lm LandmarkSet) (Orientation, error) {
	for _, idx := range requiredLandmarks {
		if _, ok := lm[idx]; !ok {
			return Orientation{}, fmt.Errorf("%w: index %d", ErrMissingLandmark, idx)
		}
	}

	leftEye := lm[LeftEyeOuter]
	rightEye := lm[RightEyeOuter]
	nose := lm[NoseTip]
	chin := lm[Chin]

	eyeCenter := midpoint(leftEye, rightEye)
	span := leftEye.X - rightEye.X
	yaw := math.Atan2(nose.X-eyeCenter.X, span)

	midFace := midpoint(eyeCenter, chin)
	eyeDrop := rightEye.Y - leftEye.Y
	pitch := math.Atan2(nose.Y-midFace.Y, eyeDrop)

	return Orientation{
		Yaw:   degrees(yaw),
		Pitch: degrees(pitch),
	}, nil
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
