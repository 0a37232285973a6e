// Package pose turns facial landmarks into head orientation and decides
// whether an orientation satisfies a requested pose.
// Everything here is pure numeric logic with no I/O.
package pose

import (
	"fmt"
	"math"
	"strings"
)

// Pose identifies a head orientation the user is asked to adopt.
type Pose string

const (
	Front Pose = "front"
	Left  Pose = "left"
	Right Pose = "right"
	Up    Pose = "up"
	Down  Pose = "down"
)

// requiredPoses is the enrollment order.
var requiredPoses = []Pose{Front, Left, Right, Up, Down}

// RequiredPoses returns the poses captured during enrollment, in capture order.
func RequiredPoses() []Pose {
	out := make([]Pose, len(requiredPoses))
	copy(out, requiredPoses)
	return out
}

// Valid reports whether p belongs to the closed pose set.
func (p Pose) Valid() bool {
	for _, r := range requiredPoses {
		if p == r {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer.
func (p Pose) String() string {
	return string(p)
}

// Instruction returns the prompt shown to the user for this pose.
func (p Pose) Instruction() string {
	switch p {
	case Front:
		return "Look directly at the camera"
	case Left:
		return "Turn your head to the left"
	case Right:
		return "Turn your head to the right"
	case Up:
		return "Tilt your head up"
	case Down:
		return "Tilt your head down"
	}
	return "Unknown pose"
}

// ParsePose converts a name into a Pose. "face" is accepted as an alias of
// front, which is how older records name it.
func ParsePose(s string) (Pose, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "face" {
		return Front, nil
	}
	p := Pose(name)
	if !p.Valid() {
		return "", fmt.Errorf("unknown pose %q", s)
	}
	return p, nil
}

// Thresholds are the angular limits, in degrees, used by Matches.
type Thresholds struct {
	Yaw   float64 `yaml:"yaw"`
	Pitch float64 `yaml:"pitch"`
}

// DefaultThresholds returns 12 degrees on both axes.
func DefaultThresholds() Thresholds {
	return Thresholds{Yaw: 12, Pitch: 12}
}

// Matches reports whether the orientation satisfies the target pose.
// All comparisons are strict, so a value exactly on a threshold never matches.
// Only front constrains both axes; the other poses test a single axis.
func Matches(target Pose, o Orientation, th Thresholds) bool {
	switch target {
	case Front:
		return math.Abs(o.Yaw) < th.Yaw && math.Abs(o.Pitch) < th.Pitch
	case Left:
		return o.Yaw > th.Yaw
	case Right:
		return o.Yaw < -th.Yaw
	case Up:
		return o.Pitch < -th.Pitch
	case Down:
		return o.Pitch > th.Pitch
	default:
		return false
	}
}
