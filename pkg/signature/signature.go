// Package signature holds the face signature type and the distance-based
// comparison used at login.
package signature

import (
	"errors"
	"math"

	"github.com/MrCodeEU/posegate/pkg/camera"
)

// Size is the length of signatures produced by the dlib extractor.
const Size = 128

// DefaultTolerance is the maximum distance at which two signatures are
// considered the same identity.
const DefaultTolerance = 0.5

// Signature is a numeric face descriptor.
type Signature []float32

// ErrNoSignature is returned when no signature can be derived from a frame.
var ErrNoSignature = errors.New("no face signature in frame")

// Extractor derives a signature from a captured frame.
type Extractor interface {
	Extract(frame camera.Frame) (Signature, error)
}

// Comparer decides whether a probe signature matches any known signature.
type Comparer interface {
	Compare(probe Signature, known []Signature, tolerance float64) bool
}

// EuclideanDistance calculates the Euclidean distance between two signatures.
// Signatures of different length are infinitely far apart.
func EuclideanDistance(a, b Signature) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// FindBestMatch returns the index of the closest signature in gallery and
// its distance. An empty gallery yields -1 and +Inf.
func FindBestMatch(probe Signature, gallery []Signature) (int, float64) {
	bestIdx := -1
	bestDist := math.Inf(1)

	for i, sig := range gallery {
		if dist := EuclideanDistance(probe, sig); dist < bestDist {
			bestDist = dist
			bestIdx = i
		}
	}
	return bestIdx, bestDist
}

// DistanceComparer matches when at least one known signature lies within
// tolerance of the probe.
type DistanceComparer struct{}

// Compare implements Comparer.
func (DistanceComparer) Compare(probe Signature, known []Signature, tolerance float64) bool {
	for _, sig := range known {
		if EuclideanDistance(probe, sig) <= tolerance {
			return true
		}
	}
	return false
}

// Clone returns a copy of the signature.
func (s Signature) Clone() Signature {
	if s == nil {
		return nil
	}
	out := make(Signature, len(s))
	copy(out, s)
	return out
}
