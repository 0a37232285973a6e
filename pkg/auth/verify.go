package auth

import (
	"context"
	"math"

	"github.com/MrCodeEU/posegate/pkg/logging"
	"github.com/MrCodeEU/posegate/pkg/pose"
	"github.com/MrCodeEU/posegate/pkg/signature"
	"github.com/MrCodeEU/posegate/pkg/storage"
)

// Verification is the outcome of a face check.
type Verification struct {
	Matched  bool
	Distance float64 // to the closest stored signature
}

// Verifier captures a frontal face and compares it with a stored record.
type Verifier struct {
	capturer  Capturer
	extractor signature.Extractor
	comparer  signature.Comparer
	tolerance float64
	progress  ProgressFunc
}

// NewVerifier creates a Verifier. A zero tolerance accepts only identical
// signatures; a negative one selects signature.DefaultTolerance.
func NewVerifier(c Capturer, ex signature.Extractor, cmp signature.Comparer, tolerance float64) *Verifier {
	if tolerance < 0 {
		tolerance = signature.DefaultTolerance
	}
	return &Verifier{
		capturer:  c,
		extractor: ex,
		comparer:  cmp,
		tolerance: tolerance,
	}
}

// SetProgress registers a callback run before the capture starts.
func (v *Verifier) SetProgress(fn ProgressFunc) {
	v.progress = fn
}

// Tolerance returns the match tolerance.
func (v *Verifier) Tolerance() float64 {
	return v.tolerance
}

// Verify captures the front pose and matches it against every signature in
// rec. A record without signatures fails before any capture starts.
func (v *Verifier) Verify(ctx context.Context, rec *storage.UserRecord) (Verification, error) {
	result := Verification{Distance: math.Inf(1)}

	var known []signature.Signature
	if rec != nil {
		known = rec.Signatures()
	}
	if len(known) == 0 {
		return result, ErrEmptyEnrollment
	}

	if v.progress != nil {
		v.progress(1, 1, pose.Front)
	}
	probe, err := captureSignature(ctx, v.capturer, v.extractor, pose.Front)
	if err != nil {
		return result, err
	}

	_, result.Distance = signature.FindBestMatch(probe, known)
	result.Matched = v.comparer.Compare(probe, known, v.tolerance)

	logging.Component("verify").WithFields(logging.Fields{
		"email":     rec.Email,
		"distance":  result.Distance,
		"tolerance": v.tolerance,
		"matched":   result.Matched,
	}).Debug("Face compared")
	return result, nil
}
