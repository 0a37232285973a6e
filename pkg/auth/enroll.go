// Package auth implements enrollment and verification on top of the capture
// loop, and the register and login flows that drive them.
package auth

import (
	"context"
	"fmt"

	"github.com/MrCodeEU/posegate/pkg/capture"
	"github.com/MrCodeEU/posegate/pkg/logging"
	"github.com/MrCodeEU/posegate/pkg/pose"
	"github.com/MrCodeEU/posegate/pkg/signature"
	"github.com/MrCodeEU/posegate/pkg/storage"
)

// Capturer runs one capture session for a target pose.
type Capturer interface {
	Capture(ctx context.Context, target pose.Pose) (capture.Result, error)
}

// Identity is the account data collected at registration.
type Identity struct {
	FirstName string
	LastName  string
	Email     string
}

// captureSignature captures target and extracts its signature.
func captureSignature(ctx context.Context, c Capturer, ex signature.Extractor, target pose.Pose) (signature.Signature, error) {
	res, err := c.Capture(ctx, target)
	if err != nil {
		return nil, &CaptureFailedError{Pose: target, Err: err}
	}
	if res.State == capture.Aborted {
		return nil, &CaptureFailedError{Pose: target, Err: ErrAborted}
	}
	if res.State != capture.Matched || res.Frame == nil {
		return nil, &CaptureFailedError{Pose: target, Err: ErrNoFrame}
	}

	sig, err := ex.Extract(*res.Frame)
	if err != nil {
		return nil, fmt.Errorf("%w: pose '%s': %w", ErrExtractionFailed, target, err)
	}
	if len(sig) == 0 {
		return nil, fmt.Errorf("%w: pose '%s': empty signature", ErrExtractionFailed, target)
	}
	return sig, nil
}

// ProgressFunc is told which pose is about to be captured.
type ProgressFunc func(step, total int, target pose.Pose)

// Enroller captures every required pose and stores the result.
type Enroller struct {
	capturer  Capturer
	extractor signature.Extractor
	store     storage.Repository
	progress  ProgressFunc
}

// NewEnroller creates an Enroller.
func NewEnroller(c Capturer, ex signature.Extractor, store storage.Repository) *Enroller {
	return &Enroller{
		capturer:  c,
		extractor: ex,
		store:     store,
	}
}

// SetProgress registers a callback run before each pose is captured.
func (e *Enroller) SetProgress(fn ProgressFunc) {
	e.progress = fn
}

// Enroll captures the required poses in order and adds the new record.
// Capture stops at the first failed pose. Nothing is stored unless all poses
// succeed.
func (e *Enroller) Enroll(ctx context.Context, id Identity, passwordHash string) (*storage.UserRecord, error) {
	log := logging.Component("enroll").WithField("email", id.Email)

	required := pose.RequiredPoses()
	poses := make(map[pose.Pose]signature.Signature)
	for i, p := range required {
		log.Debugf("Pose %d/%d: %s", i+1, len(required), p)
		if e.progress != nil {
			e.progress(i+1, len(required), p)
		}

		sig, err := captureSignature(ctx, e.capturer, e.extractor, p)
		if err != nil {
			log.WithError(err).Warn("Enrollment stopped")
			return nil, err
		}
		poses[p] = sig
	}

	rec := storage.UserRecord{
		FirstName:    id.FirstName,
		LastName:     id.LastName,
		Email:        id.Email,
		PasswordHash: passwordHash,
		Poses:        poses,
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if err := e.store.AddUser(ctx, rec); err != nil {
		return nil, err
	}

	saved, err := e.store.FindUser(ctx, id.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to read back enrolled user: %w", err)
	}
	log.Info("Enrollment complete")
	return saved, nil
}
