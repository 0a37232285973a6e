package auth

import (
	"errors"
	"fmt"

	"github.com/MrCodeEU/posegate/pkg/camera"
	"github.com/MrCodeEU/posegate/pkg/capture"
	"github.com/MrCodeEU/posegate/pkg/pose"
	"github.com/MrCodeEU/posegate/pkg/signature"
	"github.com/MrCodeEU/posegate/pkg/storage"
)

// ErrorCode represents a specific authentication error type.
type ErrorCode string

const (
	ErrCodeNoFace        ErrorCode = "NO_FACE"
	ErrCodeNotRecognized ErrorCode = "NOT_RECOGNIZED"
	ErrCodeCamera        ErrorCode = "CAMERA_ERROR"
	ErrCodeTimeout       ErrorCode = "TIMEOUT"
	ErrCodeAborted       ErrorCode = "ABORTED"
	ErrCodeUserExists    ErrorCode = "USER_EXISTS"
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrCodeInternal      ErrorCode = "INTERNAL"
)

// AuthError is a structured authentication error. Message is safe to show
// to the user.
type AuthError struct {
	Code    ErrorCode
	Message string
	Pose    pose.Pose
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error, if any.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// User-friendly error messages
var errorMessages = map[ErrorCode]string{
	ErrCodeNoFace:        "No usable face found. Please face the camera with only you in frame",
	ErrCodeNotRecognized: "Authentication failed: email, password or face not recognized",
	ErrCodeCamera:        "Camera error. Please check your camera connection",
	ErrCodeTimeout:       "Pose capture timed out",
	ErrCodeAborted:       "Capture aborted",
	ErrCodeUserExists:    "An account with this email already exists",
	ErrCodeInvalidInput:  "Invalid input",
	ErrCodeInternal:      "Authentication failed",
}

// GetErrorMessage returns a user-friendly message for an error code.
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return "Authentication failed"
}

// NewAuthError creates a new authentication error.
func NewAuthError(code ErrorCode, err error) *AuthError {
	return &AuthError{
		Code:    code,
		Message: GetErrorMessage(code),
		Err:     err,
	}
}

// ErrEmptyEnrollment is returned when verifying against a record with no
// stored signatures.
var ErrEmptyEnrollment = errors.New("no enrolled signatures")

// ErrExtractionFailed is returned when a captured frame yields no signature.
var ErrExtractionFailed = errors.New("signature extraction failed")

// ErrAborted is the cause recorded when the user quits a capture.
var ErrAborted = errors.New("capture aborted by user")

// ErrNoFrame is the cause recorded when a capture reports no frame.
var ErrNoFrame = errors.New("capture returned no frame")

// ErrInvalidRequest wraps request validation failures.
var ErrInvalidRequest = errors.New("invalid request")

// CaptureFailedError reports which pose could not be captured.
type CaptureFailedError struct {
	Pose pose.Pose
	Err  error
}

func (e *CaptureFailedError) Error() string {
	return fmt.Sprintf("capture failed for pose '%s': %v", e.Pose, e.Err)
}

// Unwrap returns the underlying error.
func (e *CaptureFailedError) Unwrap() error {
	return e.Err
}

// Classify maps an enrollment or verification error to an AuthError.
// Errors that are already an *AuthError are returned unchanged.
func Classify(err error) *AuthError {
	if err == nil {
		return nil
	}

	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr
	}

	var code ErrorCode
	var devErr *capture.DeviceError
	switch {
	case errors.Is(err, capture.ErrTimeout):
		code = ErrCodeTimeout
	case errors.Is(err, ErrAborted):
		code = ErrCodeAborted
	case errors.As(err, &devErr), errors.Is(err, camera.ErrCameraNotFound), errors.Is(err, camera.ErrCameraNotOpen):
		code = ErrCodeCamera
	case errors.Is(err, ErrExtractionFailed), errors.Is(err, signature.ErrNoSignature), errors.Is(err, ErrNoFrame):
		code = ErrCodeNoFace
	case errors.Is(err, storage.ErrUserExists):
		code = ErrCodeUserExists
	case errors.Is(err, ErrInvalidRequest):
		code = ErrCodeInvalidInput
	default:
		code = ErrCodeInternal
	}

	out := NewAuthError(code, err)
	var capErr *CaptureFailedError
	if errors.As(err, &capErr) {
		out.Pose = capErr.Pose
	}
	return out
}
