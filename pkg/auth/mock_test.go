package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/MrCodeEU/posegate/pkg/camera"
	"github.com/MrCodeEU/posegate/pkg/capture"
	"github.com/MrCodeEU/posegate/pkg/pose"
	"github.com/MrCodeEU/posegate/pkg/signature"
	"github.com/MrCodeEU/posegate/pkg/storage"
	"github.com/stretchr/testify/require"
)

// MockCapturer implements Capturer. By default every pose matches with a
// frame showing Person.
type MockCapturer struct {
	Person      byte
	CaptureFunc func(ctx context.Context, target pose.Pose) (capture.Result, error)
	calls       []pose.Pose
}

func (m *MockCapturer) Capture(ctx context.Context, target pose.Pose) (capture.Result, error) {
	m.calls = append(m.calls, target)
	if m.CaptureFunc != nil {
		return m.CaptureFunc(ctx, target)
	}
	return matched(target, m.Person), nil
}

func matched(target pose.Pose, person byte) capture.Result {
	frame := camera.Frame{Data: []byte{person, byte(len(target))}, Format: "JPEG"}
	return capture.Result{Target: target, State: capture.Matched, Frame: &frame}
}

// failOn makes the capturer fail for one pose and match the rest.
func (m *MockCapturer) failOn(p pose.Pose, res capture.Result, err error) {
	m.CaptureFunc = func(ctx context.Context, target pose.Pose) (capture.Result, error) {
		if target == p {
			return res, err
		}
		return matched(target, m.Person), nil
	}
}

// MockExtractor implements signature.Extractor. By default the signature
// encodes the person shown in the frame, so frames of the same person are
// identical and frames of different people are far apart.
type MockExtractor struct {
	ExtractFunc func(frame camera.Frame) (signature.Signature, error)
	calls       int
}

func (m *MockExtractor) Extract(frame camera.Frame) (signature.Signature, error) {
	m.calls++
	if m.ExtractFunc != nil {
		return m.ExtractFunc(frame)
	}
	if len(frame.Data) == 0 {
		return nil, signature.ErrNoSignature
	}
	return personSignature(frame.Data[0]), nil
}

func personSignature(person byte) signature.Signature {
	sig := make(signature.Signature, signature.Size)
	for i := range sig {
		sig[i] = float32(person) / 100
	}
	return sig
}

// MockHasher implements credential.Hasher without bcrypt's cost.
type MockHasher struct{}

var errMismatch = errors.New("mismatch")

func (MockHasher) HashPassword(password string) (string, error) {
	return "hashed:" + password, nil
}

func (MockHasher) ComparePassword(hash, password string) error {
	if hash != "hashed:"+password {
		return errMismatch
	}
	return nil
}

func newTestStore(t *testing.T) *storage.FileStore {
	t.Helper()
	fs, err := storage.NewFileStore(filepath.Join(t.TempDir(), "users.json"), false)
	require.NoError(t, err)
	return fs
}
