package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrCodeEU/posegate/pkg/capture"
	"github.com/MrCodeEU/posegate/pkg/credential"
	"github.com/MrCodeEU/posegate/pkg/pose"
	"github.com/MrCodeEU/posegate/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var adaRequest = RegisterRequest{
	FirstName: "Ada",
	LastName:  "Lovelace",
	Email:     "A@X.com ",
	Password:  "secret123",
}

type serviceFixture struct {
	store *storage.FileStore
	cam   *MockCapturer
	ex    *MockExtractor
	svc   *Service
}

func newServiceFixture(t *testing.T) *serviceFixture {
	f := &serviceFixture{
		store: newTestStore(t),
		cam:   &MockCapturer{Person: 10},
		ex:    &MockExtractor{},
	}
	f.svc = NewService(f.store, MockHasher{}, f.cam, f.ex, Options{Tolerance: 0.5})
	return f
}

// registered returns a fixture with Ada enrolled and the capture log reset.
func registered(t *testing.T) *serviceFixture {
	f := newServiceFixture(t)
	_, err := f.svc.Register(context.Background(), adaRequest)
	require.NoError(t, err)
	f.cam.calls = nil
	return f
}

func TestRegister(t *testing.T) {
	f := newServiceFixture(t)

	rec, err := f.svc.Register(context.Background(), adaRequest)
	require.NoError(t, err)

	assert.Equal(t, "a@x.com", rec.Email)
	assert.Equal(t, "Ada Lovelace", rec.FullName())
	assert.Equal(t, "hashed:secret123", rec.PasswordHash)
	assert.Len(t, rec.Poses, 5)
	assert.Equal(t, pose.RequiredPoses(), f.cam.calls)

	emails, err := f.svc.Users(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com"}, emails)
}

func TestRegister_WithBcrypt(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	cam := &MockCapturer{Person: 10}
	svc := NewService(store, credential.NewWithCost(bcrypt.MinCost), cam, &MockExtractor{}, Options{})

	rec, err := svc.Register(ctx, adaRequest)
	require.NoError(t, err)
	assert.NotContains(t, rec.PasswordHash, "secret123")

	res := svc.Login(ctx, LoginRequest{Email: "a@x.com", Password: "secret123"})
	assert.True(t, res.Success)
}

func TestRegister_InvalidRequest(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*RegisterRequest)
	}{
		{"missing first name", func(r *RegisterRequest) { r.FirstName = "  " }},
		{"missing last name", func(r *RegisterRequest) { r.LastName = "" }},
		{"malformed email", func(r *RegisterRequest) { r.Email = "not-an-email" }},
		{"short password", func(r *RegisterRequest) { r.Password = "short" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t)
			req := adaRequest
			tt.modify(&req)

			_, err := f.svc.Register(context.Background(), req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
			assert.Empty(t, f.cam.calls)
			assert.Equal(t, ErrCodeInvalidInput, Classify(err).Code)
		})
	}
}

func TestRegister_DuplicateEmailStartsNoCapture(t *testing.T) {
	f := registered(t)

	req := adaRequest
	req.Email = "a@x.COM"
	_, err := f.svc.Register(context.Background(), req)

	assert.ErrorIs(t, err, storage.ErrUserExists)
	assert.Empty(t, f.cam.calls)
}

func TestRegister_CaptureFailureStoresNothing(t *testing.T) {
	f := newServiceFixture(t)
	f.cam.failOn(pose.Up, capture.Result{State: capture.TimedOut},
		&capture.PoseTimeoutError{Pose: pose.Up, Timeout: 40 * time.Second})

	_, err := f.svc.Register(context.Background(), adaRequest)
	require.Error(t, err)

	authErr := Classify(err)
	assert.Equal(t, ErrCodeTimeout, authErr.Code)
	assert.Equal(t, pose.Up, authErr.Pose)

	emails, err := f.svc.Users(context.Background())
	require.NoError(t, err)
	assert.Empty(t, emails)
}

func TestLogin_Success(t *testing.T) {
	f := registered(t)

	res := f.svc.Login(context.Background(), LoginRequest{Email: " A@x.com", Password: "secret123"})

	assert.True(t, res.Success)
	assert.Nil(t, res.Error)
	assert.Equal(t, "a@x.com", res.Email)
	assert.InDelta(t, 0, res.Distance, 1e-9)
	assert.Equal(t, []pose.Pose{pose.Front}, f.cam.calls)
}

func TestLogin_FailuresLookTheSame(t *testing.T) {
	tests := []struct {
		name         string
		req          LoginRequest
		person       byte
		wantCaptures int
	}{
		{"unknown email", LoginRequest{Email: "b@x.com", Password: "secret123"}, 10, 0},
		{"wrong password", LoginRequest{Email: "a@x.com", Password: "wrong-pass"}, 10, 0},
		{"empty password", LoginRequest{Email: "a@x.com"}, 10, 0},
		{"different face", LoginRequest{Email: "a@x.com", Password: "secret123"}, 90, 1},
	}

	var messages []string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := registered(t)
			f.cam.Person = tt.person

			res := f.svc.Login(context.Background(), tt.req)

			assert.False(t, res.Success)
			require.NotNil(t, res.Error)
			assert.Equal(t, ErrCodeNotRecognized, res.Error.Code)
			assert.Nil(t, res.Error.Err, "the reason must not leak")
			assert.Len(t, f.cam.calls, tt.wantCaptures)
			messages = append(messages, res.Error.Error())
		})
	}

	for _, msg := range messages {
		assert.Equal(t, messages[0], msg)
	}
}

func TestLogin_EmptyEnrollmentFails(t *testing.T) {
	f := newServiceFixture(t)
	f.svc.store = emptyRecordStore{f.store}

	res := f.svc.Login(context.Background(), LoginRequest{Email: "a@x.com", Password: "secret123"})

	assert.False(t, res.Success)
	assert.Equal(t, ErrCodeNotRecognized, res.Error.Code)
	assert.Empty(t, f.cam.calls)
}

// emptyRecordStore returns a record with a valid password but no signatures,
// which a Repository would normally refuse to store.
type emptyRecordStore struct {
	storage.Repository
}

func (emptyRecordStore) FindUser(ctx context.Context, email string) (*storage.UserRecord, error) {
	return &storage.UserRecord{Email: email, PasswordHash: "hashed:secret123"}, nil
}

func TestLogin_CaptureErrorsKeepTheirCode(t *testing.T) {
	tests := []struct {
		name string
		res  capture.Result
		err  error
		want ErrorCode
	}{
		{"timeout", capture.Result{State: capture.TimedOut}, &capture.PoseTimeoutError{Pose: pose.Front, Timeout: time.Second}, ErrCodeTimeout},
		{"camera", capture.Result{}, &capture.DeviceError{Op: "open video source", Err: errors.New("busy")}, ErrCodeCamera},
		{"aborted", capture.Result{State: capture.Aborted}, nil, ErrCodeAborted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := registered(t)
			f.cam.failOn(pose.Front, tt.res, tt.err)

			res := f.svc.Login(context.Background(), LoginRequest{Email: "a@x.com", Password: "secret123"})

			assert.False(t, res.Success)
			require.NotNil(t, res.Error)
			assert.Equal(t, tt.want, res.Error.Code)
			assert.Equal(t, pose.Front, res.Error.Pose)
		})
	}
}

func TestLogin_NoFaceInFrame(t *testing.T) {
	f := registered(t)
	f.cam.CaptureFunc = func(ctx context.Context, target pose.Pose) (capture.Result, error) {
		res := matched(target, 10)
		res.Frame.Data = nil
		return res, nil
	}

	res := f.svc.Login(context.Background(), LoginRequest{Email: "a@x.com", Password: "secret123"})
	require.NotNil(t, res.Error)
	assert.Equal(t, ErrCodeNoFace, res.Error.Code)
}

func TestRegisterLoginRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	_, err := f.svc.Register(ctx, adaRequest)
	require.NoError(t, err)

	// A fresh service over the same store, as after a restart.
	again := NewService(f.store, MockHasher{}, &MockCapturer{Person: 10}, &MockExtractor{}, Options{})
	res := again.Login(ctx, LoginRequest{Email: "a@x.com", Password: "secret123"})
	assert.True(t, res.Success)

	require.NoError(t, again.Remove(ctx, "a@x.com"))
	res = again.Login(ctx, LoginRequest{Email: "a@x.com", Password: "secret123"})
	assert.False(t, res.Success)
}

func TestService_ReportsProgress(t *testing.T) {
	ctx := context.Background()
	type step struct {
		n, total int
		p        pose.Pose
	}
	var steps []step

	store := newTestStore(t)
	svc := NewService(store, MockHasher{}, &MockCapturer{Person: 10}, &MockExtractor{}, Options{
		Progress: func(n, total int, p pose.Pose) { steps = append(steps, step{n, total, p}) },
	})

	_, err := svc.Register(ctx, adaRequest)
	require.NoError(t, err)
	require.Len(t, steps, 5)
	for i, p := range pose.RequiredPoses() {
		assert.Equal(t, step{i + 1, 5, p}, steps[i])
	}

	steps = nil
	res := svc.Login(ctx, LoginRequest{Email: "a@x.com", Password: "secret123"})
	require.True(t, res.Success)
	assert.Equal(t, []step{{1, 1, pose.Front}}, steps)
}
