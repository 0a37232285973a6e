package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrCodeEU/posegate/pkg/credential"
	"github.com/MrCodeEU/posegate/pkg/logging"
	"github.com/MrCodeEU/posegate/pkg/signature"
	"github.com/MrCodeEU/posegate/pkg/storage"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// RegisterRequest is the input to Register.
type RegisterRequest struct {
	FirstName string `validate:"required"`
	LastName  string `validate:"required"`
	Email     string `validate:"required,email"`
	Password  string `validate:"required,min=8"`
}

// LoginRequest is the input to Login.
type LoginRequest struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

// AuthResult represents the result of a login attempt.
type AuthResult struct {
	Success  bool
	Error    *AuthError
	Duration time.Duration
	Email    string
	Distance float64
}

// Options configures a Service.
type Options struct {
	// Tolerance is the largest signature distance accepted at login.
	// Negative selects signature.DefaultTolerance.
	Tolerance float64
	Progress  ProgressFunc
}

// Service runs the register and login flows.
type Service struct {
	store     storage.Repository
	hasher    credential.Hasher
	enroller  *Enroller
	verifier  *Verifier
	validator *validator.Validate
	log       *logrus.Entry
}

// NewService wires a Service from its collaborators.
func NewService(store storage.Repository, hasher credential.Hasher, c Capturer, ex signature.Extractor, opts Options) *Service {
	s := &Service{
		store:     store,
		hasher:    hasher,
		enroller:  NewEnroller(c, ex, store),
		verifier:  NewVerifier(c, ex, signature.DistanceComparer{}, opts.Tolerance),
		validator: validator.New(),
		log:       logging.Component("auth"),
	}
	s.enroller.SetProgress(opts.Progress)
	s.verifier.SetProgress(opts.Progress)
	return s
}

// Register validates the request, rejects taken emails before any capture
// starts, hashes the password and enrolls the five poses.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*storage.UserRecord, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = storage.NormalizeEmail(req.Email)

	if err := s.validator.Struct(req); err != nil {
		s.log.WithError(err).Warn("Invalid registration request")
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	if _, err := s.store.FindUser(ctx, req.Email); err == nil {
		s.log.WithField("email", req.Email).Warn("Email already registered")
		return nil, storage.ErrUserExists
	} else if !errors.Is(err, storage.ErrUserNotFound) {
		return nil, err
	}

	hash, err := s.hasher.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	rec, err := s.enroller.Enroll(ctx, Identity{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	}, hash)
	if err != nil {
		return nil, err
	}

	s.log.WithField("email", rec.Email).Info("User registered")
	return rec, nil
}

// Login checks the password, then the face. An unknown email, a wrong
// password and a face mismatch all yield the same ErrCodeNotRecognized
// error; the real reason is only logged. No capture starts unless the
// password is correct.
func (s *Service) Login(ctx context.Context, req LoginRequest) AuthResult {
	start := time.Now()
	email := storage.NormalizeEmail(req.Email)
	result := AuthResult{Email: email}
	log := s.log.WithField("email", email)

	fail := func(err *AuthError, reason string) AuthResult {
		result.Error = err
		result.Duration = time.Since(start)
		log.WithField("code", err.Code).Warnf("Login failed: %s", reason)
		return result
	}
	notRecognized := func(reason string) AuthResult {
		return fail(NewAuthError(ErrCodeNotRecognized, nil), reason)
	}

	if err := s.validator.Struct(req); err != nil {
		return notRecognized("missing email or password")
	}

	rec, err := s.store.FindUser(ctx, email)
	if errors.Is(err, storage.ErrUserNotFound) {
		return notRecognized("unknown email")
	} else if err != nil {
		return fail(NewAuthError(ErrCodeInternal, err), err.Error())
	}

	if err := s.hasher.ComparePassword(rec.PasswordHash, req.Password); err != nil {
		return notRecognized("password mismatch")
	}

	v, err := s.verifier.Verify(ctx, rec)
	result.Distance = v.Distance
	if errors.Is(err, ErrEmptyEnrollment) {
		return notRecognized("no enrolled face signatures")
	} else if err != nil {
		return fail(Classify(err), err.Error())
	}
	if !v.Matched {
		return notRecognized(fmt.Sprintf("face mismatch (distance %.4f)", v.Distance))
	}

	result.Success = true
	result.Duration = time.Since(start)
	log.WithField("distance", fmt.Sprintf("%.4f", v.Distance)).Infof("Login successful for %s", rec.FullName())
	return result
}

// Users lists registered emails.
func (s *Service) Users(ctx context.Context) ([]string, error) {
	return s.store.ListUsers(ctx)
}

// Remove deletes a registered user.
func (s *Service) Remove(ctx context.Context, email string) error {
	return s.store.DeleteUser(ctx, email)
}
