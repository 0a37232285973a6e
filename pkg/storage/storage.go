// Package storage persists enrolled user records. Two backends implement
// Repository: a single JSON document on disk, optionally sealed with NaCl
// secretbox, and a Redis hash.
package storage

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrCodeEU/posegate/pkg/config"
	"github.com/MrCodeEU/posegate/pkg/pose"
	"github.com/MrCodeEU/posegate/pkg/signature"
	jsoniter "github.com/json-iterator/go"
	"github.com/oklog/ulid/v2"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrUserNotFound is returned when no record exists for an email.
var ErrUserNotFound = errors.New("user not found")

// ErrUserExists is returned when adding a record whose email is taken.
var ErrUserExists = errors.New("user already registered")

// ErrIncompleteEnrollment is returned for records that do not hold exactly
// one signature per required pose.
var ErrIncompleteEnrollment = errors.New("incomplete enrollment")

// UserRecord is one enrolled identity.
type UserRecord struct {
	ID           string                            `json:"id"`
	FirstName    string                            `json:"first_name"`
	LastName     string                            `json:"last_name"`
	Email        string                            `json:"email"`
	PasswordHash string                            `json:"password_hash"`
	Poses        map[pose.Pose]signature.Signature `json:"poses"`
	EnrolledAt   time.Time                         `json:"enrolled_at"`
	UpdatedAt    time.Time                         `json:"updated_at"`
}

// Validate checks that the record has an email and exactly one non-empty
// signature for each required pose.
func (r *UserRecord) Validate() error {
	if NormalizeEmail(r.Email) == "" {
		return fmt.Errorf("%w: missing email", ErrIncompleteEnrollment)
	}

	required := pose.RequiredPoses()
	if len(r.Poses) != len(required) {
		return fmt.Errorf("%w: %d of %d poses", ErrIncompleteEnrollment, len(r.Poses), len(required))
	}
	for _, p := range required {
		if len(r.Poses[p]) == 0 {
			return fmt.Errorf("%w: no signature for pose '%s'", ErrIncompleteEnrollment, p)
		}
	}
	return nil
}

// Signatures returns the stored signatures in required pose order.
func (r *UserRecord) Signatures() []signature.Signature {
	out := make([]signature.Signature, 0, len(r.Poses))
	for _, p := range pose.RequiredPoses() {
		if sig, ok := r.Poses[p]; ok {
			out = append(out, sig)
		}
	}
	return out
}

// normalizePoses rewrites pose keys to their canonical names after decoding,
// so records written with the legacy "face" key expose a front signature.
// An explicit canonical key wins over its alias. Unknown keys are kept.
func (r *UserRecord) normalizePoses() {
	if len(r.Poses) == 0 {
		return
	}
	poses := make(map[pose.Pose]signature.Signature, len(r.Poses))
	for key, sig := range r.Poses {
		p, err := pose.ParsePose(string(key))
		if err != nil {
			poses[key] = sig
			continue
		}
		if _, taken := poses[p]; taken && key != p {
			continue
		}
		poses[p] = sig
	}
	r.Poses = poses
}

// FullName joins the first and last name.
func (r *UserRecord) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// clone returns a deep copy so callers never share signature slices with a
// backend.
func (r UserRecord) clone() UserRecord {
	if r.Poses != nil {
		poses := make(map[pose.Pose]signature.Signature, len(r.Poses))
		for p, sig := range r.Poses {
			poses[p] = sig.Clone()
		}
		r.Poses = poses
	}
	return r
}

// Repository is the record store contract.
type Repository interface {
	FindUser(ctx context.Context, email string) (*UserRecord, error)
	AddUser(ctx context.Context, rec UserRecord) error
	UpdateUser(ctx context.Context, rec UserRecord) error
	ListUsers(ctx context.Context) ([]string, error)
	DeleteUser(ctx context.Context, email string) error
	Close() error
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewID returns a ULID for a record created at t.
func NewID(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// prepareNew validates rec and fills in the identity and timestamps a new
// record needs.
func prepareNew(rec UserRecord, now time.Time) (UserRecord, error) {
	if err := rec.Validate(); err != nil {
		return rec, err
	}
	rec = rec.clone()
	rec.Email = NormalizeEmail(rec.Email)
	if rec.ID == "" {
		id, err := NewID(now)
		if err != nil {
			return rec, fmt.Errorf("failed to generate record id: %w", err)
		}
		rec.ID = id
	}
	if rec.EnrolledAt.IsZero() {
		rec.EnrolledAt = now
	}
	rec.UpdatedAt = now
	return rec, nil
}

// Open returns the repository selected by cfg.Backend.
func Open(cfg config.StorageConfig) (Repository, error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		return NewFileStore(cfg.Path, cfg.EncryptionEnabled)
	case config.BackendRedis:
		return NewRedisStore(cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
