// Package credential hashes and checks account passwords with bcrypt.
package credential

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrMismatch is returned when a password does not match its hash.
var ErrMismatch = errors.New("password does not match")

// Hasher hashes passwords and checks them against stored hashes.
type Hasher interface {
	HashPassword(password string) (string, error)
	ComparePassword(hashPassword string, password string) error
}

type bcryptHasher struct {
	cost int
}

// New returns a Hasher using bcrypt.DefaultCost.
func New() Hasher {
	return &bcryptHasher{
		cost: bcrypt.DefaultCost,
	}
}

// NewWithCost returns a Hasher using the given bcrypt cost.
func NewWithCost(cost int) Hasher {
	return &bcryptHasher{
		cost: cost,
	}
}

func (b *bcryptHasher) HashPassword(password string) (string, error) {
	result, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", err
	}
	return string(result), nil
}

func (b *bcryptHasher) ComparePassword(hashPassword string, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashPassword), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	return err
}
