// Package crypto bundles the credential primitives the command side needs:
// password hashing and verification, password strength gating, one-time
// secret generation, and at-rest encryption of recoverable secrets.
package crypto

import (
	"errors"

	passwordvalidator "github.com/wagslane/go-password-validator"
	"golang.org/x/crypto/bcrypt"

	"github.com/identra/identra/pkg/apperror"
)

const (
	MinCost     = bcrypt.MinCost
	MaxCost     = 31
	DefaultCost = 12

	// MaxPasswordLength bounds input before hashing. bcrypt ignores bytes
	// past 72; rejecting earlier also prevents DoS via huge inputs.
	MaxPasswordLength = 72

	// DefaultMinEntropyBits is the strength floor for new passwords.
	DefaultMinEntropyBits = 50
)

// Hasher hashes and verifies passwords with bcrypt.
type Hasher struct {
	cost           int
	minEntropyBits float64
}

// HasherOption configures a Hasher.
type HasherOption func(*Hasher)

// WithCost sets the bcrypt cost factor. Out-of-range values keep the default.
func WithCost(cost int) HasherOption {
	return func(h *Hasher) {
		if cost >= MinCost && cost <= MaxCost {
			h.cost = cost
		}
	}
}

// WithMinEntropyBits sets the strength floor applied by ValidateStrength.
func WithMinEntropyBits(bits float64) HasherOption {
	return func(h *Hasher) {
		if bits > 0 {
			h.minEntropyBits = bits
		}
	}
}

func NewHasher(opts ...HasherOption) *Hasher {
	h := &Hasher{cost: DefaultCost, minEntropyBits: DefaultMinEntropyBits}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ValidateStrength rejects passwords below the configured entropy floor.
func (h *Hasher) ValidateStrength(password string) error {
	if err := passwordvalidator.Validate(password, h.minEntropyBits); err != nil {
		return apperror.ThrowInvalidArgument(err, "CRYPTO-Pw01", "password too weak")
	}
	return nil
}

// Hash returns the bcrypt hash of password.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", apperror.ThrowInvalidArgument(nil, "CRYPTO-Pw02", "password must not be empty")
	}
	if len(password) > MaxPasswordLength {
		return "", apperror.ThrowInvalidArgument(nil, "CRYPTO-Pw03", "password too long")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", apperror.ThrowInternal(err, "CRYPTO-Pw04", "hashing password failed")
	}
	return string(hashed), nil
}

// Verify compares a stored hash against a plaintext candidate. A mismatch
// is reported as ErrPasswordMismatch; anything else is an internal error.
func (h *Hasher) Verify(hashed, password string) error {
	if hashed == "" || password == "" {
		return ErrPasswordMismatch
	}
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return apperror.ThrowInternal(err, "CRYPTO-Pw05", "password comparison failed")
}

// ErrPasswordMismatch reports a failed verification without leaking which
// part of the credential was wrong.
var ErrPasswordMismatch = errors.New("password does not match")
