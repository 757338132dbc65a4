// Package kdf derives fixed-length keys from passwords using Argon2id or
// PBKDF2-HMAC-SHA256, following OWASP's password storage guidance:
// https://cheatsheetseries.owasp.org/cheatsheets/Password_Storage_Cheat_Sheet.html
package kdf

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"

	"github.com/hambosto/secarc/internal/errs"
)

// Algorithm identifies the key derivation function, stored as a single
// byte in the security header.
type Algorithm uint8

const (
	Argon2ID     Algorithm = 1
	PBKDF2SHA256 Algorithm = 2
)

// KeyLength is the size, in bytes, of every key this package derives.
const KeyLength = 32

// SaltLength is the size, in bytes, expected of every salt passed to Derive.
const SaltLength = 32

// Minimum cost parameters enforced by Validate.
const (
	MinArgonMemoryKB    uint32 = 8192
	MinArgonIterations  uint32 = 1
	MinArgonParallelism uint8  = 1
	MaxArgonParallelism uint8  = 16
	MinPBKDF2Iterations uint32 = 1000
)

// Default Argon2id parameters.
const (
	DefaultArgonMemoryKB    uint32 = 65536
	DefaultArgonIterations  uint32 = 3
	DefaultArgonParallelism uint8  = 4
)

// Params bundles the cost parameters for either KDF algorithm. Fields
// unused by the selected Algorithm are ignored.
type Params struct {
	Algorithm   Algorithm
	MemoryKB    uint32 // Argon2id only
	Iterations  uint32
	Parallelism uint8 // Argon2id only
}

// DefaultParams returns the recommended Argon2id parameters.
func DefaultParams() Params {
	return Params{
		Algorithm:   Argon2ID,
		MemoryKB:    DefaultArgonMemoryKB,
		Iterations:  DefaultArgonIterations,
		Parallelism: DefaultArgonParallelism,
	}
}

// Validate enforces the cost floors for each algorithm, returning
// errs.ErrInvalidConfig on violation.
func (p Params) Validate() error {
	switch p.Algorithm {
	case Argon2ID:
		if p.MemoryKB < MinArgonMemoryKB {
			return fmt.Errorf("%w: argon2 memory must be at least %d KB, got %d", errs.ErrInvalidConfig, MinArgonMemoryKB, p.MemoryKB)
		}
		if p.Iterations < MinArgonIterations {
			return fmt.Errorf("%w: argon2 iterations must be at least %d, got %d", errs.ErrInvalidConfig, MinArgonIterations, p.Iterations)
		}
		if p.Parallelism < MinArgonParallelism || p.Parallelism > MaxArgonParallelism {
			return fmt.Errorf("%w: argon2 parallelism must be in [%d, %d], got %d", errs.ErrInvalidConfig, MinArgonParallelism, MaxArgonParallelism, p.Parallelism)
		}
	case PBKDF2SHA256:
		if p.Iterations < MinPBKDF2Iterations {
			return fmt.Errorf("%w: pbkdf2 iterations must be at least %d, got %d", errs.ErrInvalidConfig, MinPBKDF2Iterations, p.Iterations)
		}
	default:
		return fmt.Errorf("%w: unknown kdf algorithm %d", errs.ErrInvalidConfig, p.Algorithm)
	}
	return nil
}

// Derive turns a password and salt into a 32-byte key under the given
// parameters. The same (password, salt, params) always yields the same
// key: this is the single cost centre for timing attacks on the
// password, and it is identical for every wrong-password path.
func Derive(password, salt []byte, p Params) ([]byte, error) {
	if len(password) == 0 {
		return nil, fmt.Errorf("%w: password cannot be empty", errs.ErrKeyDerivationError)
	}
	if len(salt) != SaltLength {
		return nil, fmt.Errorf("%w: expected salt of %d bytes, got %d", errs.ErrKeyDerivationError, SaltLength, len(salt))
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	switch p.Algorithm {
	case Argon2ID:
		return argon2.IDKey(password, salt, p.Iterations, p.MemoryKB, p.Parallelism, KeyLength), nil
	case PBKDF2SHA256:
		return pbkdf2.Key(password, salt, int(p.Iterations), KeyLength, sha256.New), nil
	default:
		return nil, fmt.Errorf("%w: unknown kdf algorithm %d", errs.ErrInvalidConfig, p.Algorithm)
	}
}

// GenerateSalt returns a new cryptographically secure random salt of
// SaltLength bytes.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("%w: failed to generate salt: %v", errs.ErrKeyDerivationError, err)
	}
	return salt, nil
}

// IntegritySalt returns the salt used to derive the integrity key: the
// encryption-wrapping salt with its first byte XORed with 0xFF. The two
// keys derived from the same password through the same KDF but
// different salts must not collide for any reasonable password.
func IntegritySalt(salt []byte) []byte {
	out := append([]byte(nil), salt...)
	if len(out) > 0 {
		out[0] ^= 0xFF
	}
	return out
}
