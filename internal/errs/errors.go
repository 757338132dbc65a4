// Package errs defines the error taxonomy shared across the archive core.
// Every failure surfaced to a caller wraps one of these sentinels so that
// callers can branch with errors.Is instead of string matching.
package errs

import "errors"

var (
	// ErrInvalidPassword means unlock failed: wrong password, a tampered
	// header, or a corrupt key slot. Always accompanied by a persisted
	// counter increment unless the archive was already destroyed.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrMaxAttemptsExceeded marks the increment that triggered destruction.
	ErrMaxAttemptsExceeded = errors.New("maximum unlock attempts exceeded, archive destroyed")

	// ErrArchiveDestroyed is returned at open or at unlock-entry once the
	// destroyed flag is set. No further attempts are possible.
	ErrArchiveDestroyed = errors.New("archive has been destroyed")

	// ErrCounterTampering is the internal distinction between a bad
	// password and a forged/rolled-back header. It is never returned to a
	// caller directly; callers see ErrInvalidPassword instead.
	ErrCounterTampering = errors.New("attempt counter tampering detected")

	// ErrHeaderCorrupted is a structural parse failure: bad length,
	// malformed encoding. Not counted as an attempt.
	ErrHeaderCorrupted = errors.New("header corrupted")

	// ErrFormatError covers bad magic, wrong version, or other structural
	// container errors outside the header itself.
	ErrFormatError = errors.New("archive format error")

	// ErrIntegrityCheckFailed is an AEAD tag mismatch on the directory or a
	// file payload after a successful unlock. Does not touch the counter.
	ErrIntegrityCheckFailed = errors.New("integrity check failed")

	ErrCompressionError   = errors.New("compression error")
	ErrEncryptionError    = errors.New("encryption error")
	ErrKeyDerivationError = errors.New("key derivation error")
	ErrKeySlotError       = errors.New("key slot error")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrFileNotFound       = errors.New("file not found")
	ErrIO                 = errors.New("io error")
)
