// Package mac computes and verifies HMAC-SHA256 tags, used to bind the
// attempt counter to the security header (see internal/counter).
package mac

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"

	"github.com/hambosto/secarc/internal/errs"
)

// Size is the length, in bytes, of an HMAC-SHA256 tag.
const Size = 32

// Compute returns HMAC-SHA256(key, data).
func Compute(data, key []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

// Verify reports whether expected matches HMAC-SHA256(key, data), using
// a constant-time comparison to avoid timing oracles.
func Verify(data, key, expected []byte) bool {
	return hmac.Equal(Compute(data, key), expected)
}

// VerifyOrError is Verify, wrapped into an error for call sites that
// want to propagate failure through the standard error path.
func VerifyOrError(data, key, expected []byte) error {
	if !Verify(data, key, expected) {
		return fmt.Errorf("%w: mac verification failed", errs.ErrIntegrityCheckFailed)
	}
	return nil
}
