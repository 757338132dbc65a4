// Package counter implements the manipulation-resistant attempt
// counter: an HMAC over the header-minus-checksum, binding every header
// field (including the counter itself) to the integrity key so that an
// attacker without the password cannot forge an update to it.
package counter

import (
	"fmt"

	"github.com/hambosto/secarc/internal/errs"
	"github.com/hambosto/secarc/internal/format"
	"github.com/hambosto/secarc/internal/mac"
)

// AttemptCounter binds increment/verify operations on a header to a
// specific integrity key.
type AttemptCounter struct {
	integrityKey []byte
}

// New constructs an AttemptCounter bound to integrityKey.
func New(integrityKey []byte) *AttemptCounter {
	return &AttemptCounter{integrityKey: integrityKey}
}

// Refresh recomputes header.Checksum over the header with the checksum
// field zeroed, under the current integrity key. Only safe to call once
// the key is known to be correct: at write time, or after Verify has
// already confirmed it.
func (c *AttemptCounter) Refresh(h *format.Header) {
	tag := mac.Compute(h.MarshalForMAC(), c.integrityKey)
	copy(h.Checksum[:], tag)
}

// Verify reports whether h.Checksum authenticates h under the current
// integrity key. A run of failed unlock attempts advances
// h.AttemptCounter without re-signing — Increment cannot sign under a
// key it hasn't confirmed is correct — so the checksum on disk may
// still match an earlier, smaller counter value rather than the
// current one. Verify accounts for that: it checks the header as it
// stands, and if that fails, at each smaller counter value down to
// zero. A match at any of those proves the key is correct and the gap
// is exactly the recorded run of failed attempts since that point; any
// other field changing invalidates the match at every counter value
// alike, so tampering is still caught.
func (c *AttemptCounter) Verify(h *format.Header) bool {
	probe := *h
	for {
		if mac.Verify(probe.MarshalForMAC(), c.integrityKey, h.Checksum[:]) {
			return true
		}
		if probe.AttemptCounter == 0 {
			return false
		}
		probe.AttemptCounter--
	}
}

// Increment bumps h.AttemptCounter. It deliberately does not refresh
// the checksum: the caller reaches Increment precisely because the key
// it derived did not verify, so signing with it would strand the real
// checksum where the correct password could never verify it again.
// Fails with errs.ErrArchiveDestroyed if the header is already
// destroyed or already at max_attempts — the caller must check the
// return value before persisting. Reaching max_attempts is the
// destruction trigger, handled one level up by the reader (see AtLimit).
func (c *AttemptCounter) Increment(h *format.Header) error {
	if h.Destroyed || h.AttemptCounter >= h.MaxAttempts {
		return fmt.Errorf("%w", errs.ErrArchiveDestroyed)
	}

	h.AttemptCounter++
	return nil
}

// AtLimit reports whether h.AttemptCounter has reached h.MaxAttempts.
// The reader checks it right after Increment: a failed unlock whose
// increment reaches the limit destroys the archive in that same attempt.
func AtLimit(h *format.Header) bool {
	return h.AttemptCounter >= h.MaxAttempts
}
