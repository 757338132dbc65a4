// Package destroy implements the self-destruct procedure: randomizing
// key-slot ciphertext and header KDF parameters so the archive cannot
// be opened again even with the correct password.
package destroy

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/hambosto/secarc/internal/errs"
	"github.com/hambosto/secarc/internal/format"
)

// Destroy performs the four-step destruction procedure in order:
// zeroize every key slot, randomize the header salt and KDF parameters,
// set the destroyed flag, and overwrite the checksum with random bytes.
// It is idempotent: destroying an already-destroyed archive is safe and
// simply randomizes everything again.
func Destroy(h *format.Header, slots []*format.KeySlot) error {
	for _, s := range slots {
		randomKey := make([]byte, len(s.EncryptedKey))
		if _, err := io.ReadFull(rand.Reader, randomKey); err != nil {
			return fmt.Errorf("%w: zeroizing key slot: %v", errs.ErrKeySlotError, err)
		}
		s.EncryptedKey = randomKey
		s.Active = false
	}

	if _, err := io.ReadFull(rand.Reader, h.Salt[:]); err != nil {
		return fmt.Errorf("%w: randomizing salt: %v", errs.ErrKeySlotError, err)
	}

	h.KDFMemoryKB = randomUint32()
	h.KDFIterations = randomUint32()
	h.KDFParallelism = byte(randomUint32())

	h.Destroyed = true

	if _, err := io.ReadFull(rand.Reader, h.Checksum[:]); err != nil {
		return fmt.Errorf("%w: randomizing checksum: %v", errs.ErrKeySlotError, err)
	}

	return nil
}

func randomUint32() uint32 {
	var buf [4]byte
	// Unlike the other rand.Reader reads in Destroy, a failure here is
	// ignored: the value is built from whatever bytes were read (zero if
	// none), which still replaces the KDF parameter.
	_, _ = io.ReadFull(rand.Reader, buf[:])
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
}
