// Package format implements the on-disk structures of an archive
// container and their deterministic binary encoding: a fixed-layout
// struct with explicit marshal/unmarshal helpers. Checksum comparison
// is not done here; it lives in internal/mac.
package format

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hambosto/secarc/internal/aead"
	"github.com/hambosto/secarc/internal/codec"
	"github.com/hambosto/secarc/internal/errs"
	"github.com/hambosto/secarc/internal/kdf"
)

// Field sizes for the fixed-layout Header.
const (
	SaltSize     = 32
	ChecksumSize = 32

	// HeaderSize is the serialized size of a Header: it never varies, so
	// the file-level header_len field is always HeaderSize.
	HeaderSize = 1 + 4 + 4 + 1 + 1 + 1 + SaltSize + 4 + 4 + ChecksumSize + 1
)

// Attempt bounds enforced on every header.
const (
	MinMaxAttempts uint32 = 3
	MaxMaxAttempts uint32 = 99
)

// Header is the security header: the single structural anchor for an
// archive's algorithm choices, KDF cost parameters, attempt counter,
// and destruction state. All multi-byte integers are little-endian.
type Header struct {
	KDFAlgorithm   kdf.Algorithm
	KDFMemoryKB    uint32
	KDFIterations  uint32
	KDFParallelism uint8
	EncAlgorithm   aead.Algorithm
	CompAlgorithm  codec.Algorithm
	Salt           [SaltSize]byte
	AttemptCounter uint32
	MaxAttempts    uint32
	Checksum       [ChecksumSize]byte
	Destroyed      bool
}

// KDFParams extracts the KDF cost parameters embedded in the header.
func (h *Header) KDFParams() kdf.Params {
	return kdf.Params{
		Algorithm:   h.KDFAlgorithm,
		MemoryKB:    h.KDFMemoryKB,
		Iterations:  h.KDFIterations,
		Parallelism: h.KDFParallelism,
	}
}

// Validate enforces the structural invariants on a header's fields and
// checks that the algorithm identifiers are ones this core knows.
func (h *Header) Validate() error {
	if h.MaxAttempts < MinMaxAttempts || h.MaxAttempts > MaxMaxAttempts {
		return fmt.Errorf("%w: max_attempts must be in [%d, %d], got %d", errs.ErrHeaderCorrupted, MinMaxAttempts, MaxMaxAttempts, h.MaxAttempts)
	}
	if h.AttemptCounter > h.MaxAttempts {
		return fmt.Errorf("%w: attempt_counter %d exceeds max_attempts %d", errs.ErrHeaderCorrupted, h.AttemptCounter, h.MaxAttempts)
	}
	if err := h.KDFParams().Validate(); err != nil && !h.Destroyed {
		// A destroyed header has randomized KDF parameters and is never
		// expected to validate again.
		return err
	}
	switch h.EncAlgorithm {
	case aead.AES256GCM, aead.ChaCha20Poly1305:
	default:
		return fmt.Errorf("%w: unknown encryption algorithm %d", errs.ErrHeaderCorrupted, h.EncAlgorithm)
	}
	switch h.CompAlgorithm {
	case codec.None, codec.LZMA2, codec.Zstd, codec.Brotli:
	default:
		return fmt.Errorf("%w: unknown compression algorithm %d", errs.ErrHeaderCorrupted, h.CompAlgorithm)
	}
	return nil
}

// MarshalForMAC serializes every field except Checksum, with the
// checksum's place held by zero bytes — the counter's
// "header-without-checksum" HMAC input.
func (h *Header) MarshalForMAC() []byte {
	buf := make([]byte, 0, HeaderSize)
	buf = h.marshalInto(buf, true)
	return buf
}

// Marshal serializes the full header, checksum included.
func (h *Header) Marshal() []byte {
	buf := make([]byte, 0, HeaderSize)
	buf = h.marshalInto(buf, false)
	return buf
}

func (h *Header) marshalInto(buf []byte, zeroChecksum bool) []byte {
	buf = append(buf, byte(h.KDFAlgorithm))

	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], h.KDFMemoryKB)
	buf = append(buf, u32[:]...)
	binary.LittleEndian.PutUint32(u32[:], h.KDFIterations)
	buf = append(buf, u32[:]...)

	buf = append(buf, h.KDFParallelism)
	buf = append(buf, byte(h.EncAlgorithm))
	buf = append(buf, byte(h.CompAlgorithm))
	buf = append(buf, h.Salt[:]...)

	binary.LittleEndian.PutUint32(u32[:], h.AttemptCounter)
	buf = append(buf, u32[:]...)
	binary.LittleEndian.PutUint32(u32[:], h.MaxAttempts)
	buf = append(buf, u32[:]...)

	if zeroChecksum {
		buf = append(buf, make([]byte, ChecksumSize)...)
	} else {
		buf = append(buf, h.Checksum[:]...)
	}

	if h.Destroyed {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}

	return buf
}

// UnmarshalHeader parses a HeaderSize-byte buffer into a Header. It does
// not check algorithm ranges or the MAC; callers validate those
// separately. Structural parse failures are not counted as unlock
// attempts — they never reach the attempt counter.
func UnmarshalHeader(data []byte) (*Header, error) {
	if len(data) != HeaderSize {
		return nil, fmt.Errorf("%w: invalid header size: got %d, expected %d", errs.ErrHeaderCorrupted, len(data), HeaderSize)
	}

	r := bytes.NewReader(data)
	h := &Header{}

	kdfAlgo, _ := r.ReadByte()
	h.KDFAlgorithm = kdf.Algorithm(kdfAlgo)

	var u32 [4]byte
	if _, err := io.ReadFull(r, u32[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrHeaderCorrupted, err)
	}
	h.KDFMemoryKB = binary.LittleEndian.Uint32(u32[:])

	if _, err := io.ReadFull(r, u32[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrHeaderCorrupted, err)
	}
	h.KDFIterations = binary.LittleEndian.Uint32(u32[:])

	par, _ := r.ReadByte()
	h.KDFParallelism = par

	encAlgo, _ := r.ReadByte()
	h.EncAlgorithm = aead.Algorithm(encAlgo)

	compAlgo, _ := r.ReadByte()
	h.CompAlgorithm = codec.Algorithm(compAlgo)

	if _, err := io.ReadFull(r, h.Salt[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrHeaderCorrupted, err)
	}

	if _, err := io.ReadFull(r, u32[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrHeaderCorrupted, err)
	}
	h.AttemptCounter = binary.LittleEndian.Uint32(u32[:])

	if _, err := io.ReadFull(r, u32[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrHeaderCorrupted, err)
	}
	h.MaxAttempts = binary.LittleEndian.Uint32(u32[:])

	if _, err := io.ReadFull(r, h.Checksum[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrHeaderCorrupted, err)
	}

	destroyed, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrHeaderCorrupted, err)
	}
	h.Destroyed = destroyed != 0

	return h, nil
}
