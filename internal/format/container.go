package format

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hambosto/secarc/internal/errs"
)

// MagicBytes identifies the container type and format version.
const MagicBytes = "SECARC01"

// MagicSize is len(MagicBytes).
const MagicSize = 8

// HeaderOffset is the absolute byte offset of the header within the
// file: magic(8) + header_len(4). The Reader needs this to rewrite the
// header in place when the counter is incremented.
const HeaderOffset = MagicSize + 4

// WriteMagic writes the container magic to w.
func WriteMagic(w io.Writer) error {
	if _, err := w.Write([]byte(MagicBytes)); err != nil {
		return fmt.Errorf("%w: writing magic: %v", errs.ErrIO, err)
	}
	return nil
}

// ReadMagic reads and validates the container magic from r.
func ReadMagic(r io.Reader) error {
	buf := make([]byte, MagicSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("%w: reading magic: %v", errs.ErrFormatError, err)
	}
	if string(buf) != MagicBytes {
		return fmt.Errorf("%w: bad magic %q", errs.ErrFormatError, buf)
	}
	return nil
}

// WriteLengthPrefixed32 writes a u32-LE length followed by body.
func WriteLengthPrefixed32(w io.Writer, body []byte) error {
	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], uint32(len(body)))
	if _, err := w.Write(u32[:]); err != nil {
		return fmt.Errorf("%w: writing length prefix: %v", errs.ErrIO, err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("%w: writing body: %v", errs.ErrIO, err)
	}
	return nil
}

// ReadLengthPrefixed32 reads a u32-LE length followed by that many bytes.
func ReadLengthPrefixed32(r io.Reader) ([]byte, error) {
	var u32 [4]byte
	if _, err := io.ReadFull(r, u32[:]); err != nil {
		return nil, fmt.Errorf("%w: reading length prefix: %v", errs.ErrFormatError, err)
	}
	n := binary.LittleEndian.Uint32(u32[:])
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", errs.ErrFormatError, err)
	}
	return body, nil
}

// WriteLengthPrefixed64 writes a u64-LE length followed by body, used for
// the directory ciphertext and payload region.
func WriteLengthPrefixed64(w io.Writer, body []byte) error {
	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], uint64(len(body)))
	if _, err := w.Write(u64[:]); err != nil {
		return fmt.Errorf("%w: writing length prefix: %v", errs.ErrIO, err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("%w: writing body: %v", errs.ErrIO, err)
	}
	return nil
}

// ReadLengthPrefixed64Header reads just the u64-LE length prefix,
// returning the declared body length without consuming the body. Callers
// that need random access (the Reader, when extracting files) use this
// to locate the payload region and then seek into it directly.
func ReadLengthPrefixed64Header(r io.Reader) (uint64, error) {
	var u64 [8]byte
	if _, err := io.ReadFull(r, u64[:]); err != nil {
		return 0, fmt.Errorf("%w: reading length prefix: %v", errs.ErrFormatError, err)
	}
	return binary.LittleEndian.Uint64(u64[:]), nil
}
