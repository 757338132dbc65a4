package format

import (
	"encoding/binary"
	"fmt"

	"github.com/hambosto/secarc/internal/errs"
)

// Directory is the ordered sequence of file entries. Its on-disk form is
// the AEAD ciphertext of MarshalDirectory's output, encrypted under the
// master key.
type Directory struct {
	Entries []Entry
}

// MarshalDirectory serializes count(u32 LE) followed by each entry in
// insertion order.
func MarshalDirectory(d *Directory) ([]byte, error) {
	buf := make([]byte, 0, 4+len(d.Entries)*64)

	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], uint32(len(d.Entries)))
	buf = append(buf, u32[:]...)

	var err error
	for i := range d.Entries {
		buf, err = d.Entries[i].marshal(buf)
		if err != nil {
			return nil, err
		}
	}

	return buf, nil
}

// UnmarshalDirectory parses a Directory from its serialized form.
func UnmarshalDirectory(data []byte) (*Directory, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: truncated directory", errs.ErrFormatError)
	}

	count := binary.LittleEndian.Uint32(data[0:4])
	offset := 4

	entries := make([]Entry, 0, count)
	for i := uint32(0); i < count; i++ {
		entry, consumed, err := unmarshalEntry(data[offset:])
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
		offset += consumed
	}

	return &Directory{Entries: entries}, nil
}
