package format

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hambosto/secarc/internal/errs"
)

// Entry describes one archived file's place in the payload region. All
// fields are immutable once written.
type Entry struct {
	Path           string
	OriginalSize   uint64
	CompressedSize uint64
	EncryptedSize  uint64
	ModTime        uint64 // seconds since epoch
	Attributes     uint32
	DataOffset     uint64
}

// marshal appends the entry's serialized form to buf:
// path_len(u16 LE) | path | original_size(u64) | compressed_size(u64) |
// encrypted_size(u64) | mod_time(u64) | attributes(u32) | data_offset(u64).
func (e *Entry) marshal(buf []byte) ([]byte, error) {
	if len(e.Path) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: archive path too long: %d bytes", errs.ErrFormatError, len(e.Path))
	}

	var u16 [2]byte
	binary.LittleEndian.PutUint16(u16[:], uint16(len(e.Path)))
	buf = append(buf, u16[:]...)
	buf = append(buf, e.Path...)

	var u64 [8]byte
	for _, v := range []uint64{e.OriginalSize, e.CompressedSize, e.EncryptedSize, e.ModTime} {
		binary.LittleEndian.PutUint64(u64[:], v)
		buf = append(buf, u64[:]...)
	}

	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], e.Attributes)
	buf = append(buf, u32[:]...)

	binary.LittleEndian.PutUint64(u64[:], e.DataOffset)
	buf = append(buf, u64[:]...)

	return buf, nil
}

// unmarshalEntry parses one Entry starting at data[0] and returns it
// together with the number of bytes consumed.
func unmarshalEntry(data []byte) (*Entry, int, error) {
	if len(data) < 2 {
		return nil, 0, fmt.Errorf("%w: truncated entry", errs.ErrFormatError)
	}

	pathLen := int(binary.LittleEndian.Uint16(data[0:2]))
	offset := 2 + pathLen
	const tailSize = 8 + 8 + 8 + 8 + 4 + 8 // four u64 fields, one u32, one trailing u64
	if len(data) < offset+tailSize {
		return nil, 0, fmt.Errorf("%w: truncated entry body", errs.ErrFormatError)
	}

	e := &Entry{Path: string(data[2:offset])}

	e.OriginalSize = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	e.CompressedSize = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	e.EncryptedSize = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	e.ModTime = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8
	e.Attributes = binary.LittleEndian.Uint32(data[offset : offset+4])
	offset += 4
	e.DataOffset = binary.LittleEndian.Uint64(data[offset : offset+8])
	offset += 8

	return e, offset, nil
}
