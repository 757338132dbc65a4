package format

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hambosto/secarc/internal/errs"
)

// MaxSlots is the number of key-slot positions the format reserves. This
// core only writes the primary slot, slot 0, and only unlocks through
// it; the reader still parses every slot present.
const MaxSlots = 8

// PrimarySlotID is the only slot position this core implements.
const PrimarySlotID byte = 0

// KeySlot wraps the master key under a password-derived key. EncryptedKey
// holds the AEAD output (nonce || ciphertext || tag).
type KeySlot struct {
	SlotID       byte
	Active       bool
	EncryptedKey []byte
}

// Marshal serializes a KeySlot as: slot_id(1) | active(1) | key_len(u32 LE) | key bytes.
func (s *KeySlot) Marshal() []byte {
	buf := make([]byte, 0, 2+4+len(s.EncryptedKey))
	buf = append(buf, s.SlotID)
	if s.Active {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}

	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], uint32(len(s.EncryptedKey)))
	buf = append(buf, u32[:]...)
	buf = append(buf, s.EncryptedKey...)
	return buf
}

// UnmarshalKeySlot parses a KeySlot from its serialized form.
func UnmarshalKeySlot(data []byte) (*KeySlot, error) {
	if len(data) < 6 {
		return nil, fmt.Errorf("%w: key slot too short: %d bytes", errs.ErrKeySlotError, len(data))
	}

	s := &KeySlot{SlotID: data[0], Active: data[1] != 0}
	keyLen := binary.LittleEndian.Uint32(data[2:6])

	if uint32(len(data)-6) != keyLen {
		return nil, fmt.Errorf("%w: key slot length mismatch: declared %d, have %d", errs.ErrKeySlotError, keyLen, len(data)-6)
	}

	s.EncryptedKey = append([]byte(nil), data[6:]...)
	return s, nil
}

// WriteKeySlot writes a length-prefixed KeySlot to w.
func WriteKeySlot(w io.Writer, s *KeySlot) error {
	body := s.Marshal()

	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], uint32(len(body)))
	if _, err := w.Write(u32[:]); err != nil {
		return fmt.Errorf("%w: writing slot length: %v", errs.ErrIO, err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("%w: writing slot body: %v", errs.ErrIO, err)
	}
	return nil
}

// ReadKeySlot reads a single length-prefixed KeySlot from r.
func ReadKeySlot(r io.Reader) (*KeySlot, error) {
	var u32 [4]byte
	if _, err := io.ReadFull(r, u32[:]); err != nil {
		return nil, fmt.Errorf("%w: reading slot length: %v", errs.ErrIO, err)
	}

	slotLen := binary.LittleEndian.Uint32(u32[:])
	body := make([]byte, slotLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("%w: reading slot body: %v", errs.ErrIO, err)
	}

	return UnmarshalKeySlot(body)
}
