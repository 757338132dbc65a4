package format

import (
	"bytes"
	"testing"
)

func TestKeySlotMarshalUnmarshalRoundTrip(t *testing.T) {
	s := &KeySlot{SlotID: PrimarySlotID, Active: true, EncryptedKey: []byte("nonce+ciphertext+tag")}

	parsed, err := UnmarshalKeySlot(s.Marshal())
	if err != nil {
		t.Fatalf("UnmarshalKeySlot failed: %v", err)
	}

	if parsed.SlotID != s.SlotID || parsed.Active != s.Active || !bytes.Equal(parsed.EncryptedKey, s.EncryptedKey) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", parsed, s)
	}
}

func TestWriteReadKeySlot(t *testing.T) {
	s := &KeySlot{SlotID: 0, Active: true, EncryptedKey: bytes.Repeat([]byte{0xAB}, 60)}

	var buf bytes.Buffer
	if err := WriteKeySlot(&buf, s); err != nil {
		t.Fatalf("WriteKeySlot failed: %v", err)
	}

	parsed, err := ReadKeySlot(&buf)
	if err != nil {
		t.Fatalf("ReadKeySlot failed: %v", err)
	}

	if parsed.SlotID != s.SlotID || !bytes.Equal(parsed.EncryptedKey, s.EncryptedKey) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", parsed, s)
	}
}

func TestUnmarshalKeySlotRejectsLengthMismatch(t *testing.T) {
	body := (&KeySlot{SlotID: 0, Active: true, EncryptedKey: []byte("abcdef")}).Marshal()
	truncated := body[:len(body)-2]

	if _, err := UnmarshalKeySlot(truncated); err == nil {
		t.Fatal("expected error for truncated key slot")
	}
}

func TestUnmarshalKeySlotRejectsTooShort(t *testing.T) {
	if _, err := UnmarshalKeySlot([]byte{1, 2}); err == nil {
		t.Fatal("expected error for too-short key slot")
	}
}
