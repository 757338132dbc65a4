package mac

import "testing"

func TestComputeDeterministic(t *testing.T) {
	key := []byte("integrity-key-material")
	data := []byte("header bytes with checksum zeroed")

	if !Verify(data, key, Compute(data, key)) {
		t.Fatal("Verify should accept a tag produced by Compute for the same inputs")
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	data := []byte("header bytes")
	tag := Compute(data, []byte("key-one"))

	if Verify(data, []byte("key-two"), tag) {
		t.Fatal("Verify should reject a tag computed under a different key")
	}
}

func TestVerifyRejectsTamperedData(t *testing.T) {
	key := []byte("integrity-key")
	tag := Compute([]byte("original"), key)

	if Verify([]byte("tampered!"), key, tag) {
		t.Fatal("Verify should reject a tag against changed data")
	}
}

func TestVerifyOrError(t *testing.T) {
	key := []byte("k")
	data := []byte("d")
	tag := Compute(data, key)

	if err := VerifyOrError(data, key, tag); err != nil {
		t.Fatalf("expected nil error for a matching tag, got %v", err)
	}
	if err := VerifyOrError(data, key, []byte("not-a-real-tag-not-a-real-tag00")); err == nil {
		t.Fatal("expected an error for a mismatched tag")
	}
}
