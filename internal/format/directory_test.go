package format

import "testing"

func TestDirectoryMarshalUnmarshalRoundTrip(t *testing.T) {
	dir := &Directory{
		Entries: []Entry{
			{Path: "a.txt", OriginalSize: 1, CompressedSize: 1, EncryptedSize: 29, ModTime: 1000, Attributes: 0o644, DataOffset: 0},
			{Path: "dir/b.bin", OriginalSize: 2048, CompressedSize: 900, EncryptedSize: 928, ModTime: 2000, Attributes: 0o600, DataOffset: 29},
		},
	}

	data, err := MarshalDirectory(dir)
	if err != nil {
		t.Fatalf("MarshalDirectory failed: %v", err)
	}

	parsed, err := UnmarshalDirectory(data)
	if err != nil {
		t.Fatalf("UnmarshalDirectory failed: %v", err)
	}

	if len(parsed.Entries) != len(dir.Entries) {
		t.Fatalf("expected %d entries, got %d", len(dir.Entries), len(parsed.Entries))
	}
	for i := range dir.Entries {
		if parsed.Entries[i] != dir.Entries[i] {
			t.Fatalf("entry %d mismatch: got %+v, want %+v", i, parsed.Entries[i], dir.Entries[i])
		}
	}
}

func TestDirectoryPreservesInsertionOrder(t *testing.T) {
	dir := &Directory{Entries: []Entry{{Path: "b.txt"}, {Path: "a.txt"}, {Path: "c.txt"}}}

	data, err := MarshalDirectory(dir)
	if err != nil {
		t.Fatalf("MarshalDirectory failed: %v", err)
	}

	parsed, err := UnmarshalDirectory(data)
	if err != nil {
		t.Fatalf("UnmarshalDirectory failed: %v", err)
	}

	want := []string{"b.txt", "a.txt", "c.txt"}
	for i, w := range want {
		if parsed.Entries[i].Path != w {
			t.Fatalf("entry %d: got path %q, want %q", i, parsed.Entries[i].Path, w)
		}
	}
}

func TestUnmarshalDirectoryRejectsTruncated(t *testing.T) {
	if _, err := UnmarshalDirectory([]byte{1, 0}); err == nil {
		t.Fatal("expected error for truncated directory")
	}
}

func TestUnmarshalEntryRejectsTruncatedBody(t *testing.T) {
	dir := &Directory{Entries: []Entry{{Path: "a.txt", OriginalSize: 1}}}
	data, err := MarshalDirectory(dir)
	if err != nil {
		t.Fatalf("MarshalDirectory failed: %v", err)
	}

	if _, err := UnmarshalDirectory(data[:len(data)-4]); err == nil {
		t.Fatal("expected error for truncated entry body")
	}
}
