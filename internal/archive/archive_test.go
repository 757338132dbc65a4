package archive

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/hambosto/secarc/internal/aead"
	"github.com/hambosto/secarc/internal/codec"
	"github.com/hambosto/secarc/internal/errs"
	"github.com/hambosto/secarc/internal/kdf"
)

// fastParams trades Argon2id's real-world cost for test speed; the
// algorithm and code paths under test are identical either way.
func fastParams() kdf.Params {
	return kdf.Params{
		Algorithm:   kdf.Argon2ID,
		MemoryKB:    kdf.MinArgonMemoryKB,
		Iterations:  1,
		Parallelism: 1,
	}
}

func buildArchive(t *testing.T, dir string, config Config, password []byte, files map[string]string) string {
	t.Helper()

	w, err := New(config)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// Add files in sorted path order so insertion order is deterministic.
	archivePaths := make([]string, 0, len(files))
	for archivePath := range files {
		archivePaths = append(archivePaths, archivePath)
	}
	sort.Strings(archivePaths)

	for _, archivePath := range archivePaths {
		content := files[archivePath]
		srcPath := filepath.Join(dir, filepath.Base(archivePath)+".src")
		if err := os.WriteFile(srcPath, []byte(content), 0o644); err != nil {
			t.Fatalf("writing source file: %v", err)
		}
		if err := w.AddFile(srcPath, archivePath); err != nil {
			t.Fatalf("AddFile(%s) failed: %v", archivePath, err)
		}
	}

	archivePath := filepath.Join(dir, "a.secarc")
	if err := w.WriteToFile(archivePath, password); err != nil {
		t.Fatalf("WriteToFile failed: %v", err)
	}

	return archivePath
}

// TestRoundTrip mirrors the basic create-unlock-extract scenario: a
// single file survives create, open, unlock, and extract bit-exactly.
func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	config := DefaultConfig()
	config.KDFParams = fastParams()
	config.MaxAttempts = 3

	archivePath := buildArchive(t, dir, config, []byte("hunter2"), map[string]string{
		"greet.txt": "Hi\n",
	})

	r, err := Open(archivePath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()

	if err := r.Unlock([]byte("hunter2")); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}

	outPath := filepath.Join(dir, "greet.out")
	if err := r.ExtractFile("greet.txt", outPath); err != nil {
		t.Fatalf("ExtractFile failed: %v", err)
	}

	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("reading extracted file: %v", err)
	}
	if string(got) != "Hi\n" {
		t.Fatalf("got %q, want %q", got, "Hi\n")
	}
}

// TestExtractFilePayloadTamperIsIntegrityCheckFailed covers the
// payload-tamper path: a flipped byte in a file's encrypted payload
// must fail extraction as IntegrityCheckFailed, not a raw AEAD error.
func TestExtractFilePayloadTamperIsIntegrityCheckFailed(t *testing.T) {
	dir := t.TempDir()
	config := DefaultConfig()
	config.KDFParams = fastParams()
	config.MaxAttempts = 3

	archivePath := buildArchive(t, dir, config, []byte("hunter2"), map[string]string{
		"greet.txt": "Hi\n",
	})

	fi, err := os.Stat(archivePath)
	if err != nil {
		t.Fatalf("stat archive: %v", err)
	}

	f, err := os.OpenFile(archivePath, os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("opening archive for tamper: %v", err)
	}
	lastByteOffset := fi.Size() - 1
	buf := make([]byte, 1)
	if _, err := f.ReadAt(buf, lastByteOffset); err != nil {
		t.Fatalf("reading payload byte: %v", err)
	}
	buf[0] = ^buf[0]
	if _, err := f.WriteAt(buf, lastByteOffset); err != nil {
		t.Fatalf("writing tampered payload byte: %v", err)
	}
	f.Close()

	r, err := Open(archivePath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()

	if err := r.Unlock([]byte("hunter2")); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}

	outPath := filepath.Join(dir, "greet.out")
	if err := r.ExtractFile("greet.txt", outPath); !errors.Is(err, errs.ErrIntegrityCheckFailed) {
		t.Fatalf("expected IntegrityCheckFailed for a tampered payload, got %v", err)
	}
}

// TestWrongPasswordThenDestroy mirrors the three-strikes scenario: two
// wrong passwords persist an incrementing counter, the third crosses
// max_attempts and destroys the archive, and a fourth open is rejected
// outright.
func TestWrongPasswordThenDestroy(t *testing.T) {
	dir := t.TempDir()
	config := DefaultConfig()
	config.KDFParams = fastParams()
	config.MaxAttempts = 3

	archivePath := buildArchive(t, dir, config, []byte("hunter2"), map[string]string{
		"greet.txt": "Hi\n",
	})

	for i, wrong := range []string{"wrong1", "wrong2"} {
		r, err := Open(archivePath)
		if err != nil {
			t.Fatalf("Open #%d failed: %v", i+1, err)
		}
		err = r.Unlock([]byte(wrong))
		r.Close()
		if !errors.Is(err, errs.ErrInvalidPassword) {
			t.Fatalf("attempt %d: expected InvalidPassword, got %v", i+1, err)
		}
	}

	r, err := Open(archivePath)
	if err != nil {
		t.Fatalf("Open before destroying attempt failed: %v", err)
	}
	err = r.Unlock([]byte("wrong3"))
	r.Close()
	if !errors.Is(err, errs.ErrMaxAttemptsExceeded) {
		t.Fatalf("expected MaxAttemptsExceeded on the destroying attempt, got %v", err)
	}

	if _, err := Open(archivePath); !errors.Is(err, errs.ErrArchiveDestroyed) {
		t.Fatalf("expected ArchiveDestroyed on open after destruction, got %v", err)
	}
}

// TestCounterDoesNotResetOnSuccess mirrors the scenario where a
// successful unlock follows wrong attempts: the counter carries the
// prior failures forward rather than resetting.
func TestCounterDoesNotResetOnSuccess(t *testing.T) {
	dir := t.TempDir()
	config := DefaultConfig()
	config.KDFParams = fastParams()
	config.MaxAttempts = 5

	archivePath := buildArchive(t, dir, config, []byte("p"), map[string]string{
		"f.txt": "data",
	})

	for i := 0; i < 2; i++ {
		r, err := Open(archivePath)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		if err := r.Unlock([]byte("wrong")); !errors.Is(err, errs.ErrInvalidPassword) {
			t.Fatalf("expected InvalidPassword, got %v", err)
		}
		r.Close()
	}

	r, err := Open(archivePath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()

	if info := r.Info(); info.AttemptCount != 2 {
		t.Fatalf("expected attempt count 2 before unlock, got %d", info.AttemptCount)
	}

	if err := r.Unlock([]byte("p")); err != nil {
		t.Fatalf("Unlock with correct password failed: %v", err)
	}

	if info := r.Info(); info.AttemptCount != 2 {
		t.Fatalf("expected attempt count to remain 2 after a successful unlock, got %d", info.AttemptCount)
	}
}

// TestHeaderByteFlip mirrors a single-byte header tamper: the archive
// still opens (structural parse succeeds) but unlock with the correct
// password fails and persists a counter increment.
func TestHeaderByteFlip(t *testing.T) {
	dir := t.TempDir()
	config := DefaultConfig()
	config.KDFParams = fastParams()
	config.MaxAttempts = 3

	archivePath := buildArchive(t, dir, config, []byte("hunter2"), map[string]string{
		"greet.txt": "Hi\n",
	})

	f, err := os.OpenFile(archivePath, os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("opening archive for tamper: %v", err)
	}
	const headerByteOffset = 12 // magic(8) + header_len(4)
	buf := make([]byte, 1)
	if _, err := f.ReadAt(buf, headerByteOffset); err != nil {
		t.Fatalf("reading header byte: %v", err)
	}
	buf[0] = ^buf[0]
	if _, err := f.WriteAt(buf, headerByteOffset); err != nil {
		t.Fatalf("writing tampered header byte: %v", err)
	}
	f.Close()

	r, err := Open(archivePath)
	if err != nil {
		t.Fatalf("expected Open to succeed on a structurally intact but tampered header, got %v", err)
	}
	defer r.Close()

	if err := r.Unlock([]byte("hunter2")); !errors.Is(err, errs.ErrInvalidPassword) {
		t.Fatalf("expected InvalidPassword after header tamper, got %v", err)
	}

	if info := r.Info(); info.AttemptCount != 1 {
		t.Fatalf("expected attempt count 1 after the tampered unlock, got %d", info.AttemptCount)
	}
}

// TestChaChaBrotliCombination repeats the basic round trip under the
// alternate cipher and compressor.
func TestChaChaBrotliCombination(t *testing.T) {
	dir := t.TempDir()
	config := Config{
		KDFParams:     fastParams(),
		EncAlgorithm:  aead.ChaCha20Poly1305,
		CompAlgorithm: codec.Brotli,
		MaxAttempts:   10,
	}

	archivePath := buildArchive(t, dir, config, []byte("hunter2"), map[string]string{
		"greet.txt": "Hi\n",
	})

	r, err := Open(archivePath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()

	if err := r.Unlock([]byte("hunter2")); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}

	outPath := filepath.Join(dir, "greet.out")
	if err := r.ExtractFile("greet.txt", outPath); err != nil {
		t.Fatalf("ExtractFile failed: %v", err)
	}

	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("reading extracted file: %v", err)
	}
	if string(got) != "Hi\n" {
		t.Fatalf("got %q, want %q", got, "Hi\n")
	}
}

// TestMultipleFilesIndependentExtraction mirrors extracting one of
// several archived files without reading the others' payload bytes.
func TestMultipleFilesIndependentExtraction(t *testing.T) {
	dir := t.TempDir()
	config := DefaultConfig()
	config.KDFParams = fastParams()
	config.MaxAttempts = 3

	archivePath := buildArchive(t, dir, config, []byte("p"), map[string]string{
		"a.txt": "A",
		"b.txt": "BB",
	})

	r, err := Open(archivePath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()

	if err := r.Unlock([]byte("p")); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}

	files, err := r.ListFiles()
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if len(files) != 2 || files[0] != "a.txt" || files[1] != "b.txt" {
		t.Fatalf("expected [a.txt b.txt] in insertion order, got %v", files)
	}

	outPath := filepath.Join(dir, "b.out")
	if err := r.ExtractFile("b.txt", outPath); err != nil {
		t.Fatalf("ExtractFile failed: %v", err)
	}

	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("reading extracted file: %v", err)
	}
	if string(got) != "BB" {
		t.Fatalf("got %q, want %q", got, "BB")
	}
}

func TestInfoAvailableBeforeUnlock(t *testing.T) {
	dir := t.TempDir()
	config := DefaultConfig()
	config.KDFParams = fastParams()
	config.MaxAttempts = 7

	archivePath := buildArchive(t, dir, config, []byte("p"), map[string]string{"f.txt": "x"})

	r, err := Open(archivePath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer r.Close()

	info := r.Info()
	if info.MaxAttempts != 7 || info.AttemptCount != 0 || info.FileCount != 0 || info.Destroyed {
		t.Fatalf("unexpected Info before unlock: %+v", info)
	}
}
