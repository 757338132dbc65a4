// Package archive implements the core operations exposed to external
// callers (CLI, GUI): create, open, unlock, list, and extract — a full
// key hierarchy, multi-file directory, and self-destruct state machine
// layered over length-prefixed binary I/O.
package archive

import (
	"crypto/rand"
	"fmt"
	"os"

	"github.com/hambosto/secarc/internal/aead"
	"github.com/hambosto/secarc/internal/codec"
	"github.com/hambosto/secarc/internal/counter"
	"github.com/hambosto/secarc/internal/errs"
	"github.com/hambosto/secarc/internal/format"
	"github.com/hambosto/secarc/internal/iofiles"
	"github.com/hambosto/secarc/internal/kdf"
)

// Config selects the algorithms and cost parameters for a new archive.
type Config struct {
	KDFParams     kdf.Params
	EncAlgorithm  aead.Algorithm
	CompAlgorithm codec.Algorithm
	MaxAttempts   uint32
}

// DefaultConfig returns AES-256-GCM, Zstd, Argon2id at its default cost,
// and a max-attempts of 10.
func DefaultConfig() Config {
	return Config{
		KDFParams:     kdf.DefaultParams(),
		EncAlgorithm:  aead.AES256GCM,
		CompAlgorithm: codec.Zstd,
		MaxAttempts:   10,
	}
}

func (c Config) validate() error {
	if c.MaxAttempts < format.MinMaxAttempts || c.MaxAttempts > format.MaxMaxAttempts {
		return fmt.Errorf("%w: max_attempts must be in [%d, %d], got %d", errs.ErrInvalidConfig, format.MinMaxAttempts, format.MaxMaxAttempts, c.MaxAttempts)
	}
	if err := c.KDFParams.Validate(); err != nil {
		return err
	}
	switch c.EncAlgorithm {
	case aead.AES256GCM, aead.ChaCha20Poly1305:
	default:
		return fmt.Errorf("%w: unknown encryption algorithm %d", errs.ErrInvalidConfig, c.EncAlgorithm)
	}
	if _, err := codec.For(c.CompAlgorithm); err != nil {
		return err
	}
	return nil
}

// Writer assembles an archive from added files and a password. One
// Writer builds exactly one archive.
type Writer struct {
	config    Config
	masterKey []byte
	entries   []format.Entry
	payload   []byte
	manager   *iofiles.Manager
}

// New allocates a fresh random master key and returns a Writer ready to
// accept files.
func New(config Config) (*Writer, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	masterKey := make([]byte, aead.KeySize)
	if _, err := rand.Read(masterKey); err != nil {
		return nil, fmt.Errorf("%w: generating master key: %v", errs.ErrKeyDerivationError, err)
	}

	return &Writer{
		config:    config,
		masterKey: masterKey,
		manager:   iofiles.NewManager(0),
	}, nil
}

// AddFile reads sourcePath from disk, compresses and AEAD-encrypts it
// under the master key, appends the ciphertext to the payload buffer,
// and records a FileEntry under archivePath.
func (w *Writer) AddFile(sourcePath, archivePath string) error {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", errs.ErrFileNotFound, sourcePath)
		}
		return fmt.Errorf("%w: reading %s: %v", errs.ErrIO, sourcePath, err)
	}

	info, err := os.Stat(sourcePath)
	if err != nil {
		return fmt.Errorf("%w: stat %s: %v", errs.ErrIO, sourcePath, err)
	}

	cdc, err := codec.For(w.config.CompAlgorithm)
	if err != nil {
		return err
	}

	compressed, err := cdc.Compress(data)
	if err != nil {
		return err
	}

	ciphertext, err := aead.Encrypt(compressed, w.masterKey, w.config.EncAlgorithm)
	if err != nil {
		return err
	}

	entry := format.Entry{
		Path:           archivePath,
		OriginalSize:   uint64(len(data)),
		CompressedSize: uint64(len(compressed)),
		EncryptedSize:  uint64(len(ciphertext)),
		ModTime:        uint64(info.ModTime().Unix()),
		Attributes:     uint32(info.Mode().Perm()),
		DataOffset:     uint64(len(w.payload)),
	}

	w.payload = append(w.payload, ciphertext...)
	w.entries = append(w.entries, entry)

	return nil
}

// WriteToFile derives the key hierarchy from password, wraps the master
// key into the primary slot, encrypts the directory, and writes the
// complete container to outputPath.
func (w *Writer) WriteToFile(outputPath string, password []byte) error {
	salt, err := kdf.GenerateSalt()
	if err != nil {
		return err
	}

	header := &format.Header{
		KDFAlgorithm:   w.config.KDFParams.Algorithm,
		KDFMemoryKB:    w.config.KDFParams.MemoryKB,
		KDFIterations:  w.config.KDFParams.Iterations,
		KDFParallelism: w.config.KDFParams.Parallelism,
		EncAlgorithm:   w.config.EncAlgorithm,
		CompAlgorithm:  w.config.CompAlgorithm,
		AttemptCounter: 0,
		MaxAttempts:    w.config.MaxAttempts,
		Destroyed:      false,
	}
	copy(header.Salt[:], salt)

	wrappingKey, err := kdf.Derive(password, salt, w.config.KDFParams)
	if err != nil {
		return err
	}

	integritySalt := kdf.IntegritySalt(salt)
	integrityKey, err := kdf.Derive(password, integritySalt, w.config.KDFParams)
	if err != nil {
		return err
	}

	wrappedKey, err := aead.Encrypt(w.masterKey, wrappingKey, w.config.EncAlgorithm)
	if err != nil {
		return err
	}

	slot := &format.KeySlot{
		SlotID:       format.PrimarySlotID,
		Active:       true,
		EncryptedKey: wrappedKey,
	}

	counter.New(integrityKey).Refresh(header)

	dirBytes, err := format.MarshalDirectory(&format.Directory{Entries: w.entries})
	if err != nil {
		return err
	}

	dirCiphertext, err := aead.Encrypt(dirBytes, w.masterKey, w.config.EncAlgorithm)
	if err != nil {
		return err
	}

	out, err := w.manager.CreateFile(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()

	if err := format.WriteMagic(out); err != nil {
		return err
	}
	if err := format.WriteLengthPrefixed32(out, header.Marshal()); err != nil {
		return err
	}
	if err := writeSlotCount(out, 1); err != nil {
		return err
	}
	if err := format.WriteKeySlot(out, slot); err != nil {
		return err
	}
	if err := format.WriteLengthPrefixed64(out, dirCiphertext); err != nil {
		return err
	}
	if err := format.WriteLengthPrefixed64(out, w.payload); err != nil {
		return err
	}

	return out.Sync()
}

func writeSlotCount(w interface{ Write([]byte) (int, error) }, n uint32) error {
	buf := []byte{byte(n), byte(n >> 8), byte(n >> 16), byte(n >> 24)}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("%w: writing slot count: %v", errs.ErrIO, err)
	}
	return nil
}
