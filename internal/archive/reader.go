package archive

import (
	"crypto/rand"
	"fmt"
	"io"
	"os"

	"github.com/hambosto/secarc/internal/aead"
	"github.com/hambosto/secarc/internal/codec"
	"github.com/hambosto/secarc/internal/counter"
	"github.com/hambosto/secarc/internal/destroy"
	"github.com/hambosto/secarc/internal/errs"
	"github.com/hambosto/secarc/internal/format"
	"github.com/hambosto/secarc/internal/iofiles"
	"github.com/hambosto/secarc/internal/kdf"
)

// State is the archive instance's position in its lifecycle.
type State int

const (
	// StateParsed is the state after Open: the header has been parsed
	// and validated structurally, but no password has been accepted yet.
	StateParsed State = iota
	// StateUnlocked is the state after a successful Unlock: the master
	// key is held in memory and ListFiles/ExtractFile are available.
	StateUnlocked
	// StateDestroyed is the terminal state reached once the attempt
	// counter hits max_attempts. No further unlock attempts are possible.
	StateDestroyed
)

// Info summarizes an archive's attempt-counter and destruction status
// without requiring it to be unlocked.
type Info struct {
	MaxAttempts       uint32
	AttemptCount      uint32
	AttemptsRemaining uint32
	Destroyed         bool
	FileCount         int
}

type slotOffset struct {
	slot       *format.KeySlot
	bodyOffset int64
}

// Reader opens an existing archive and, once unlocked, exposes its
// directory and file contents. One Reader corresponds to one open file
// handle; it is not safe for concurrent use.
type Reader struct {
	file    *os.File
	manager *iofiles.Manager

	header      *format.Header
	slotOffsets []slotOffset

	dirOffset int64
	dirLen    uint64

	payloadOffset int64
	payloadLen    uint64

	masterKey []byte
	directory *format.Directory

	state State
}

// Open parses the container at path: magic, header, key slots, and the
// location (not the content) of the directory ciphertext and payload
// region. A destroyed archive is rejected here, right after parsing and
// before a Reader is ever returned, matching the state machine's "open
// on a destroyed archive never reaches Parsed" rule.
func Open(path string) (*Reader, error) {
	manager := iofiles.NewManager(0)

	f, err := manager.OpenReadWrite(path)
	if err != nil {
		return nil, err
	}

	r := &Reader{file: f, manager: manager, state: StateParsed}

	if err := r.parse(); err != nil {
		f.Close()
		return nil, err
	}

	if r.header.Destroyed {
		f.Close()
		return nil, fmt.Errorf("%w", errs.ErrArchiveDestroyed)
	}

	return r, nil
}

func (r *Reader) parse() error {
	if err := format.ReadMagic(r.file); err != nil {
		return err
	}

	headerBytes, err := format.ReadLengthPrefixed32(r.file)
	if err != nil {
		return err
	}

	header, err := format.UnmarshalHeader(headerBytes)
	if err != nil {
		return err
	}
	// Only the structural attempt-counter bound is enforced here. Algorithm
	// identity is not: a tampered header with an invalid algorithm id must
	// still parse so the tamper is caught by HMAC verification in Unlock,
	// not mistaken for a corrupt file at Open.
	if header.AttemptCounter > header.MaxAttempts {
		return fmt.Errorf("%w: attempt_counter %d exceeds max_attempts %d", errs.ErrHeaderCorrupted, header.AttemptCounter, header.MaxAttempts)
	}
	if header.MaxAttempts < format.MinMaxAttempts || header.MaxAttempts > format.MaxMaxAttempts {
		return fmt.Errorf("%w: max_attempts must be in [%d, %d], got %d", errs.ErrHeaderCorrupted, format.MinMaxAttempts, format.MaxMaxAttempts, header.MaxAttempts)
	}
	r.header = header

	slotCountBuf := make([]byte, 4)
	if _, err := io.ReadFull(r.file, slotCountBuf); err != nil {
		return fmt.Errorf("%w: reading slot count: %v", errs.ErrFormatError, err)
	}
	slotCount := uint32(slotCountBuf[0]) | uint32(slotCountBuf[1])<<8 | uint32(slotCountBuf[2])<<16 | uint32(slotCountBuf[3])<<24
	if slotCount == 0 {
		return fmt.Errorf("%w: archive has no key slots", errs.ErrFormatError)
	}

	for i := uint32(0); i < slotCount; i++ {
		slotLenBuf := make([]byte, 4)
		if _, err := io.ReadFull(r.file, slotLenBuf); err != nil {
			return fmt.Errorf("%w: reading slot length: %v", errs.ErrFormatError, err)
		}
		slotLen := uint32(slotLenBuf[0]) | uint32(slotLenBuf[1])<<8 | uint32(slotLenBuf[2])<<16 | uint32(slotLenBuf[3])<<24

		bodyOffset, err := r.file.Seek(0, io.SeekCurrent)
		if err != nil {
			return fmt.Errorf("%w: %v", errs.ErrIO, err)
		}

		body := make([]byte, slotLen)
		if _, err := io.ReadFull(r.file, body); err != nil {
			return fmt.Errorf("%w: reading slot body: %v", errs.ErrFormatError, err)
		}

		slot, err := format.UnmarshalKeySlot(body)
		if err != nil {
			return err
		}

		r.slotOffsets = append(r.slotOffsets, slotOffset{slot: slot, bodyOffset: bodyOffset})
	}

	dirLen, err := format.ReadLengthPrefixed64Header(r.file)
	if err != nil {
		return err
	}
	dirOffset, err := r.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}
	r.dirOffset = dirOffset
	r.dirLen = dirLen

	if _, err := r.file.Seek(int64(dirLen), io.SeekCurrent); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}

	payloadLen, err := format.ReadLengthPrefixed64Header(r.file)
	if err != nil {
		return err
	}
	payloadOffset, err := r.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}
	r.payloadOffset = payloadOffset
	r.payloadLen = payloadLen

	return nil
}

func (r *Reader) findSlot(id byte) *format.KeySlot {
	for _, so := range r.slotOffsets {
		if so.slot.SlotID == id && so.slot.Active {
			return so.slot
		}
	}
	return nil
}

// Unlock attempts to open the archive with password, following the
// mandatory order: reject if destroyed, verify the header's integrity
// tag, then decrypt the primary key slot. Any failure along this path
// increments the attempt counter and persists the header before
// returning, and is reported identically as InvalidPassword regardless
// of which step actually failed — except that crossing max_attempts
// destroys the archive and reports MaxAttemptsExceeded instead.
func (r *Reader) Unlock(password []byte) error {
	if r.state == StateDestroyed || r.header.Destroyed {
		return fmt.Errorf("%w", errs.ErrArchiveDestroyed)
	}

	integritySalt := kdf.IntegritySalt(r.header.Salt[:])
	integrityKey, err := kdf.Derive(password, integritySalt, r.header.KDFParams())
	if err != nil {
		// The header's own KDF parameters are exactly what HMAC
		// verification authenticates. If they're too corrupted to even
		// derive a key, fall through to verification with a fresh random
		// key instead of surfacing a distinct configuration error — a
		// fixed fallback (all-zero, say) would let a corrupted header
		// converge onto a key an attacker could predict and reuse across
		// repeated attempts.
		integrityKey = make([]byte, kdf.KeyLength)
		if _, randErr := rand.Read(integrityKey); randErr != nil {
			return fmt.Errorf("%w: %v", errs.ErrKeyDerivationError, randErr)
		}
	}

	ac := counter.New(integrityKey)
	if !ac.Verify(r.header) {
		return r.failAttempt(ac)
	}

	wrappingKey, err := kdf.Derive(password, r.header.Salt[:], r.header.KDFParams())
	if err != nil {
		return err
	}

	slot := r.findSlot(format.PrimarySlotID)
	if slot == nil {
		return r.failAttempt(ac)
	}

	masterKey, err := aead.Decrypt(slot.EncryptedKey, wrappingKey, r.header.EncAlgorithm)
	if err != nil || len(masterKey) != aead.KeySize {
		return r.failAttempt(ac)
	}

	if _, err := r.file.Seek(r.dirOffset, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}
	dirCiphertext := make([]byte, r.dirLen)
	if _, err := io.ReadFull(r.file, dirCiphertext); err != nil {
		return fmt.Errorf("%w: reading directory: %v", errs.ErrIO, err)
	}

	dirPlain, err := aead.Decrypt(dirCiphertext, masterKey, r.header.EncAlgorithm)
	if err != nil {
		return fmt.Errorf("%w: directory failed authentication", errs.ErrIntegrityCheckFailed)
	}

	directory, err := format.UnmarshalDirectory(dirPlain)
	if err != nil {
		return err
	}

	r.masterKey = masterKey
	r.directory = directory
	r.state = StateUnlocked
	return nil
}

// failAttempt increments the attempt counter under ac, destroys the
// archive if that increment crosses max_attempts, persists the header
// (and, if destroyed, the key slots) to disk, and returns the error the
// caller should see.
func (r *Reader) failAttempt(ac *counter.AttemptCounter) error {
	if err := ac.Increment(r.header); err != nil {
		return err
	}

	destroyedNow := counter.AtLimit(r.header)
	if destroyedNow {
		slots := make([]*format.KeySlot, 0, len(r.slotOffsets))
		for _, so := range r.slotOffsets {
			slots = append(slots, so.slot)
		}
		if err := destroy.Destroy(r.header, slots); err != nil {
			return err
		}
	}

	if err := r.persist(); err != nil {
		return err
	}

	if destroyedNow {
		r.state = StateDestroyed
		return fmt.Errorf("%w", errs.ErrMaxAttemptsExceeded)
	}

	return fmt.Errorf("%w", errs.ErrInvalidPassword)
}

// persist rewrites the header and every key slot in place at their
// parsed offsets, then flushes to disk. Slots are rewritten on every
// call, changed or not; self-destruct keeps each slot's length, so the
// rewritten bytes fit exactly where the old ones were.
func (r *Reader) persist() error {
	if _, err := r.file.Seek(int64(format.HeaderOffset), io.SeekStart); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}
	if _, err := r.file.Write(r.header.Marshal()); err != nil {
		return fmt.Errorf("%w: persisting header: %v", errs.ErrIO, err)
	}

	for _, so := range r.slotOffsets {
		if _, err := r.file.Seek(so.bodyOffset, io.SeekStart); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrIO, err)
		}
		if _, err := r.file.Write(so.slot.Marshal()); err != nil {
			return fmt.Errorf("%w: persisting key slot: %v", errs.ErrIO, err)
		}
	}

	return r.file.Sync()
}

// ListFiles returns every archived path. It requires the archive to be
// unlocked.
func (r *Reader) ListFiles() ([]string, error) {
	if r.state != StateUnlocked {
		return nil, fmt.Errorf("%w: archive is not unlocked", errs.ErrInvalidPassword)
	}

	paths := make([]string, 0, len(r.directory.Entries))
	for _, e := range r.directory.Entries {
		paths = append(paths, e.Path)
	}
	return paths, nil
}

// Info reports the archive's attempt-counter state. It is available
// whether or not the archive has been unlocked.
func (r *Reader) Info() Info {
	info := Info{
		MaxAttempts:  r.header.MaxAttempts,
		AttemptCount: r.header.AttemptCounter,
		Destroyed:    r.header.Destroyed,
	}
	if info.MaxAttempts > info.AttemptCount {
		info.AttemptsRemaining = info.MaxAttempts - info.AttemptCount
	}
	if r.state == StateUnlocked {
		info.FileCount = len(r.directory.Entries)
	}
	return info
}

// ExtractFile decrypts and decompresses the archived file at
// archivePath, writing the original bytes to outputPath. It seeks
// directly to the file's region of the payload rather than reading the
// whole payload into memory, and does not touch the attempt counter:
// the directory has already been authenticated during Unlock.
func (r *Reader) ExtractFile(archivePath, outputPath string) error {
	if r.state != StateUnlocked {
		return fmt.Errorf("%w: archive is not unlocked", errs.ErrInvalidPassword)
	}

	var entry *format.Entry
	for i := range r.directory.Entries {
		if r.directory.Entries[i].Path == archivePath {
			entry = &r.directory.Entries[i]
			break
		}
	}
	if entry == nil {
		return fmt.Errorf("%w: %s", errs.ErrFileNotFound, archivePath)
	}

	if _, err := r.file.Seek(r.payloadOffset+int64(entry.DataOffset), io.SeekStart); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}

	ciphertext := make([]byte, entry.EncryptedSize)
	if _, err := io.ReadFull(r.file, ciphertext); err != nil {
		return fmt.Errorf("%w: reading payload for %s: %v", errs.ErrIO, archivePath, err)
	}

	compressed, err := aead.Decrypt(ciphertext, r.masterKey, r.header.EncAlgorithm)
	if err != nil {
		return fmt.Errorf("%w: payload failed authentication for %s", errs.ErrIntegrityCheckFailed, archivePath)
	}

	cdc, err := codec.For(r.header.CompAlgorithm)
	if err != nil {
		return err
	}

	original, err := cdc.Decompress(compressed)
	if err != nil {
		return err
	}

	out, err := r.manager.CreateFile(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := out.Write(original); err != nil {
		return fmt.Errorf("%w: writing %s: %v", errs.ErrIO, outputPath, err)
	}

	return out.Sync()
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	return r.file.Close()
}
