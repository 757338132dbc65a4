// Package iofiles provides the file-system operations the archive core
// needs around its own I/O: creating output files, opening sources, and
// optionally shredding a plaintext source file a caller has just
// archived. Choosing which files to archive (directory walking) is left
// to callers; this package only handles individual paths.
package iofiles

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hambosto/secarc/internal/errs"
)

// DeleteOption selects how Remove disposes of a file.
type DeleteOption int

const (
	// DeleteStandard performs a normal, recoverable removal.
	DeleteStandard DeleteOption = iota
	// DeleteSecure overwrites the file's contents with random bytes
	// before removing it. This shreds the caller-chosen source file; it
	// is not the archive's own storage medium and is unrelated to the
	// spec's documented secure-erase non-goal for the archive itself.
	DeleteSecure
)

// Manager performs file creation, opening, validation, and optional
// secure deletion, with a configurable number of overwrite passes.
type Manager struct {
	overwritePasses int
}

// NewManager returns a Manager with the given number of secure-delete
// overwrite passes. A non-positive value defaults to 3.
func NewManager(overwritePasses int) *Manager {
	if overwritePasses <= 0 {
		overwritePasses = 3
	}
	return &Manager{overwritePasses: overwritePasses}
}

// ValidatePath checks whether a path's existence matches mustExist,
// returning errs.ErrFileNotFound or a conflict error otherwise.
func (m *Manager) ValidatePath(path string, mustExist bool) error {
	info, err := os.Stat(path)

	if mustExist {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", errs.ErrFileNotFound, path)
		}
		if err != nil {
			return fmt.Errorf("%w: %v", errs.ErrIO, err)
		}
		if info.Size() == 0 {
			return fmt.Errorf("%w: file is empty: %s", errs.ErrIO, path)
		}
		return nil
	}

	if err == nil {
		return fmt.Errorf("%w: file already exists: %s", errs.ErrIO, path)
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}
	return nil
}

// CreateFile creates and returns a new file at path.
func (m *Manager) CreateFile(path string) (*os.File, error) {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("%w: creating %s: %v", errs.ErrIO, path, err)
	}
	return f, nil
}

// OpenFile opens path read-only and returns the handle and its metadata.
func (m *Manager) OpenFile(path string) (*os.File, os.FileInfo, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: opening %s: %v", errs.ErrIO, path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("%w: stat %s: %v", errs.ErrIO, path, err)
	}
	return f, info, nil
}

// OpenReadWrite opens path for reading and writing, without truncating.
// The archive Reader uses this so a failed unlock's counter increment
// can be committed in place.
func (m *Manager) OpenReadWrite(path string) (*os.File, error) {
	f, err := os.OpenFile(filepath.Clean(path), os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", errs.ErrIO, path, err)
	}
	return f, nil
}

// Remove deletes path using the given DeleteOption.
func (m *Manager) Remove(path string, option DeleteOption) error {
	switch option {
	case DeleteStandard:
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrIO, err)
		}
		return nil
	case DeleteSecure:
		return m.secureDelete(path)
	default:
		return fmt.Errorf("%w: unsupported delete option %v", errs.ErrInvalidConfig, option)
	}
}

func (m *Manager) secureDelete(path string) error {
	f, err := os.OpenFile(filepath.Clean(path), os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("%w: opening for secure delete: %v", errs.ErrIO, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: stat before secure delete: %v", errs.ErrIO, err)
	}

	for pass := 0; pass < m.overwritePasses; pass++ {
		if err := randomOverwrite(f, info.Size()); err != nil {
			return fmt.Errorf("%w: secure overwrite pass %d: %v", errs.ErrIO, pass+1, err)
		}
	}

	return os.Remove(path)
}

func randomOverwrite(f *os.File, size int64) error {
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}

	buffer := make([]byte, 4096)
	remaining := size

	for remaining > 0 {
		writeSize := int64(len(buffer))
		if remaining < writeSize {
			writeSize = remaining
		}

		if _, err := rand.Read(buffer[:writeSize]); err != nil {
			return err
		}
		if _, err := f.Write(buffer[:writeSize]); err != nil {
			return err
		}

		remaining -= writeSize
	}

	return f.Sync()
}
