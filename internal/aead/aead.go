// Package aead provides authenticated encryption with a freshly random
// nonce prefixed to every ciphertext, selected by algorithm identifier.
package aead

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/hambosto/secarc/internal/errs"
)

// Algorithm identifies the AEAD cipher, stored as a single byte in the
// security header.
type Algorithm uint8

const (
	AES256GCM        Algorithm = 1
	ChaCha20Poly1305 Algorithm = 2
)

// KeySize is the size, in bytes, required of every key passed to
// Encrypt or Decrypt.
const KeySize = 32

// aeadFor constructs the cipher.AEAD implementation for algo.
func aeadFor(algo Algorithm, key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", errs.ErrEncryptionError, KeySize, len(key))
	}

	switch algo {
	case AES256GCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrEncryptionError, err)
		}
		return cipher.NewGCM(block)
	case ChaCha20Poly1305:
		return chacha20poly1305.New(key)
	default:
		return nil, fmt.Errorf("%w: unknown aead algorithm %d", errs.ErrInvalidConfig, algo)
	}
}

// Encrypt seals plaintext under key using algo, returning nonce ||
// ciphertext || tag. A fresh random nonce is generated for every call;
// nonces are never reused across messages under the same key.
func Encrypt(plaintext, key []byte, algo Algorithm) ([]byte, error) {
	a, err := aeadFor(algo, key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, a.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("%w: failed to generate nonce: %v", errs.ErrEncryptionError, err)
	}

	return a.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a blob produced by Encrypt. Any tampering with the
// nonce, ciphertext, or tag causes it to fail.
func Decrypt(blob, key []byte, algo Algorithm) ([]byte, error) {
	a, err := aeadFor(algo, key)
	if err != nil {
		return nil, err
	}

	nonceSize := a.NonceSize()
	if len(blob) < nonceSize {
		return nil, fmt.Errorf("%w: ciphertext shorter than nonce", errs.ErrEncryptionError)
	}

	nonce, ciphertext := blob[:nonceSize], blob[nonceSize:]
	plaintext, err := a.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrEncryptionError, err)
	}

	return plaintext, nil
}
