// Package codec compresses and decompresses in-memory buffers under a
// selectable algorithm, as a small registry keyed by the algorithm
// identifier stored in the security header. There is no streaming API:
// every codec operates on a whole buffer at once.
package codec

import (
	"fmt"

	"github.com/hambosto/secarc/internal/errs"
)

// Algorithm identifies the compression scheme, stored as a single byte
// in the security header.
type Algorithm uint8

const (
	None   Algorithm = 0
	LZMA2  Algorithm = 1
	Zstd   Algorithm = 2
	Brotli Algorithm = 3
)

// Codec compresses and decompresses byte buffers.
type Codec interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// For returns the Codec implementation for algo.
func For(algo Algorithm) (Codec, error) {
	switch algo {
	case None:
		return noneCodec{}, nil
	case LZMA2:
		return lzma2Codec{}, nil
	case Zstd:
		return zstdCodec{}, nil
	case Brotli:
		return brotliCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown compression algorithm %d", errs.ErrInvalidConfig, algo)
	}
}
