package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"

	"github.com/hambosto/secarc/internal/errs"
)

// brotliQuality is fixed rather than negotiated via the header: every
// archive compresses at quality 6.
const brotliQuality = 6

type brotliCodec struct{}

func (brotliCodec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	w := brotli.NewWriterLevel(&buf, brotliQuality)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("%w: brotli write: %v", errs.ErrCompressionError, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: brotli close: %v", errs.ErrCompressionError, err)
	}

	return buf.Bytes(), nil
}

func (brotliCodec) Decompress(data []byte) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(data))

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: brotli decompression failed: %v", errs.ErrCompressionError, err)
	}

	return out, nil
}
