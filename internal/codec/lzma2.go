package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ulikunitz/xz/lzma"

	"github.com/hambosto/secarc/internal/errs"
)

// lzma2Codec implements the raw LZMA2 chunk-sequence codec from
// ulikunitz/xz/lzma — the same filter the .xz container format uses,
// without the surrounding container framing this archive does not need.
type lzma2Codec struct{}

func (lzma2Codec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	w, err := lzma.NewWriter2(&buf)
	if err != nil {
		return nil, fmt.Errorf("%w: lzma2 writer: %v", errs.ErrCompressionError, err)
	}

	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("%w: lzma2 write: %v", errs.ErrCompressionError, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: lzma2 close: %v", errs.ErrCompressionError, err)
	}

	return buf.Bytes(), nil
}

func (lzma2Codec) Decompress(data []byte) ([]byte, error) {
	r, err := lzma.NewReader2(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: lzma2 reader: %v", errs.ErrCompressionError, err)
	}

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: lzma2 decompression failed: %v", errs.ErrCompressionError, err)
	}

	return out, nil
}
