package codec

import (
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/hambosto/secarc/internal/errs"
)

// zstdLevel is fixed rather than negotiated via the header: every
// archive compresses at the default (level 3) speed/ratio tradeoff.
const zstdLevel = zstd.SpeedDefault

type zstdCodec struct{}

func (zstdCodec) Compress(data []byte) ([]byte, error) {
	w, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstdLevel))
	if err != nil {
		return nil, fmt.Errorf("%w: zstd writer: %v", errs.ErrCompressionError, err)
	}
	defer w.Close()
	return w.EncodeAll(data, make([]byte, 0, len(data))), nil
}

func (zstdCodec) Decompress(data []byte) ([]byte, error) {
	r, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd reader: %v", errs.ErrCompressionError, err)
	}
	defer r.Close()

	out, err := r.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd decompression failed: %v", errs.ErrCompressionError, err)
	}
	return out, nil
}
