package codec

// noneCodec passes data through unmodified, for callers that disable
// compression entirely.
type noneCodec struct{}

func (noneCodec) Compress(data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (noneCodec) Decompress(data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
