package domain

// StreamMapper turns one raw API record into a Stream.
// Implementations must be pure: the same record always maps to the same Stream.
type StreamMapper interface {
	Map(raw RawStreamRecord) (Stream, error)
}

// StreamMapperFunc adapts a plain function to StreamMapper.
type StreamMapperFunc func(raw RawStreamRecord) (Stream, error)

func (f StreamMapperFunc) Map(raw RawStreamRecord) (Stream, error) {
	return f(raw)
}
