package session

// One-shot entry points for callers that do not want to manage a session.
// Each call creates and releases a throwaway session; reuse a session when
// calling in a loop.

// Compress compresses src with a fresh compression session and default
// configuration.
func Compress(src []byte, opts ...Option) ([]byte, error) {
	s, err := NewCompression(opts...)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.Compress(src)
}

// Decompress decodes a serial frame with a fresh decompression session.
func Decompress(frame []byte, opts ...Option) ([]byte, error) {
	s, err := NewDecompression(opts...)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.Decompress(frame)
}
