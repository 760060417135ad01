package ports

// Codec compresses batch payloads on the store side and decompresses them on
// the diagnostic path.
type Codec interface {
	// Name is the codec identifier ("zlib", "gzip", "zstd").
	Name() string

	// ContentEncoding is the HTTP Content-Encoding token for payloads.
	ContentEncoding() string

	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}
