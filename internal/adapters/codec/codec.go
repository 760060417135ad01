// Package codec provides batch payload compression backed by
// klauspost/compress.
package codec

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"

	"github.com/bft-labs/batchship/internal/domain"
	"github.com/bft-labs/batchship/internal/ports"
)

// Codec names.
const (
	NameZlib = "zlib"
	NameGzip = "gzip"
	NameZstd = "zstd"
)

// New returns the codec registered under name.
func New(name string) (ports.Codec, error) {
	switch name {
	case NameZlib, "":
		return Zlib{}, nil
	case NameGzip:
		return Gzip{}, nil
	case NameZstd:
		return NewZstd()
	default:
		return nil, fmt.Errorf("%w: unknown compression %q", domain.ErrInvalidConfig, name)
	}
}

// Zlib is RFC 1950 framed deflate, sent as Content-Encoding "deflate".
type Zlib struct{}

func (Zlib) Name() string            { return NameZlib }
func (Zlib) ContentEncoding() string { return "deflate" }

func (Zlib) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (Zlib) Decompress(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Gzip is RFC 1952 gzip.
type Gzip struct{}

func (Gzip) Name() string            { return NameGzip }
func (Gzip) ContentEncoding() string { return "gzip" }

func (Gzip) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (Gzip) Decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Zstd holds a shared encoder and decoder; both are safe for concurrent
// EncodeAll and DecodeAll calls.
type Zstd struct {
	once sync.Once
	enc  *zstd.Encoder
	dec  *zstd.Decoder
}

// NewZstd creates a zstd codec.
func NewZstd() (*Zstd, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Zstd{enc: enc, dec: dec}, nil
}

func (*Zstd) Name() string            { return NameZstd }
func (*Zstd) ContentEncoding() string { return "zstd" }

func (z *Zstd) Compress(data []byte) ([]byte, error) {
	return z.enc.EncodeAll(data, nil), nil
}

func (z *Zstd) Decompress(data []byte) ([]byte, error) {
	return z.dec.DecodeAll(data, nil)
}

// Close releases the decoder's goroutines.
func (z *Zstd) Close() error {
	z.once.Do(func() {
		z.dec.Close()
		_ = z.enc.Close()
	})
	return nil
}
