package serialize

import (
	"bytes"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4"
)

// CompressionCodec selects the block compressor used for payload streams,
// per spec §7's "compressed: bool" flag generalized into a real enum (§2 of
// SPEC_FULL.md wires all three of the reference corpus's compression
// dependencies rather than hardcoding one).
type CompressionCodec uint8

const (
	CodecNone CompressionCodec = iota
	CodecSnappy
	CodecLZ4
	CodecZstd
)

func (c CompressionCodec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecSnappy:
		return "snappy"
	case CodecLZ4:
		return "lz4"
	case CodecZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

func (c CompressionCodec) compress(data []byte) ([]byte, error) {
	switch c {
	case CodecNone:
		return data, nil
	case CodecSnappy:
		return snappy.Encode(nil, data), nil
	case CodecLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, newCompressionError("lz4 compress: %v", err)
		}
		if err := w.Close(); err != nil {
			return nil, newCompressionError("lz4 compress: %v", err)
		}
		return buf.Bytes(), nil
	case CodecZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, newCompressionError("zstd writer: %v", err)
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	default:
		return nil, newCompressionError("unknown codec %d", c)
	}
}

func (c CompressionCodec) decompress(data []byte, uncompressedSize uint64) ([]byte, error) {
	switch c {
	case CodecNone:
		return data, nil
	case CodecSnappy:
		out, err := snappy.Decode(nil, data)
		if err != nil {
			return nil, newCompressionError("snappy decompress: %v", err)
		}
		return out, nil
	case CodecLZ4:
		r := lz4.NewReader(bytes.NewReader(data))
		out := make([]byte, 0, uncompressedSize)
		buf := bytes.NewBuffer(out)
		if _, err := io.Copy(buf, r); err != nil {
			return nil, newCompressionError("lz4 decompress: %v", err)
		}
		return buf.Bytes(), nil
	case CodecZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, newCompressionError("zstd reader: %v", err)
		}
		defer dec.Close()
		out, err := dec.DecodeAll(data, make([]byte, 0, uncompressedSize))
		if err != nil {
			return nil, newCompressionError("zstd decompress: %v", err)
		}
		return out, nil
	default:
		return nil, newCompressionError("unknown codec %d", c)
	}
}
