package serialize

import (
	"encoding/binary"
	"io"

	"github.com/google/uuid"
)

const magicSize = 16

var magic = [magicSize]byte{'V', 'O', 'X', 'E', 'L', 'M', 'A', 'P', 'B', 'L', 'O', 'C', 'K', 'S', '0', '1'}

// currentVersion is the on-disk format version this package writes and the
// newest version it can read.
const currentVersion uint32 = 1

// Header is the file header from spec §4.6/§7: magic, version, leaf size,
// depth levels, and the compression flag, plus a dataset UUID stamped at
// first write (all-zero if the writer never set one) so files produced by
// independent writers are distinguishable without content hashing.
type Header struct {
	Version     uint32
	LeafSize    float64
	DepthLevels uint8
	Compressed  bool
	Codec       CompressionCodec
	DatasetID   uuid.UUID
}

func writeHeader(w io.Writer, h Header) error {
	if _, err := w.Write(magic[:]); err != nil {
		return newIoError("write magic: %v", err)
	}
	fields := []any{h.Version, h.LeafSize, h.DepthLevels, h.Compressed, h.Codec}
	for _, f := range fields {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return newIoError("write header field: %v", err)
		}
	}
	if _, err := w.Write(h.DatasetID[:]); err != nil {
		return newIoError("write dataset id: %v", err)
	}
	return nil
}

func readHeader(r io.Reader) (Header, error) {
	var h Header
	var gotMagic [magicSize]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil {
		return h, newIoError("read magic: %v", err)
	}
	if gotMagic != magic {
		return h, newIoError("bad magic")
	}
	if err := binary.Read(r, binary.LittleEndian, &h.Version); err != nil {
		return h, newIoError("read version: %v", err)
	}
	if h.Version > currentVersion {
		return h, newIoError("unsupported version %d (max %d)", h.Version, currentVersion)
	}
	if err := binary.Read(r, binary.LittleEndian, &h.LeafSize); err != nil {
		return h, newIoError("read leaf size: %v", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &h.DepthLevels); err != nil {
		return h, newIoError("read depth levels: %v", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &h.Compressed); err != nil {
		return h, newIoError("read compressed flag: %v", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &h.Codec); err != nil {
		return h, newIoError("read codec: %v", err)
	}
	if _, err := io.ReadFull(r, h.DatasetID[:]); err != nil {
		return h, newIoError("read dataset id: %v", err)
	}
	return h, nil
}
