package serialize

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"go.viam.com/test"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		Version:     currentVersion,
		LeafSize:    0.25,
		DepthLevels: 10,
		Compressed:  true,
		Codec:       CodecZstd,
		DatasetID:   uuid.New(),
	}

	var buf bytes.Buffer
	test.That(t, writeHeader(&buf, h), test.ShouldBeNil)

	got, err := readHeader(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, h)
}

func TestHeaderRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("not a voxelmap file at all!!!!!!")
	_, err := readHeader(&buf)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestHeaderRejectsFutureVersion(t *testing.T) {
	h := Header{Version: currentVersion + 1, LeafSize: 1, DepthLevels: 5}
	var buf bytes.Buffer
	test.That(t, writeHeader(&buf, h), test.ShouldBeNil)
	_, err := readHeader(&buf)
	test.That(t, err, test.ShouldNotBeNil)
}
