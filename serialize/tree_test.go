package serialize

import (
	"bytes"
	"testing"

	"go.viam.com/test"

	"go.viam.com/voxelmap/attrs"
	"go.viam.com/voxelmap/octree"
	"go.viam.com/voxelmap/telemetry"
)

func buildTestEngine(t *testing.T) (*octree.Engine, *attrs.Occupancy, []octree.Code) {
	t.Helper()
	occ := attrs.NewOccupancy()
	cfg := octree.Config{LeafSize: 1, DepthLevels: 6}
	e, err := octree.New(cfg, telemetry.NoOp(), occ)
	test.That(t, err, test.ShouldBeNil)

	codes := []octree.Code{
		octree.ToCode(octree.Key{X: 1, Y: 2, Z: 3, Depth: 0}),
		octree.ToCode(octree.Key{X: 10, Y: 5, Z: 1, Depth: 0}),
		octree.ToCode(octree.Key{X: 0, Y: 0, Z: 0, Depth: 0}),
	}
	values := []int8{60, -40, 20}
	// Left unpropagated so the Modified frontier is still set for the
	// partial-write tests.
	for i, c := range codes {
		v := values[i]
		err := e.Apply(c, func(lb *octree.LeafBlock, idx uint8) { occ.Set(lb, idx, v) }, nil, false)
		test.That(t, err, test.ShouldBeNil)
	}
	return e, occ, codes
}

func TestWriteReadRoundTrip(t *testing.T) {
	e, occ, codes := buildTestEngine(t)

	var buf bytes.Buffer
	modules := []octree.SerializableModule{occ}
	err := Write(&buf, e, modules, WriteOptions{})
	test.That(t, err, test.ShouldBeNil)

	occ2 := attrs.NewOccupancy()
	e2, err := octree.New(e.Config(), telemetry.NoOp(), occ2)
	test.That(t, err, test.ShouldBeNil)

	header, err := Read(&buf, e2, []octree.SerializableModule{occ2})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, header.DepthLevels, test.ShouldEqual, e.Config().DepthLevels)

	expected := map[octree.Code]int8{codes[0]: 60, codes[1]: -40, codes[2]: 20}
	for code, want := range expected {
		handle := e2.LeafNodeAndDepth(code)
		test.That(t, handle.Exists(), test.ShouldBeTrue)
		got, ok := occ2.Get(handle.Leaf, handle.Index())
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, got, test.ShouldEqual, want)
	}
}

func TestWriteReadRoundTripCompressed(t *testing.T) {
	e, occ, codes := buildTestEngine(t)

	for _, codec := range []CompressionCodec{CodecSnappy, CodecLZ4, CodecZstd} {
		var buf bytes.Buffer
		modules := []octree.SerializableModule{occ}
		err := Write(&buf, e, modules, WriteOptions{Compress: true, Codec: codec})
		test.That(t, err, test.ShouldBeNil)

		occ2 := attrs.NewOccupancy()
		e2, err := octree.New(e.Config(), telemetry.NoOp(), occ2)
		test.That(t, err, test.ShouldBeNil)

		_, err = Read(&buf, e2, []octree.SerializableModule{occ2})
		test.That(t, err, test.ShouldBeNil)

		handle := e2.LeafNodeAndDepth(codes[0])
		test.That(t, handle.Exists(), test.ShouldBeTrue)
		got, ok := occ2.Get(handle.Leaf, handle.Index())
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, got, test.ShouldEqual, int8(60))
	}
}

func TestWriteWithPredicateExcludesFilteredNodes(t *testing.T) {
	e, occ, codes := buildTestEngine(t)

	pred := Predicate(func(n octree.Node) bool { return n.Code != codes[1] })
	var buf bytes.Buffer
	err := Write(&buf, e, []octree.SerializableModule{occ}, WriteOptions{Predicate: pred})
	test.That(t, err, test.ShouldBeNil)

	occ2 := attrs.NewOccupancy()
	e2, err := octree.New(e.Config(), telemetry.NoOp(), occ2)
	test.That(t, err, test.ShouldBeNil)
	_, err = Read(&buf, e2, []octree.SerializableModule{occ2})
	test.That(t, err, test.ShouldBeNil)

	test.That(t, e2.LeafNodeAndDepth(codes[0]).Exists(), test.ShouldBeTrue)
	// codes[1]'s seven siblings pass the predicate, so its leaf block is
	// rebuilt; the filtered record's own payload must not come across.
	excluded := e2.LeafNodeAndDepth(codes[1])
	excludedVal, _ := occ2.Get(excluded.Leaf, excluded.Index())
	test.That(t, excludedVal, test.ShouldNotEqual, int8(-40))
	test.That(t, e2.LeafNodeAndDepth(codes[2]).Exists(), test.ShouldBeTrue)
}

func TestWriteEmptyTreeProducesEmptyFrame(t *testing.T) {
	occ := attrs.NewOccupancy()
	e, err := octree.New(octree.Config{LeafSize: 1, DepthLevels: 6}, telemetry.NoOp(), occ)
	test.That(t, err, test.ShouldBeNil)

	var buf bytes.Buffer
	err = Write(&buf, e, []octree.SerializableModule{occ}, WriteOptions{})
	test.That(t, err, test.ShouldBeNil)

	occ2 := attrs.NewOccupancy()
	e2, err := octree.New(e.Config(), telemetry.NoOp(), occ2)
	test.That(t, err, test.ShouldBeNil)
	_, err = Read(&buf, e2, []octree.SerializableModule{occ2})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, e2.Stats().LiveLeafBlocks, test.ShouldEqual, int64(0))
}
