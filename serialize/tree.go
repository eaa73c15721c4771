package serialize

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/google/uuid"

	"go.viam.com/voxelmap/octree"
)

// Predicate filters which nodes a Write call includes; nil means include
// everything reachable.
type Predicate func(octree.Node) bool

// WriteOptions parameterizes Write per spec §4.6: an inclusion predicate, a
// depth at which to stop descending (treating any node reached there as a
// return regardless of whether it has finer children in memory), and the
// compression scheme to apply to each module's payload stream.
type WriteOptions struct {
	Predicate Predicate
	MinDepth  uint8
	Compress  bool
	Codec     CompressionCodec
	DatasetID uuid.UUID
}

type nodeRef struct {
	key   octree.BlockKey
	index uint8
}

func childCodesOf(c octree.Code) [8]octree.Code {
	var out [8]octree.Code
	for j := uint8(0); j < 8; j++ {
		child, err := c.Child(j)
		if err != nil {
			// c is at depth 0; callers never descend past a leaf code.
			out[j] = c
			continue
		}
		out[j] = child
	}
	return out
}

// Write implements §4.6's writer: header, tree-structure stream, node
// count, then one payload stream per module with a nonzero MapType.
func Write(w io.Writer, engine *octree.Engine, modules []octree.SerializableModule, opts WriteOptions) error {
	cfg := engine.Config()
	header := Header{
		Version:     currentVersion,
		LeafSize:    cfg.LeafSize,
		DepthLevels: cfg.DepthLevels,
		Compressed:  opts.Compress,
		Codec:       opts.Codec,
		DatasetID:   opts.DatasetID,
	}
	if err := writeHeader(w, header); err != nil {
		return err
	}

	pred := opts.Predicate
	if pred == nil {
		pred = func(octree.Node) bool { return true }
	}

	var order []nodeRef
	var rootCodes [8]octree.Code
	for i := uint8(0); i < 8; i++ {
		rootCodes[i] = engine.RootChildCode(i)
	}
	frame, empty := writeInnerGroup(engine.Root(), engine.RootDepth(), rootCodes, opts.MinDepth, pred, &order)
	if empty {
		frame = nil
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(frame))); err != nil {
		return newIoError("write structure length: %v", err)
	}
	if _, err := w.Write(frame); err != nil {
		return newIoError("write structure: %v", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(len(order))); err != nil {
		return newIoError("write node count: %v", err)
	}

	for _, m := range modules {
		tag := m.MapType()
		if tag == 0 {
			continue
		}
		var payload bytes.Buffer
		for _, ref := range order {
			if err := m.WriteNode(&payload, ref.key, ref.index); err != nil {
				return newIoError("module %d write node: %v", tag, err)
			}
		}
		raw := payload.Bytes()
		out := raw
		if opts.Compress {
			compressed, err := opts.Codec.compress(raw)
			if err != nil {
				return err
			}
			out = compressed
		}
		if err := binary.Write(w, binary.LittleEndian, tag); err != nil {
			return newIoError("write tag: %v", err)
		}
		if err := binary.Write(w, binary.LittleEndian, uint64(len(out))); err != nil {
			return newIoError("write byte length: %v", err)
		}
		if opts.Compress {
			if err := binary.Write(w, binary.LittleEndian, uint64(len(raw))); err != nil {
				return newIoError("write uncompressed size: %v", err)
			}
		}
		if _, err := w.Write(out); err != nil {
			return newIoError("write payload: %v", err)
		}
	}
	return nil
}

// writeLeafGroup handles a depth-0 group: a single field, the return mask,
// per §4.6's "depth-0 groups emit only the return mask."
func writeLeafGroup(lb *octree.LeafBlock, codes [8]octree.Code, order *[]nodeRef, pred Predicate) ([]byte, bool) {
	var mask octree.IndexField
	for i := uint8(0); i < 8; i++ {
		node := octree.Node{Code: codes[i], DataDepth: 0, Block: lb, Index: i}
		if !pred(node) {
			continue
		}
		mask = mask.Set(i, true)
		*order = append(*order, nodeRef{lb, i})
	}
	if mask.None() {
		return nil, true
	}
	return []byte{byte(mask)}, false
}

// writeInnerGroup handles a depth >= 1 group: return-mask + inner-mask,
// then the frames of every inner-referenced child, in sibling order.
// Subtrees that end up carrying nothing (every descendant filtered out by
// pred) are pruned post-hoc: neither mask bit is set for them.
func writeInnerGroup(ib *octree.InnerBlock, depth uint8, codes [8]octree.Code, minDepth uint8, pred Predicate, order *[]nodeRef) ([]byte, bool) {
	var returnMask, innerMask octree.IndexField
	var childFrames [8][]byte

	for i := uint8(0); i < 8; i++ {
		node := octree.Node{Code: codes[i], DataDepth: depth, Block: ib, Index: i}
		if !pred(node) {
			continue
		}
		if ib.Leaf.Get(i) || depth <= minDepth {
			returnMask = returnMask.Set(i, true)
			*order = append(*order, nodeRef{ib, i})
			continue
		}

		var childFrame []byte
		var childEmpty bool
		childCodes := childCodesOf(codes[i])
		if depth == 1 {
			childFrame, childEmpty = writeLeafGroup(ib.ChildLeaf(i), childCodes, order, pred)
		} else {
			childFrame, childEmpty = writeInnerGroup(ib.ChildInner(i), depth-1, childCodes, minDepth, pred, order)
		}
		if childEmpty {
			continue
		}
		innerMask = innerMask.Set(i, true)
		childFrames[i] = childFrame
	}

	if returnMask.None() && innerMask.None() {
		return nil, true
	}
	var buf bytes.Buffer
	buf.WriteByte(byte(returnMask))
	buf.WriteByte(byte(innerMask))
	for i := uint8(0); i < 8; i++ {
		if innerMask.Get(i) {
			buf.Write(childFrames[i])
		}
	}
	return buf.Bytes(), false
}

// Read implements §4.6's reader: reconstructs the tree by creating blocks
// wherever the structure stream marks a valid_inner bit (via
// octree.Engine.EnsureNode, which invokes C5 Fill hooks and marks
// ancestors modified exactly as Apply does), then replays each module's
// payload stream over the same document-order node sequence the writer
// produced.
func Read(r io.Reader, engine *octree.Engine, modules []octree.SerializableModule) (Header, error) {
	header, err := readHeader(r)
	if err != nil {
		return header, err
	}
	if header.DepthLevels != engine.Config().DepthLevels {
		return header, &octree.StructureError{Reason: "depth_levels mismatch between file and engine"}
	}

	var structLen uint64
	if err := binary.Read(r, binary.LittleEndian, &structLen); err != nil {
		return header, newIoError("read structure length: %v", err)
	}
	structBytes := make([]byte, structLen)
	if _, err := io.ReadFull(r, structBytes); err != nil {
		return header, newIoError("read structure: %v", err)
	}

	var nodeCount uint64
	if err := binary.Read(r, binary.LittleEndian, &nodeCount); err != nil {
		return header, newIoError("read node count: %v", err)
	}

	var order []nodeRef
	if len(structBytes) > 0 {
		br := bytes.NewReader(structBytes)
		var rootCodes [8]octree.Code
		for i := uint8(0); i < 8; i++ {
			rootCodes[i] = engine.RootChildCode(i)
		}
		if err := readInnerGroup(br, engine, engine.RootDepth(), rootCodes, &order); err != nil {
			return header, err
		}
	}
	if uint64(len(order)) != nodeCount {
		return header, &octree.StructureError{Reason: "node count does not match structure stream"}
	}

	for {
		var tag uint16
		if err := binary.Read(r, binary.LittleEndian, &tag); err != nil {
			if err == io.EOF {
				break
			}
			return header, newIoError("read tag: %v", err)
		}
		var byteLength uint64
		if err := binary.Read(r, binary.LittleEndian, &byteLength); err != nil {
			return header, newIoError("read byte length: %v", err)
		}
		var uncompressedSize uint64
		if header.Compressed {
			if err := binary.Read(r, binary.LittleEndian, &uncompressedSize); err != nil {
				return header, newIoError("read uncompressed size: %v", err)
			}
		}
		raw := make([]byte, byteLength)
		if _, err := io.ReadFull(r, raw); err != nil {
			return header, newIoError("read payload: %v", err)
		}

		var target octree.SerializableModule
		for _, m := range modules {
			if m.CanReadData(tag) {
				target = m
				break
			}
		}
		if target == nil {
			continue // unknown tag, already consumed by byte length; not an error
		}
		payload := raw
		if header.Compressed {
			decompressed, err := header.Codec.decompress(raw, uncompressedSize)
			if err != nil {
				// The framed length was already consumed above, so the
				// reader's position is intact for the next payload stream;
				// only this module's data is lost.
				if _, ok := err.(*CompressionError); ok {
					continue
				}
				return header, err
			}
			payload = decompressed
		}
		pr := bytes.NewReader(payload)
		for _, ref := range order {
			if err := target.ReadNode(pr, ref.key, ref.index); err != nil {
				return header, newIoError("module %d read node: %v", tag, err)
			}
		}
	}
	return header, nil
}

func readInnerGroup(br *bytes.Reader, engine *octree.Engine, depth uint8, codes [8]octree.Code, order *[]nodeRef) error {
	returnByte, err := br.ReadByte()
	if err != nil {
		return newIoError("read return mask: %v", err)
	}
	innerByte, err := br.ReadByte()
	if err != nil {
		return newIoError("read inner mask: %v", err)
	}
	returnMask := octree.IndexField(returnByte)
	innerMask := octree.IndexField(innerByte)

	for i := uint8(0); i < 8; i++ {
		if returnMask.Get(i) {
			handle := engine.EnsureNode(codes[i])
			key := handle.Inner
			var k any = key
			if handle.IsLeafBlock() {
				k = handle.Leaf
			}
			*order = append(*order, nodeRef{k, handle.Index()})
		}
		if !innerMask.Get(i) {
			continue
		}
		childCodes := childCodesOf(codes[i])
		if depth == 1 {
			maskByte, err := br.ReadByte()
			if err != nil {
				return newIoError("read leaf group mask: %v", err)
			}
			mask := octree.IndexField(maskByte)
			for j := uint8(0); j < 8; j++ {
				if mask.Get(j) {
					handle := engine.EnsureNode(childCodes[j])
					*order = append(*order, nodeRef{handle.Leaf, handle.Index()})
				}
			}
			continue
		}
		if err := readInnerGroup(br, engine, depth-1, childCodes, order); err != nil {
			return err
		}
	}
	return nil
}
