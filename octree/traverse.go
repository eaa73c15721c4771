package octree

import "github.com/golang/geo/r3"

// Box is an axis-aligned bounding box: the engine's own minimal geometry
// type. The reference corpus's spatialmath.Box carries pose/orientation and
// is coupled to a protobuf Geometry interface — disproportionate to this
// module's "axis-aligned boxes and points, used only as opaque predicates"
// scope (see spec §1's Non-goals and SPEC_FULL.md §5).
type Box struct {
	Min, Max r3.Vector
}

// Center returns the box's center point.
func (b Box) Center() r3.Vector {
	return r3.Vector{X: (b.Min.X + b.Max.X) / 2, Y: (b.Min.Y + b.Max.Y) / 2, Z: (b.Min.Z + b.Max.Z) / 2}
}

// ClosestPoint returns the point within b nearest to p (p itself, clamped
// per axis to b's extent).
func (b Box) ClosestPoint(p r3.Vector) r3.Vector {
	clamp := func(v, lo, hi float64) float64 {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}
	return r3.Vector{
		X: clamp(p.X, b.Min.X, b.Max.X),
		Y: clamp(p.Y, b.Min.Y, b.Max.Y),
		Z: clamp(p.Z, b.Min.Z, b.Max.Z),
	}
}

// Node is a lightweight traversal handle: the block, sibling index, code,
// and data depth of one visited node. It intentionally carries no
// bounding-box (see NodeBV) so plain structural traversals stay cheap.
type Node struct {
	Code      Code
	DataDepth uint8
	Block     BlockKey
	Index     uint8
}

// NodeBV augments Node with its axis-aligned bounding box, computed lazily
// so plain (non-spatial) traversals never pay for it.
type NodeBV struct {
	Node
	engine *Engine
	box    *Box
}

// Box returns (and caches) this node's bounding box.
func (n *NodeBV) Box() Box {
	if n.box == nil {
		b := n.engine.nodeBox(n.Code)
		n.box = &b
	}
	return *n.box
}

// nodeBox computes the AABB of the node addressed by code, from its key and
// the engine's LeafSize — computed on the fly, matching §4.4.6.
func (e *Engine) nodeBox(code Code) Box {
	k := ToKey(code)
	corner := e.cfg.Coord(k)
	size := e.cfg.size(k.Depth)
	return Box{Min: corner, Max: r3.Vector{X: corner.X + size, Y: corner.Y + size, Z: corner.Z + size}}
}

// VisitFunc is a depth-first traversal callback. Returning true skips
// descending into this node's children (but sibling nodes are still
// visited); returning false continues the recursion.
type VisitFunc func(Node) bool

// VisitFuncBV is the NodeBV analogue of VisitFunc.
type VisitFuncBV func(*NodeBV) bool

// Traverse walks every allocated node depth-first from the root, in stable
// sibling order 0..7, per §4.4.6.
func (e *Engine) Traverse(visit VisitFunc) {
	e.traverseBlock(e.root, e.cfg.rootDepth(), 0, visit)
}

func (e *Engine) traverseBlock(block *InnerBlock, depth uint8, mortonPrefix uint64, visit VisitFunc) {
	for i := uint8(0); i < 8; i++ {
		bits := mortonPrefix | (uint64(i) << (3 * uint(depth)))
		code := codeFromMorton(bits, depth)
		n := Node{Code: code, DataDepth: depth, Block: block, Index: i}
		stop := visit(n)
		if stop || block.Leaf.Get(i) {
			continue
		}
		if depth == 1 {
			lb := block.childLeaf(i)
			for j := uint8(0); j < 8; j++ {
				lcode := codeFromMorton(bits|uint64(j), 0)
				visit(Node{Code: lcode, DataDepth: 0, Block: lb, Index: j})
			}
			continue
		}
		e.traverseBlock(block.childInner(i), depth-1, bits, visit)
	}
}

// TraverseBV is Traverse's NodeBV-carrying variant.
func (e *Engine) TraverseBV(visit VisitFuncBV) {
	e.Traverse(func(n Node) bool {
		nbv := &NodeBV{Node: n, engine: e}
		return visit(nbv)
	})
}
