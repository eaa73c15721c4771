package octree

import "container/heap"

// NearestPredicate is the external-collaborator geometry interface §6
// names for best-first search: a signed (or unsigned) lower-bound distance
// from whatever the caller is searching near to a node's bounding box. The
// engine never depends on a concrete geometry package to implement one —
// that's the caller's job (a point, a ray, ...).
type NearestPredicate interface {
	Distance(b Box) float64
}

type nearestItem struct {
	node *NodeBV
	dist float64
}

type nearestHeap []*nearestItem

func (h nearestHeap) Len() int            { return len(h) }
func (h nearestHeap) Less(i, j int) bool  { return h[i].dist < h[j].dist }
func (h nearestHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *nearestHeap) Push(x interface{}) { *h = append(*h, x.(*nearestItem)) }
func (h *nearestHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// NearestVisitFunc receives candidates in non-decreasing distance order.
// Returning true stops the search.
type NearestVisitFunc func(node *NodeBV, dist float64) bool

// IterNearest implements §4.4.7: best-first traversal driven by pred,
// emitting candidate leaves (nodes with no children) in distance order.
// A positive epsilon drops any queued node (leaf or inner) whose lower-bound
// distance exceeds (best found so far - epsilon), trading exactness for
// speed; pass epsilon = 0 for an exact nearest-first order over every
// candidate.
func (e *Engine) IterNearest(pred NearestPredicate, epsilon float64, visit NearestVisitFunc) {
	pq := &nearestHeap{}
	heap.Init(pq)

	push := func(block BlockKey, index uint8, code Code, depth uint8) {
		nbv := &NodeBV{Node: Node{Code: code, DataDepth: depth, Block: block, Index: index}, engine: e}
		heap.Push(pq, &nearestItem{node: nbv, dist: pred.Distance(nbv.Box())})
	}

	rootDepth := e.cfg.rootDepth()
	for i := uint8(0); i < 8; i++ {
		bits := uint64(i) << (3 * uint(rootDepth))
		push(e.root, i, codeFromMorton(bits, rootDepth), rootDepth)
	}

	haveBest := false
	best := 0.0
	for pq.Len() > 0 {
		item := heap.Pop(pq).(*nearestItem)
		if epsilon > 0 && haveBest && item.dist > best-epsilon {
			continue
		}

		isLeafNode := item.node.DataDepth == 0
		var hasChildren bool
		if !isLeafNode {
			hasChildren = !item.node.Block.(*InnerBlock).Leaf.Get(item.node.Index)
		}

		if isLeafNode || !hasChildren {
			if !haveBest || item.dist < best {
				best = item.dist
				haveBest = true
			}
			if visit(item.node, item.dist) {
				return
			}
			continue
		}

		block := item.node.Block.(*InnerBlock)
		depth := item.node.DataDepth
		morton := uint64(item.node.Code) >> depthBits

		if depth == 1 {
			lb := block.childLeaf(item.node.Index)
			for j := uint8(0); j < 8; j++ {
				lcode := codeFromMorton(morton|uint64(j), 0)
				push(lb, j, lcode, 0)
			}
			continue
		}
		child := block.childInner(item.node.Index)
		for j := uint8(0); j < 8; j++ {
			bits := morton | (uint64(j) << (3 * uint(depth-1)))
			push(child, j, codeFromMorton(bits, depth-1), depth-1)
		}
	}
}
