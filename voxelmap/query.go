package voxelmap

import "go.viam.com/voxelmap/octree"

// Predicate is the C8 query surface's composable filter: ValueCheck
// decides whether a visited node itself satisfies the query, InnerCheck
// decides whether the traversal should bother descending into a node's
// children at all (a coarse, usually cheaper check used to prune whole
// subtrees early).
type Predicate interface {
	ValueCheck(node octree.Node) bool
	InnerCheck(node octree.Node) bool
}

// andPredicate/orPredicate let callers compose predicates, per §4.8.

type andPredicate struct{ a, b Predicate }

func (p andPredicate) ValueCheck(n octree.Node) bool { return p.a.ValueCheck(n) && p.b.ValueCheck(n) }
func (p andPredicate) InnerCheck(n octree.Node) bool { return p.a.InnerCheck(n) && p.b.InnerCheck(n) }

type orPredicate struct{ a, b Predicate }

func (p orPredicate) ValueCheck(n octree.Node) bool { return p.a.ValueCheck(n) || p.b.ValueCheck(n) }
func (p orPredicate) InnerCheck(n octree.Node) bool { return p.a.InnerCheck(n) || p.b.InnerCheck(n) }

// And combines two predicates: a node passes ValueCheck only if both do;
// a subtree is descended into only if both predicates would allow it.
func And(a, b Predicate) Predicate { return andPredicate{a, b} }

// Or combines two predicates with "either" semantics.
func Or(a, b Predicate) Predicate { return orPredicate{a, b} }

// QueryVisitFunc is the callback for predicate-filtered traversal. Return
// true to stop the query entirely (early exit).
type QueryVisitFunc func(node octree.Node) bool

// IterWithPredicate walks the map depth-first, pruning any subtree whose
// root fails InnerCheck, and invoking visit on every remaining node that
// passes ValueCheck. Returning true from visit stops the whole query.
func (m *Map) IterWithPredicate(pred Predicate, visit QueryVisitFunc) {
	stopped := false
	m.engine.Traverse(func(n octree.Node) bool {
		if stopped {
			return true
		}
		if !pred.InnerCheck(n) {
			return true // skip descending into this subtree
		}
		if pred.ValueCheck(n) {
			if visit(n) {
				stopped = true
				return true
			}
		}
		return false
	})
}

// QueryVisitFuncBV is IterWithPredicateBV's NodeBV-carrying callback.
type QueryVisitFuncBV func(node *octree.NodeBV) bool

// IterWithPredicateBV is IterWithPredicate's NodeBV variant, for queries
// that need each candidate's bounding box.
func (m *Map) IterWithPredicateBV(pred Predicate, visit QueryVisitFuncBV) {
	stopped := false
	m.engine.TraverseBV(func(n *octree.NodeBV) bool {
		if stopped {
			return true
		}
		if !pred.InnerCheck(n.Node) {
			return true
		}
		if pred.ValueCheck(n.Node) {
			if visit(n) {
				stopped = true
				return true
			}
		}
		return false
	})
}

// IterNearest layers directly over the engine's best-first search.
func (m *Map) IterNearest(pred octree.NearestPredicate, epsilon float64, visit octree.NearestVisitFunc) {
	m.engine.IterNearest(pred, epsilon, visit)
}

// NearestResult is one candidate returned by TopK/Radius.
type NearestResult struct {
	Node     *octree.NodeBV
	Distance float64
}

// TopK returns up to k nearest candidate leaves to pred, in ascending
// distance order, layered over IterNearest per §4.7's "layer over the
// base iterator" guidance.
func (m *Map) TopK(pred octree.NearestPredicate, epsilon float64, k int) []NearestResult {
	if k <= 0 {
		return nil
	}
	results := make([]NearestResult, 0, k)
	m.engine.IterNearest(pred, epsilon, func(node *octree.NodeBV, dist float64) bool {
		results = append(results, NearestResult{Node: node, Distance: dist})
		return len(results) >= k
	})
	return results
}

// Radius returns every candidate leaf within radius of pred (distances in
// ascending order), stopping the underlying search as soon as it exceeds
// radius — best-first order guarantees everything after that point is
// strictly farther.
func (m *Map) Radius(pred octree.NearestPredicate, radius float64) []NearestResult {
	var results []NearestResult
	m.engine.IterNearest(pred, 0, func(node *octree.NodeBV, dist float64) bool {
		if dist > radius {
			return true
		}
		results = append(results, NearestResult{Node: node, Distance: dist})
		return false
	})
	return results
}
