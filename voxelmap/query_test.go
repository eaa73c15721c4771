package voxelmap

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/voxelmap/attrs"
	"go.viam.com/voxelmap/octree"
)

// occupiedPredicate matches leaves whose Occupancy value is above the
// occupied threshold; it never prunes inner subtrees.
type occupiedPredicate struct {
	occ *attrs.Occupancy
}

func (p occupiedPredicate) ValueCheck(n octree.Node) bool {
	if n.Block == nil {
		return false
	}
	v, ok := p.occ.Get(n.Block, n.Index)
	return ok && p.occ.State(v) == attrs.StateOccupied
}

func (p occupiedPredicate) InnerCheck(octree.Node) bool { return true }

func buildQueryMap(t *testing.T) (*Map, *attrs.Occupancy, []octree.Code) {
	t.Helper()
	occ := attrs.NewOccupancy()
	m := newTestMap(t, octree.Config{LeafSize: 1, DepthLevels: 6}, occ)

	codes := []octree.Code{
		octree.ToCode(octree.Key{X: 1, Y: 1, Z: 1, Depth: 0}),
		octree.ToCode(octree.Key{X: 10, Y: 10, Z: 10, Depth: 0}),
		octree.ToCode(octree.Key{X: 20, Y: 20, Z: 20, Depth: 0}),
	}
	values := []int8{90, 10, 90}
	for i, c := range codes {
		v := values[i]
		err := m.Insert(c, func(lb *octree.LeafBlock, idx uint8) { occ.Set(lb, idx, v) }, nil, false)
		test.That(t, err, test.ShouldBeNil)
	}
	return m, occ, codes
}

func TestIterWithPredicateVisitsOnlyMatching(t *testing.T) {
	m, occ, _ := buildQueryMap(t)
	pred := occupiedPredicate{occ: occ}

	var matches int
	m.IterWithPredicate(pred, func(n octree.Node) bool {
		matches++
		return false
	})
	test.That(t, matches, test.ShouldEqual, 2)
}

func TestIterWithPredicateStopsEarly(t *testing.T) {
	m, occ, _ := buildQueryMap(t)
	pred := occupiedPredicate{occ: occ}

	var matches int
	m.IterWithPredicate(pred, func(n octree.Node) bool {
		matches++
		return true
	})
	test.That(t, matches, test.ShouldEqual, 1)
}

func TestAndOrPredicateComposition(t *testing.T) {
	m, occ, _ := buildQueryMap(t)
	occupied := occupiedPredicate{occ: occ}
	alwaysFalse := falsePredicate{}

	var andMatches int
	m.IterWithPredicate(And(occupied, alwaysFalse), func(n octree.Node) bool {
		andMatches++
		return false
	})
	test.That(t, andMatches, test.ShouldEqual, 0)

	var orMatches int
	m.IterWithPredicate(Or(occupied, alwaysFalse), func(n octree.Node) bool {
		orMatches++
		return false
	})
	test.That(t, orMatches, test.ShouldEqual, 2)
}

type falsePredicate struct{}

func (falsePredicate) ValueCheck(octree.Node) bool { return false }
func (falsePredicate) InnerCheck(octree.Node) bool { return true }

type pointDist struct{ p r3.Vector }

func (d pointDist) Distance(b octree.Box) float64 {
	closest := b.ClosestPoint(d.p)
	return closest.Sub(d.p).Norm2()
}

func TestTopKOrdersByDistance(t *testing.T) {
	m, _, _ := buildQueryMap(t)
	results := m.TopK(pointDist{p: r3.Vector{X: 0, Y: 0, Z: 0}}, 0, 2)
	test.That(t, len(results), test.ShouldEqual, 2)
	test.That(t, results[0].Distance, test.ShouldBeLessThanOrEqualTo, results[1].Distance)
}

func TestRadiusStopsPastCutoff(t *testing.T) {
	m, _, _ := buildQueryMap(t)
	results := m.Radius(pointDist{p: r3.Vector{X: 0, Y: 0, Z: 0}}, 5)
	for _, r := range results {
		test.That(t, r.Distance, test.ShouldBeLessThanOrEqualTo, float64(5))
	}
}
