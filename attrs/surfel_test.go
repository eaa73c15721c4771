package attrs

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestSurfelValueMeanAndMerge(t *testing.T) {
	var v SurfelValue
	v = v.InsertPoint(r3.Vector{X: 0, Y: 0, Z: 0})
	v = v.InsertPoint(r3.Vector{X: 2, Y: 0, Z: 0})
	mean := v.Mean()
	test.That(t, mean.X, test.ShouldAlmostEqual, 1.0)
	test.That(t, v.Count, test.ShouldEqual, int64(2))

	var other SurfelValue
	other = other.InsertPoint(r3.Vector{X: 4, Y: 0, Z: 0})
	merged := v.Merge(other)
	test.That(t, merged.Count, test.ShouldEqual, int64(3))
	test.That(t, merged.Mean().X, test.ShouldAlmostEqual, 2.0)
}

func TestSurfelValueEraseInvertsInsert(t *testing.T) {
	var v SurfelValue
	p := r3.Vector{X: 1, Y: 2, Z: 3}
	v = v.InsertPoint(p)
	v = v.InsertPoint(r3.Vector{X: -1, Y: 0, Z: 1})
	v = v.ErasePoint(p)
	test.That(t, v.Count, test.ShouldEqual, int64(1))
	test.That(t, v.Mean(), test.ShouldResemble, r3.Vector{X: -1, Y: 0, Z: 1})
}

func TestSurfelEigenvaluesFlatPatchHasZeroSmallest(t *testing.T) {
	var v SurfelValue
	// All points on the z=0 plane: the covariance's smallest eigenvalue
	// (the normal direction's variance) should be ~0.
	pts := []r3.Vector{
		{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0},
		{X: 1, Y: 1, Z: 0}, {X: 0.5, Y: 0.5, Z: 0},
	}
	for _, p := range pts {
		v = v.InsertPoint(p)
	}
	e := v.Eigenvalues()
	test.That(t, e[0], test.ShouldBeLessThan, 1e-9)
	test.That(t, e[0], test.ShouldBeLessThanOrEqualTo, e[1])
	test.That(t, e[1], test.ShouldBeLessThanOrEqualTo, e[2])
}

func TestSurfelEigenvaluesIsotropic(t *testing.T) {
	var v SurfelValue
	for _, sign := range []float64{-1, 1} {
		v = v.InsertPoint(r3.Vector{X: sign, Y: 0, Z: 0})
		v = v.InsertPoint(r3.Vector{X: 0, Y: sign, Z: 0})
		v = v.InsertPoint(r3.Vector{X: 0, Y: 0, Z: sign})
	}
	e := v.Eigenvalues()
	test.That(t, math.Abs(e[2]-e[0]), test.ShouldBeLessThan, 1e-6)
}

func TestSurfelModuleInsertAndAggregate(t *testing.T) {
	s := NewSurfel()
	parent, child := "p", "c"
	s.AllocateBlock(parent)
	s.AllocateBlock(child)
	s.InsertPoint(child, 0, r3.Vector{X: 1, Y: 1, Z: 1})
	s.InsertPoint(child, 3, r3.Vector{X: -1, Y: -1, Z: -1})

	s.UpdateNode(parent, 0, child)
	v, ok := s.Get(parent, 0)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v.Count, test.ShouldEqual, int64(2))
}
