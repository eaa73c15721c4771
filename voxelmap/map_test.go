package voxelmap

import (
	"context"
	"testing"

	"go.viam.com/test"

	"go.viam.com/voxelmap/attrs"
	"go.viam.com/voxelmap/octree"
)

func newTestMap(t *testing.T, cfg octree.Config, modules ...octree.AttributeModule) *Map {
	t.Helper()
	m, err := New(cfg, nil, modules...)
	test.That(t, err, test.ShouldBeNil)
	return m
}

func TestMapInsertAndGet(t *testing.T) {
	occ := attrs.NewOccupancy()
	m := newTestMap(t, octree.Config{LeafSize: 1, DepthLevels: 6}, occ)

	code := octree.ToCode(octree.Key{X: 4, Y: 4, Z: 4, Depth: 0})
	err := m.Insert(code, func(lb *octree.LeafBlock, i uint8) {
		occ.Set(lb, i, 80)
	}, nil, false)
	test.That(t, err, test.ShouldBeNil)

	handle := m.Get(code)
	test.That(t, handle.Exists(), test.ShouldBeTrue)
	v, ok := occ.Get(handle.Leaf, handle.Index())
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, int8(80))
	test.That(t, occ.State(v), test.ShouldEqual, attrs.StateOccupied)
}

func TestMapApplyBatchRejectedUnderLockNone(t *testing.T) {
	m := newTestMap(t, octree.Config{LeafSize: 1, DepthLevels: 6, Lock: octree.LockNone})
	err := m.ApplyBatch(context.Background(), []Mutation{
		{Code: octree.ToCode(octree.Key{X: 0, Y: 0, Z: 0, Depth: 0})},
	}, false)
	test.That(t, err, test.ShouldEqual, errConcurrentMutationUnderNone)
}

func TestMapApplyBatchUnderNodeLocking(t *testing.T) {
	occ := attrs.NewOccupancy()
	m := newTestMap(t, octree.Config{LeafSize: 1, DepthLevels: 6, Lock: octree.LockNode}, occ)

	codes := []octree.Code{
		octree.ToCode(octree.Key{X: 0, Y: 0, Z: 0, Depth: 0}),
		octree.ToCode(octree.Key{X: 20, Y: 0, Z: 0, Depth: 0}),
		octree.ToCode(octree.Key{X: 0, Y: 20, Z: 0, Depth: 0}),
	}
	mutations := make([]Mutation, len(codes))
	for i, c := range codes {
		mutations[i] = Mutation{Code: c, Leaf: func(lb *octree.LeafBlock, idx uint8) { occ.Set(lb, idx, 10) }}
	}
	err := m.ApplyBatch(context.Background(), mutations, true)
	test.That(t, err, test.ShouldBeNil)

	for _, c := range codes {
		handle := m.Get(c)
		test.That(t, handle.Exists(), test.ShouldBeTrue)
	}
}

func TestMapClear(t *testing.T) {
	m := newTestMap(t, octree.Config{LeafSize: 1, DepthLevels: 5})
	code := octree.ToCode(octree.Key{X: 1, Y: 1, Z: 1, Depth: 0})
	test.That(t, m.Insert(code, nil, nil, false), test.ShouldBeNil)
	m.Clear()
	handle := m.Get(code)
	test.That(t, handle.Exists(), test.ShouldBeFalse)
}
