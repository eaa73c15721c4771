// Package voxelmap is the C6 composition layer: it binds an octree.Engine
// to an ordered set of attribute modules and exposes the in-memory API a
// caller actually uses (Insert/Get/Apply/PropagateModified/Clear plus
// batched concurrent mutation).
package voxelmap

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"go.viam.com/voxelmap/octree"
	"go.viam.com/voxelmap/telemetry"
)

// errConcurrentMutationUnderNone is returned by ApplyBatch when the engine
// was configured with octree.LockNone: that policy promises the caller
// serializes its own mutations, so fanning a batch out across goroutines
// would race.
var errConcurrentMutationUnderNone = errors.New("voxelmap: ApplyBatch requires LockDepth or LockNode, engine uses LockNone")

// Mutation is one unit of work for ApplyBatch: mutate the node at Code,
// using whichever of LeafFunc/InnerFunc matches what Code resolves to.
type Mutation struct {
	Code  octree.Code
	Leaf  octree.LeafFunc
	Inner octree.InnerFunc
}

// Map is the composed occupancy/attribute map: one octree.Engine plus the
// attribute modules registered against it. Modules are dispatched to in
// registration order for every block lifecycle hook, matching the
// engine's own dispatch order.
type Map struct {
	engine  *octree.Engine
	modules []octree.AttributeModule
	logger  telemetry.Logger
}

// New constructs a Map: an engine configured per cfg, with modules
// registered in the given order.
func New(cfg octree.Config, logger telemetry.Logger, modules ...octree.AttributeModule) (*Map, error) {
	logger = telemetry.Default(logger)
	e, err := octree.New(cfg, logger, modules...)
	if err != nil {
		return nil, err
	}
	return &Map{engine: e, modules: modules, logger: logger.Named("voxelmap")}, nil
}

// Engine exposes the underlying octree.Engine for callers that need direct
// access to traversal/nearest-search primitives not re-exposed here.
func (m *Map) Engine() *octree.Engine { return m.engine }

// Config returns the map's octree configuration.
func (m *Map) Config() octree.Config { return m.engine.Config() }

// Insert applies fLeaf/fInner at code, optionally propagating the modified
// path upward immediately.
func (m *Map) Insert(code octree.Code, fLeaf octree.LeafFunc, fInner octree.InnerFunc, propagate bool) error {
	return m.engine.Apply(code, fLeaf, fInner, propagate)
}

// Apply is an alias for Insert, matching §6's naming.
func (m *Map) Apply(code octree.Code, fLeaf octree.LeafFunc, fInner octree.InnerFunc, propagate bool) error {
	return m.engine.Apply(code, fLeaf, fInner, propagate)
}

// Get resolves code without creating anything, returning the handle the
// caller can read attribute values from via each module's own Get method.
func (m *Map) Get(code octree.Code) octree.NodeHandle {
	return m.engine.LeafNodeAndDepth(code)
}

// PropagateModified re-aggregates every modified path up to maxDepth.
func (m *Map) PropagateModified(keepModified bool, maxDepth uint8) {
	m.engine.PropagateModified(keepModified, maxDepth)
}

// Clear resets the map to an empty tree.
func (m *Map) Clear() { m.engine.Clear() }

// Stats returns the allocator's block counters.
func (m *Map) Stats() octree.Stats { return m.engine.Stats() }

// ApplyBatch fans mutations out across goroutines via errgroup, one
// goroutine per mutation, then, if propagate is set, runs a single
// PropagateModified pass. Valid
// only under LockDepth/LockNode: under LockNone the caller is required to
// serialize its own mutations (per spec §5), so batching here would race
// on shared block state with no lock to arbitrate it.
func (m *Map) ApplyBatch(ctx context.Context, mutations []Mutation, propagate bool) error {
	if m.engine.Config().Lock == octree.LockNone {
		return errConcurrentMutationUnderNone
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, mut := range mutations {
		mut := mut
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			return m.engine.Apply(mut.Code, mut.Leaf, mut.Inner, false)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if propagate {
		m.engine.PropagateModified(m.engine.Config().KeepModified, m.engine.Config().DepthLevels)
	}
	return nil
}
