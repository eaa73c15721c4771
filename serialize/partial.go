package serialize

import (
	"io"

	"go.viam.com/voxelmap/octree"
)

func isModified(n octree.Node) bool {
	switch b := n.Block.(type) {
	case *octree.InnerBlock:
		return b.Modified.Get(n.Index)
	case *octree.LeafBlock:
		return b.Modified.Get(n.Index)
	}
	return false
}

func andPredicate(a, b Predicate) Predicate {
	if a == nil {
		return b
	}
	return func(n octree.Node) bool { return a(n) && b(n) }
}

// WriteModifiedAndReset implements §4.6's partial-write variant: propagates
// aggregates first (keeping Modified bits set, so the write below still
// sees exactly the modified frontier and not an empty one), writes that
// frontier, then clears the bits in a final pass. Clearing before the write
// would make Write's isModified predicate match nothing.
func WriteModifiedAndReset(w io.Writer, engine *octree.Engine, modules []octree.SerializableModule, opts WriteOptions) error {
	engine.PropagateModified(true, engine.Config().DepthLevels)
	opts.Predicate = andPredicate(opts.Predicate, isModified)
	if err := Write(w, engine, modules, opts); err != nil {
		return err
	}
	engine.ClearModified(engine.Config().DepthLevels)
	return nil
}

// WriteModifiedAndPropagate is WriteModifiedAndReset's variant that only
// propagates — modified bits are left set afterward, so a caller can
// re-diff the same frontier again later.
func WriteModifiedAndPropagate(w io.Writer, engine *octree.Engine, modules []octree.SerializableModule, opts WriteOptions) error {
	engine.PropagateModified(true, engine.Config().DepthLevels)
	opts.Predicate = andPredicate(opts.Predicate, isModified)
	return Write(w, engine, modules, opts)
}
