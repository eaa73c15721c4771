package octree

import (
	"github.com/pkg/errors"

	"go.viam.com/voxelmap/telemetry"
)

// LeafFunc mutates a single depth-0 leaf record.
type LeafFunc func(block *LeafBlock, i uint8)

// InnerFunc mutates the payload of an inner-level sibling — either a
// genuinely undivided (leaf[i] set) region at depth >= 1, or the aggregate
// slot of a sibling that does have children. Attribute-module payload is
// keyed uniformly by BlockKey regardless of whether that key is an
// *InnerBlock or *LeafBlock, so InnerFunc and LeafFunc differ only in which
// Go type they're handed — not in what a module does with them.
type InnerFunc func(block *InnerBlock, i uint8)

// Engine is the indexed block-octree engine: C2 (allocation) + C3 (block
// layout) + C4 (descent/apply/propagate/prune/traverse) from the spec this
// module implements. It holds no attribute payload itself — that's the
// job of the AttributeModule values it dispatches to — only the leaf/inner
// bookkeeping bits and the tree shape.
type Engine struct {
	cfg     Config
	alloc   *allocator
	locks   lockStrategy
	modules []AttributeModule
	logger  telemetry.Logger

	// root is represented as an ordinary InnerBlock: all 8 siblings are
	// live and address the 8 real top-level octants of the mapped volume,
	// exactly as any other InnerBlock's 8 siblings address its own
	// octants. The spec models the root as its own single-record type;
	// folding it into InnerBlock avoids a second, mostly-duplicate node
	// type and descent path. See DESIGN.md.
	root *InnerBlock

	// generation counts calls to Clear. Nothing in the engine reads it;
	// traversals and iterators do not compare against it.
	generation uint64
}

const rootIndex uint8 = 0

// New constructs an Engine and registers modules in the order given; hooks
// are always dispatched to modules in this same order.
func New(cfg Config, logger telemetry.Logger, modules ...AttributeModule) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:     cfg,
		modules: modules,
		logger:  telemetry.Default(logger).Named("octree"),
	}
	e.locks = newLockStrategy(cfg)
	e.alloc = newAllocator(cfg, e.locks)
	e.initRoot()
	return e, nil
}

func (e *Engine) initRoot() {
	e.root = &InnerBlock{Leaf: 0xff}
	for _, m := range e.modules {
		m.InitRoot(e.root)
	}
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config { return e.cfg }

// Root exposes the root block, for package serialize's structure walk.
func (e *Engine) Root() *InnerBlock { return e.root }

// RootDepth is the depth of the root block (Config().DepthLevels - 1).
func (e *Engine) RootDepth() uint8 { return e.cfg.rootDepth() }

// RootChildCode returns the Code addressing sibling i of the root block —
// one of the 8 real top-level octants. Package serialize uses this as the
// starting point for a structure walk, since the root itself has no
// address of its own (it is the implicit ancestor of every Code).
func (e *Engine) RootChildCode(i uint8) Code {
	return codeFromMorton(uint64(i)<<(3*uint(e.cfg.rootDepth())), e.cfg.rootDepth())
}

// EnsureNode materializes every block along the path to code, exactly as
// Apply does, without touching any payload — used by package serialize's
// reader to recreate structure from a deserialized valid_inner mask before
// populating module payloads via each module's ReadNode.
func (e *Engine) EnsureNode(code Code) NodeHandle {
	handle, path := e.descendCreating(code)
	e.markModified(path, handle)
	return handle
}

// Stats returns the allocator's block counters.
func (e *Engine) Stats() Stats { return e.alloc.stats() }

// pathStep records one (block, sibling) hop taken while descending, so
// markModified can revisit the exact path without a second traversal.
type pathStep struct {
	block *InnerBlock
	index uint8
}

// resolve implements §4.4.2: descend without creating anything, stopping at
// the first leaf bit or at code's own depth (clamped to at least 1, since
// the finest addressable block boundary is the leaf block at depth 0).
func (e *Engine) resolve(code Code) NodeHandle {
	depth := e.cfg.rootDepth()
	block := e.root
	stopDepth := code.Depth()
	if stopDepth < 1 {
		stopDepth = 1
	}
	for {
		i := code.Index(depth)
		if block.Leaf.Get(i) || depth == stopDepth {
			if depth == 1 && code.Depth() == 0 && !block.Leaf.Get(i) {
				return NodeHandle{Leaf: block.childLeaf(i), Code: code, DataDepth: 0}
			}
			return NodeHandle{Inner: block, Code: code, DataDepth: depth}
		}
		if depth == 1 {
			return NodeHandle{Leaf: block.childLeaf(i), Code: code, DataDepth: 0}
		}
		block = block.childInner(i)
		depth--
	}
}

// LeafNodeAndDepth is the public form of resolve (§9's exists()/invariant 5).
func (e *Engine) LeafNodeAndDepth(code Code) NodeHandle {
	return e.resolve(code)
}

// ensureChild materializes sibling i's child block if it doesn't exist yet,
// using the double-checked locking protocol from §4.2: lock per policy,
// re-check the leaf bit, create only if still unset.
func (e *Engine) ensureChild(block *InnerBlock, i, depth uint8) {
	if !block.Leaf.Get(i) {
		return
	}
	switch e.cfg.Lock {
	case LockDepth:
		e.locks.lockDepth(depth)
		defer e.locks.unlockDepth(depth)
	case LockNode:
		e.locks.lockNode(&block.locks[i])
		defer e.locks.unlockNode(&block.locks[i])
	}
	if !block.Leaf.Get(i) {
		return
	}
	if depth == 1 {
		lb := e.alloc.allocateLeaf()
		block.setChildLeaf(i, lb)
		for _, m := range e.modules {
			m.AllocateBlock(lb)
			m.Fill(block, i, lb)
		}
	} else {
		ib := e.alloc.allocateInner()
		ib.Leaf = 0xff
		block.setChildInner(i, ib)
		for _, m := range e.modules {
			m.AllocateBlock(ib)
			m.Fill(block, i, ib)
		}
	}
	block.setLeaf(i, false)
	e.logger.Debugw("created child block", "depth", int(depth)-1, "sibling", i)
}

// descendCreating implements §4.4.3 step 1: descend toward code.depth(),
// creating children along the way. Returns the resolved handle at
// max(code.depth(), 0) plus the ancestor path walked, for markModified.
func (e *Engine) descendCreating(code Code) (NodeHandle, []pathStep) {
	depth := e.cfg.rootDepth()
	block := e.root
	target := code.Depth()
	var path []pathStep
	for depth > target {
		i := code.Index(depth)
		path = append(path, pathStep{block, i})
		e.ensureChild(block, i, depth)
		if depth == 1 {
			return NodeHandle{Leaf: block.childLeaf(i), Code: code, DataDepth: 0}, path
		}
		block = block.childInner(i)
		depth--
	}
	return NodeHandle{Inner: block, Code: code, DataDepth: depth}, path
}

// markModified sets the Modified bit for every block along path plus
// handle's own block. Each bit flip goes through the block's own fieldLock
// (not the active LockPolicy's lock): LockNode's per-sibling flags serialize
// child creation but say nothing about a concurrent sibling's write landing
// in the same shared Modified byte, and by the time markModified runs,
// descendCreating has already released whatever depth/node lock it held
// while creating each block along the path.
func (e *Engine) markModified(path []pathStep, handle NodeHandle) {
	for _, s := range path {
		s.block.setModified(s.index, true)
	}
	if handle.IsLeafBlock() {
		handle.Leaf.setModified(handle.Index(), true)
	} else {
		handle.Inner.setModified(handle.Index(), true)
	}
}

// applyAll implements the "mixed subtree" branch of §4.4.3 step 2: sibling i
// of parent already has children, so the mutation must reach every
// descendant instead of a single sibling slot. It recurses fully to the
// leaves, invoking fLeaf on every depth-0 record and fInner once per
// visited inner-level sibling (whether that sibling is itself a leaf or has
// further children) — see DESIGN.md for why this reading was chosen over
// the spec's more literal but self-contradictory wording.
func (e *Engine) applyAll(parent *InnerBlock, i, depth uint8, fLeaf LeafFunc, fInner InnerFunc) {
	if depth == 1 {
		lb := parent.childLeaf(i)
		for j := uint8(0); j < 8; j++ {
			if fLeaf != nil {
				fLeaf(lb, j)
			}
		}
		lb.Modified = 0xff
		return
	}
	child := parent.childInner(i)
	for j := uint8(0); j < 8; j++ {
		if fInner != nil {
			fInner(child, j)
		}
		if !child.Leaf.Get(j) {
			e.applyAll(child, j, depth-1, fLeaf, fInner)
		}
	}
	child.Modified = 0xff
}

// Apply implements §4.4.3: mutate the node addressed by code, creating
// blocks on demand, marking the modified path, and optionally propagating.
func (e *Engine) Apply(code Code, fLeaf LeafFunc, fInner InnerFunc, propagate bool) error {
	if code.Depth() >= e.cfg.DepthLevels {
		return newBoundsError("code depth %d >= depth_levels %d", code.Depth(), e.cfg.DepthLevels)
	}
	handle, path := e.descendCreating(code)
	i := handle.Index()
	switch {
	case handle.IsLeafBlock():
		if fLeaf != nil {
			fLeaf(handle.Leaf, i)
		}
	case handle.Inner.Leaf.Get(i):
		if fInner != nil {
			fInner(handle.Inner, i)
		}
	default:
		e.applyAll(handle.Inner, i, handle.DataDepth, fLeaf, fInner)
	}
	e.markModified(path, handle)
	if propagate {
		e.PropagateModified(e.cfg.KeepModified, e.cfg.DepthLevels)
	}
	return nil
}

// Clear resets the tree to a single unallocated root, per invariant 7.
func (e *Engine) Clear() {
	// Release everything reachable, depth-first, before re-initializing —
	// so free-listed blocks (if reuse is enabled) are available for reuse
	// immediately rather than only after GC.
	e.releaseSubtree(e.root, e.cfg.rootDepth())
	for _, m := range e.modules {
		m.ClearAll()
	}
	e.generation++
	e.initRoot()
}

func (e *Engine) releaseSubtree(block *InnerBlock, depth uint8) {
	for i := uint8(0); i < 8; i++ {
		if block.Leaf.Get(i) {
			continue
		}
		if depth == 1 {
			lb := block.childLeaf(i)
			for _, m := range e.modules {
				m.ReleaseBlock(lb)
			}
			e.alloc.releaseLeaf(lb)
		} else {
			ib := block.childInner(i)
			e.releaseSubtree(ib, depth-1)
			for _, m := range e.modules {
				m.ReleaseBlock(ib)
			}
			e.alloc.releaseInner(ib)
		}
		block.clearChild(i)
	}
	block.Leaf = 0xff
	block.Modified = 0
}

var errConcurrentMutationUnderNone = errors.New("octree: concurrent mutation attempted under LockNone")
