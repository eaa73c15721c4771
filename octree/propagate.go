package octree

// PropagateModified implements §4.4.4: a bottom-up walk of the subtree
// whose Modified bit is set, invoking each module's UpdateNode hook on
// every modified sibling that has children (post-order: descendants before
// parent), evaluating pruning after each update, and clearing Modified
// unless keepModified is set. maxDepth bounds how far up the walk runs:
// siblings at depths above maxDepth are neither re-aggregated nor cleared.
// Pass e.Config().DepthLevels to propagate all the way to the root.
func (e *Engine) PropagateModified(keepModified bool, maxDepth uint8) {
	e.propagateBlock(e.root, e.cfg.rootDepth(), keepModified, maxDepth)
}

// ClearModified clears every Modified bit set along the modified frontier,
// without re-running UpdateNode/IsCollapsible — for a caller that already
// propagated with keepModified true (to aggregate while the bits needed to
// stay set for something else, e.g. package serialize's modified-frontier
// write) and now wants the reset PropagateModified(false, ...) would have
// given it, without paying for a second aggregation pass.
func (e *Engine) ClearModified(maxDepth uint8) {
	rootDepth := e.cfg.rootDepth()
	if rootDepth > maxDepth {
		return
	}
	e.clearModifiedBlock(e.root, rootDepth)
}

func (e *Engine) clearModifiedBlock(block *InnerBlock, depth uint8) {
	for i := uint8(0); i < 8; i++ {
		if !block.Modified.Get(i) {
			continue
		}
		if !block.Leaf.Get(i) {
			if depth == 1 {
				block.childLeaf(i).clearAllModified()
			} else {
				e.clearModifiedBlock(block.childInner(i), depth-1)
			}
		}
		block.setModified(i, false)
	}
}

func (e *Engine) propagateBlock(block *InnerBlock, depth uint8, keepModified bool, maxDepth uint8) {
	for i := uint8(0); i < 8; i++ {
		if !block.Modified.Get(i) {
			continue
		}
		if depth > maxDepth {
			// Above maxDepth: only descend toward the levels that propagate.
			if !block.Leaf.Get(i) && depth > 1 {
				e.propagateBlock(block.childInner(i), depth-1, keepModified, maxDepth)
			}
			continue
		}
		if block.Leaf.Get(i) {
			// No children: this sibling's own payload was written directly
			// (a coarse-resolution Apply via InnerFunc). Nothing to
			// aggregate from below.
			if !keepModified {
				block.Modified = block.Modified.Set(i, false)
			}
			continue
		}
		if depth == 1 {
			child := block.childLeaf(i)
			for _, m := range e.modules {
				m.UpdateNode(block, i, child)
			}
			pruned := e.maybePrune(block, i, depth, child)
			if !keepModified {
				if !pruned {
					child.Modified = 0
				}
				block.Modified = block.Modified.Set(i, false)
			}
			continue
		}
		child := block.childInner(i)
		e.propagateBlock(child, depth-1, keepModified, maxDepth)
		for _, m := range e.modules {
			m.UpdateNode(block, i, child)
		}
		e.maybePrune(block, i, depth, child)
		if !keepModified {
			block.Modified = block.Modified.Set(i, false)
		}
	}
	e.logger.Debugw("propagated block", "depth", depth)
}

// maybePrune implements §4.4.5: if automatic pruning is enabled and every
// configured module reports childKey collapsible (uniform with the parent),
// release the child block and set the parent's leaf bit — atomically with
// respect to any other mutator, since this runs under whatever lock the
// caller of PropagateModified already holds (propagate is not itself
// reentrant-safe across concurrent propagate calls; callers serialize
// their own propagate invocations, per §4.4.4's ordering guarantee).
func (e *Engine) maybePrune(parent *InnerBlock, i, depth uint8, child BlockKey) bool {
	if !e.cfg.AutomaticPrune || len(e.modules) == 0 {
		return false
	}
	for _, m := range e.modules {
		if !m.IsCollapsible(parent, i, child) {
			return false
		}
	}
	for _, m := range e.modules {
		m.ReleaseBlock(child)
	}
	if depth == 1 {
		e.alloc.releaseLeaf(child.(*LeafBlock))
	} else {
		e.alloc.releaseInner(child.(*InnerBlock))
	}
	parent.clearChild(i)
	parent.Leaf = parent.Leaf.Set(i, true)
	e.logger.Debugw("pruned block", "depth", depth-1, "sibling", i)
	return true
}
