package octree

// IndexField is an 8-bit mask, one bit per sibling position (0..7).
type IndexField uint8

// Get reports whether bit i is set.
func (f IndexField) Get(i uint8) bool {
	return f&(1<<i) != 0
}

// Set returns f with bit i set to v.
func (f IndexField) Set(i uint8, v bool) IndexField {
	if v {
		return f | (1 << i)
	}
	return f &^ (1 << i)
}

// All reports whether every one of the 8 bits is set.
func (f IndexField) All() bool {
	return f == 0xff
}

// None reports whether every one of the 8 bits is clear.
func (f IndexField) None() bool {
	return f == 0
}

// LeafBlock groups 8 sibling leaf records at depth 0. The engine itself only
// tracks the Modified bit per sibling here; attribute module payloads live
// out-of-line, keyed by the block's own identity (see AttributeModule).
type LeafBlock struct {
	Modified IndexField

	// fieldLock guards read-modify-write of Modified: the field is one byte
	// shared by all 8 siblings, so setting bit i and bit j concurrently (two
	// different mutations of the same block under LockDepth/LockNode) races
	// without it — a per-sibling flag alone doesn't protect a byte the
	// siblings all share.
	fieldLock spinFlag

	// free-list intrusive link.
	next *LeafBlock
}

func (b *LeafBlock) setModified(i uint8, v bool) {
	b.fieldLock.Lock()
	b.Modified = b.Modified.Set(i, v)
	b.fieldLock.Unlock()
}

// clearAllModified zeroes every Modified bit at once.
func (b *LeafBlock) clearAllModified() {
	b.fieldLock.Lock()
	b.Modified = 0
	b.fieldLock.Unlock()
}

// InnerBlock groups 8 sibling inner records at one depth. Each sibling that
// owns children (Leaf bit clear) has its own child pointer — a whole extra
// InnerBlock/LeafBlock of 8 grandchildren — stored per-sibling in the
// arrays below. Which array is meaningful is a block-wide property (every
// sibling in one InnerBlock sits at the same depth, so their children, if
// any, are uniformly all InnerBlocks or all LeafBlocks): childInner is used
// when depth >= 2, childLeaf when depth == 1.
type InnerBlock struct {
	Leaf     IndexField
	Modified IndexField
	locks    [8]nodeLock // used only under LockNode; one flag per sibling.

	// fieldLock guards read-modify-write of Leaf and Modified: both are one
	// byte shared by all 8 siblings, so the per-sibling locks[i] above
	// serializes creation of sibling i but does nothing to stop a
	// concurrent write to sibling j's bit in the same byte from racing with
	// it. Held only across the bit flip itself, never across a hook call.
	fieldLock spinFlag

	children     [8]*InnerBlock
	leafChildren [8]*LeafBlock

	next *InnerBlock // free-list intrusive link.
}

func (b *InnerBlock) setLeaf(i uint8, v bool) {
	b.fieldLock.Lock()
	b.Leaf = b.Leaf.Set(i, v)
	b.fieldLock.Unlock()
}

func (b *InnerBlock) setModified(i uint8, v bool) {
	b.fieldLock.Lock()
	b.Modified = b.Modified.Set(i, v)
	b.fieldLock.Unlock()
}

func (b *InnerBlock) childInner(i uint8) *InnerBlock { return b.children[i] }
func (b *InnerBlock) childLeaf(i uint8) *LeafBlock   { return b.leafChildren[i] }

// ChildInner exposes sibling i's inner child block, for callers (package
// serialize) that need to walk existing structure without going through
// Apply. Meaningful only when Leaf.Get(i) is false and the block's depth
// is >= 2; nil otherwise.
func (b *InnerBlock) ChildInner(i uint8) *InnerBlock { return b.children[i] }

// ChildLeaf is ChildInner's depth-1 counterpart.
func (b *InnerBlock) ChildLeaf(i uint8) *LeafBlock { return b.leafChildren[i] }

func (b *InnerBlock) setChildInner(i uint8, c *InnerBlock) {
	b.children[i] = c
	b.leafChildren[i] = nil
}

func (b *InnerBlock) setChildLeaf(i uint8, c *LeafBlock) {
	b.leafChildren[i] = c
	b.children[i] = nil
}

func (b *InnerBlock) clearChild(i uint8) {
	b.children[i] = nil
	b.leafChildren[i] = nil
}

// NodeHandle identifies a resolved node: the block holding its record, its
// code, and the depth the block actually sits at (data_depth), which may
// exceed code.Depth() when no finer block exists along the path.
type NodeHandle struct {
	Inner     *InnerBlock // set when DataDepth >= 1.
	Leaf      *LeafBlock  // set when DataDepth == 0.
	Code      Code
	DataDepth uint8
}

// Index is the sibling slot within Inner/Leaf that this handle addresses.
func (h NodeHandle) Index() uint8 {
	return h.Code.Index(h.DataDepth)
}

// IsLeafBlock reports whether this handle refers to a record inside a
// LeafBlock (depth 0).
func (h NodeHandle) IsLeafBlock() bool {
	return h.Leaf != nil
}

// Exists reports whether the node this handle was resolved for actually
// has its own record, i.e. data_depth == code.depth() — per §9's precise
// definition, resolving the source's ambiguous placeholder "exists()"
// behavior.
func (h NodeHandle) Exists() bool {
	return h.DataDepth == h.Code.Depth()
}
