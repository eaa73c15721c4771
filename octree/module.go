package octree

import "io"

// BlockKey is the identity an attribute module uses to key its own
// out-of-line, 8-wide payload block. It is always one of the pointer types
// the engine itself allocates (*InnerBlock, *LeafBlock, or the engine's
// root record) — modules never construct their own keys, they only use
// whatever the engine hands them so a module's storage stays 1:1 with the
// engine's block lifetime, per the spec's "attribute module state" note.
type BlockKey = any

// AttributeModule is the hook contract every payload module (occupancy,
// color, time-step, semantics, surfel, ...) implements. The engine
// dispatches these in a fixed order (registration order) to every
// configured module on every block lifecycle event; see §4.5.
type AttributeModule interface {
	// MapType is this module's unique serialization tag. A tag of 0 means
	// "do not serialize."
	MapType() uint16

	// AllocateBlock allocates this module's parallel 8-wide payload array
	// for a newly created block, identified by key.
	AllocateBlock(key BlockKey)

	// ReleaseBlock frees (or free-lists) the payload array for key. Called
	// when the engine releases the corresponding octree block.
	ReleaseBlock(key BlockKey)

	// InitRoot initializes this module's 8-wide payload array for the root
	// block, whose 8 siblings are the top-level octants.
	InitRoot(rootKey BlockKey)

	// Fill broadcasts parent's sibling-i payload into all 8 children of the
	// newly created block childKey.
	Fill(parentKey BlockKey, parentIndex uint8, childKey BlockKey)

	// ClearAll resets every payload this module owns back to its zero
	// state, used by Engine.Clear().
	ClearAll()

	// UpdateNode aggregates the 8 children of childKey into
	// parent[parentIndex] (mean/max/min/union, module-defined).
	UpdateNode(parentKey BlockKey, parentIndex uint8, childKey BlockKey)

	// IsCollapsible reports whether every one of childKey's 8 siblings can
	// be replaced by a single leaf with the parent's payload, i.e. all 8
	// children carry the same value as each other and as the parent.
	IsCollapsible(parentKey BlockKey, parentIndex uint8, childKey BlockKey) bool
}

// SerializableModule extends AttributeModule with the per-node I/O hooks
// used by package serialize. A module with MapType() == 0 need not
// implement anything meaningful here; the writer skips it.
type SerializableModule interface {
	AttributeModule

	// CanReadData reports whether this module recognizes tag as its own
	// (or a compatible predecessor's) serialization tag.
	CanReadData(tag uint16) bool

	// WriteNode writes the single payload record at childKey[i].
	WriteNode(w io.Writer, key BlockKey, i uint8) error

	// ReadNode reads a single payload record into childKey[i].
	ReadNode(r io.Reader, key BlockKey, i uint8) error
}
