package octree

import (
	"math"

	"github.com/golang/geo/r3"
)

// Config parameterizes an Engine: leaf size, depth, lock policy, and
// allocation behavior. Validate with Config.validate before constructing an
// Engine; New does this for you.
type Config struct {
	// LeafSize is the edge length, in world units, of a depth-0 node.
	LeafSize float64
	// DepthLevels is the number of levels in the tree, including the root.
	// Must be in [3, 22].
	DepthLevels uint8
	// Lock selects the concurrency policy. Zero value is LockNone.
	Lock LockPolicy
	// ReuseNodes enables the free-list: released blocks are pushed onto a
	// stack and reused on the next allocation instead of being dropped.
	ReuseNodes bool
	// AutomaticPrune enables collapsing of fully-collapsible sibling groups
	// during propagateModified. If false, propagate still aggregates but
	// never prunes.
	AutomaticPrune bool
	// KeepModified, if true, leaves the modified bit set after propagation
	// instead of clearing it (used by callers that want to re-diff a
	// subtree across multiple propagate passes).
	KeepModified bool
}

func (c Config) validate() error {
	if c.DepthLevels < minDepthLevels || c.DepthLevels > maxDepthLevels {
		return newConfigError("depth_levels %d outside [%d, %d]", c.DepthLevels, minDepthLevels, maxDepthLevels)
	}
	if c.LeafSize <= 0 {
		return newConfigError("leaf_size must be positive, got %v", c.LeafSize)
	}
	if c.Lock != LockNone && c.Lock != LockDepth && c.Lock != LockNode {
		return newConfigError("unknown lock policy %d", c.Lock)
	}
	return nil
}

// maxValue is 2^(depth_levels-2), the half-extent of the addressable lattice
// in depth-0 units.
func (c Config) maxValue() int64 {
	return int64(1) << (c.DepthLevels - 2)
}

// size returns the edge length of a node at depth d.
func (c Config) size(d uint8) float64 {
	return c.LeafSize * float64(int64(1)<<d)
}

// rootDepth is the depth of the root (depth_levels - 1).
func (c Config) rootDepth() uint8 {
	return c.DepthLevels - 1
}

// Key is a quantized lattice coordinate: three offset integer components
// (non-negative, centered by maxValue) plus the depth at which they are
// expressed.
type Key struct {
	X, Y, Z uint32
	Depth   uint8
}

// ToKey quantizes a real-valued coordinate to a Key at depth d.
func (c Config) ToKey(coord r3.Vector, d uint8) (Key, error) {
	k, ok := c.ToKeyChecked(coord, d)
	if !ok {
		return Key{}, newBoundsError("coordinate %v out of bounds for leaf_size=%v depth_levels=%d", coord, c.LeafSize, c.DepthLevels)
	}
	return k, nil
}

// ToKeyChecked is the non-erroring form of ToKey.
func (c Config) ToKeyChecked(coord r3.Vector, d uint8) (Key, bool) {
	max := c.maxValue()
	axis := func(v float64) (uint32, bool) {
		q := math.Floor(v/c.LeafSize) + float64(max)
		if math.IsNaN(q) || q < 0 || q > float64(int64(2)*max) {
			return 0, false
		}
		iq := int64(q)
		if iq < 0 || iq >= int64(1)<<keyBits {
			return 0, false
		}
		return uint32(iq) &^ (uint32(1)<<d - 1), true
	}
	x, ok := axis(coord.X)
	if !ok {
		return Key{}, false
	}
	y, ok := axis(coord.Y)
	if !ok {
		return Key{}, false
	}
	z, ok := axis(coord.Z)
	if !ok {
		return Key{}, false
	}
	return Key{X: x, Y: y, Z: z, Depth: d}, true
}

// ToCode converts a Key to a Code.
func ToCode(k Key) Code {
	return codeFromMorton(interleave(k.X, k.Y, k.Z), k.Depth)
}

// ToCodeChecked converts a Key to a Code, rejecting depths outside range.
func ToCodeChecked(k Key, cfg Config) (Code, bool) {
	if k.Depth >= cfg.DepthLevels {
		return 0, false
	}
	return ToCode(k), true
}

// ToKey converts a Code back to a Key.
func ToKey(c Code) Key {
	x, y, z := deinterleave(c.morton())
	return Key{X: x, Y: y, Z: z, Depth: c.Depth()}
}

// Coord converts a Key back to the real-valued coordinate of the node's
// corner (not its center) at its own depth.
func (c Config) Coord(k Key) r3.Vector {
	max := float64(c.maxValue())
	return r3.Vector{
		X: (float64(k.X) - max) * c.LeafSize,
		Y: (float64(k.Y) - max) * c.LeafSize,
		Z: (float64(k.Z) - max) * c.LeafSize,
	}
}

// Center converts a Key to the real-valued center of the node it addresses.
func (c Config) Center(k Key) r3.Vector {
	half := c.size(k.Depth) / 2
	corner := c.Coord(k)
	return r3.Vector{X: corner.X + half, Y: corner.Y + half, Z: corner.Z + half}
}
