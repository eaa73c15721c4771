package octree

import "github.com/pkg/errors"

// BoundsError reports a coordinate, key, or depth outside the octree's
// addressable range.
type BoundsError struct {
	Reason string
}

func (e *BoundsError) Error() string {
	return "octree: out of bounds: " + e.Reason
}

func newBoundsError(format string, args ...interface{}) error {
	return &BoundsError{Reason: errors.Errorf(format, args...).Error()}
}

// ConfigError reports an invalid Config passed to New.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "octree: invalid config: " + e.Reason
}

func newConfigError(format string, args ...interface{}) error {
	return &ConfigError{Reason: errors.Errorf(format, args...).Error()}
}

// StructureError reports a tree-structure stream inconsistent with its node
// count, surfaced by the serialize package but defined here since it shares
// the invariant language of §8 of the spec this module implements.
type StructureError struct {
	Reason string
}

func (e *StructureError) Error() string {
	return "octree: structure error: " + e.Reason
}

func newStructureError(format string, args ...interface{}) error {
	return &StructureError{Reason: errors.Errorf(format, args...).Error()}
}
