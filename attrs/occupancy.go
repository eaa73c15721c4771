package attrs

import (
	"encoding/binary"
	"io"
)

// OccupancyState classifies a log-odds value against a module's
// configured thresholds.
type OccupancyState int

const (
	StateUnknown OccupancyState = iota
	StateFree
	StateOccupied
)

// MapTypeOccupancy is Occupancy's serialization tag.
const MapTypeOccupancy uint16 = 1

// Occupancy is the clamped log-odds occupancy module from spec §9: each
// node carries a single int8 log-odds value, aggregated upward by mean and
// classified against OccupiedThreshold/FreeThreshold.
type Occupancy struct {
	store *blockStore[int8]

	ClampMin, ClampMax         int8
	OccupiedThreshold, FreeThreshold int8
}

// NewOccupancy constructs an Occupancy module. Reasonable defaults mirror
// common log-odds occupancy grids: clamp to [-127, 127], occupied at >=
// 50, free at <= -50.
func NewOccupancy() *Occupancy {
	return &Occupancy{
		store:             newBlockStore[int8](),
		ClampMin:          -127,
		ClampMax:          127,
		OccupiedThreshold: 50,
		FreeThreshold:     -50,
	}
}

func (o *Occupancy) MapType() uint16 { return MapTypeOccupancy }

func (o *Occupancy) AllocateBlock(key any) { o.store.allocate(key) }
func (o *Occupancy) ReleaseBlock(key any)  { o.store.release(key) }
func (o *Occupancy) InitRoot(rootKey any)  { o.store.allocate(rootKey) }
func (o *Occupancy) ClearAll()             { o.store.clear() }

func (o *Occupancy) Fill(parentKey any, parentIndex uint8, childKey any) {
	v := int8(0)
	if parent := o.store.get(parentKey); parent != nil {
		v = parent[parentIndex]
	}
	child := o.store.allocate(childKey)
	for i := range child {
		child[i] = v
	}
}

func (o *Occupancy) UpdateNode(parentKey any, parentIndex uint8, childKey any) {
	child := o.store.get(childKey)
	if child == nil {
		return
	}
	sum := int32(0)
	for _, v := range child {
		sum += int32(v)
	}
	mean := int8(sum / 8)
	if parent := o.store.get(parentKey); parent != nil {
		parent[parentIndex] = o.clamp(mean)
	}
}

func (o *Occupancy) IsCollapsible(parentKey any, parentIndex uint8, childKey any) bool {
	child := o.store.get(childKey)
	if child == nil {
		return true
	}
	first := child[0]
	for _, v := range child {
		if v != first {
			return false
		}
	}
	parent := o.store.get(parentKey)
	return parent == nil || parent[parentIndex] == first
}

func (o *Occupancy) clamp(v int8) int8 {
	if v < o.ClampMin {
		return o.ClampMin
	}
	if v > o.ClampMax {
		return o.ClampMax
	}
	return v
}

// Set writes a clamped log-odds value at key[i].
func (o *Occupancy) Set(key any, i uint8, logOdds int8) {
	if arr := o.store.get(key); arr != nil {
		arr[i] = o.clamp(logOdds)
	}
}

// Add clamps-adds delta to the current value at key[i], the usual
// hit/miss update used by a ray-casting caller.
func (o *Occupancy) Add(key any, i uint8, delta int8) {
	if arr := o.store.get(key); arr != nil {
		sum := int32(arr[i]) + int32(delta)
		if sum > int32(o.ClampMax) {
			sum = int32(o.ClampMax)
		}
		if sum < int32(o.ClampMin) {
			sum = int32(o.ClampMin)
		}
		arr[i] = int8(sum)
	}
}

// Get returns the log-odds value at key[i], and false if key is unknown.
func (o *Occupancy) Get(key any, i uint8) (int8, bool) {
	arr := o.store.get(key)
	if arr == nil {
		return 0, false
	}
	return arr[i], true
}

// State classifies v against the configured thresholds.
func (o *Occupancy) State(v int8) OccupancyState {
	switch {
	case v >= o.OccupiedThreshold:
		return StateOccupied
	case v <= o.FreeThreshold:
		return StateFree
	default:
		return StateUnknown
	}
}

func (o *Occupancy) CanReadData(tag uint16) bool { return tag == MapTypeOccupancy }

func (o *Occupancy) WriteNode(w io.Writer, key any, i uint8) error {
	v := int8(0)
	if arr := o.store.get(key); arr != nil {
		v = arr[i]
	}
	return binary.Write(w, binary.LittleEndian, v)
}

func (o *Occupancy) ReadNode(r io.Reader, key any, i uint8) error {
	var v int8
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return err
	}
	arr := o.store.get(key)
	if arr == nil {
		arr = o.store.allocate(key)
	}
	arr[i] = v
	return nil
}
