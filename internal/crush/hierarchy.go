package crush

import "fmt"

// BucketType is a position in the topology's ordered type set
// (host < chassis < rack < row < pdu < pod < room < datacenter < region < root),
// with a synthetic "osd" type below host for leaf devices.
type BucketType int

const (
	TypeOSD BucketType = iota
	TypeHost
	TypeChassis
	TypeRack
	TypeRow
	TypePDU
	TypePod
	TypeRoom
	TypeDatacenter
	TypeRegion
	TypeRoot
)

func (t BucketType) String() string {
	switch t {
	case TypeOSD:
		return "osd"
	case TypeHost:
		return "host"
	case TypeChassis:
		return "chassis"
	case TypeRack:
		return "rack"
	case TypeRow:
		return "row"
	case TypePDU:
		return "pdu"
	case TypePod:
		return "pod"
	case TypeRoom:
		return "room"
	case TypeDatacenter:
		return "datacenter"
	case TypeRegion:
		return "region"
	case TypeRoot:
		return "root"
	default:
		return "unknown_type"
	}
}

// ParseBucketType maps a topology name from the textual format (§6) to a
// BucketType. The parser is external to this module; this lookup is the
// contract boundary a parser is expected to call through.
func ParseBucketType(name string) (BucketType, bool) {
	for t := TypeOSD; t <= TypeRoot; t++ {
		if t.String() == name {
			return t, true
		}
	}
	return 0, false
}

// Algorithm selects which weighted-choice formula a bucket's Choose uses.
type Algorithm int

const (
	AlgUniform Algorithm = iota
	AlgStraw2
)

// Device is a leaf of the hierarchy — an OSD.
type Device struct {
	ID     int64 // > 0, unique
	Name   string
	Class  string // optional device-class tag; "" if unset
	Weight Weight
	parent *Bucket
}

// Bucket is an internal node of the hierarchy.
type Bucket struct {
	ID       int64 // < 0, unique
	Name     string
	Type     BucketType
	Alg      Algorithm
	Weight   Weight
	Children []Child
	parent   *Bucket
}

// Child is either a Bucket or a Device; exactly one of the two is non-nil.
// A closed sum type, per the design notes' preference for tagged values
// over virtual dispatch.
type Child struct {
	Bucket *Bucket
	Device *Device
}

func (c Child) weight() Weight {
	if c.Bucket != nil {
		return c.Bucket.Weight
	}
	return c.Device.Weight
}

func (c Child) id() int64 {
	if c.Bucket != nil {
		return c.Bucket.ID
	}
	return c.Device.ID
}

// Hierarchy is the typed tree of buckets and devices rooted at a single
// Type-root bucket, with O(1) lookup tables maintained alongside the tree.
type Hierarchy struct {
	Root      *Bucket
	byName    map[string]*Bucket
	byID      map[int64]*Bucket
	devByID   map[int64]*Device
	devByName map[string]*Device
}

// NewHierarchy wraps a fully constructed tree and builds its lookup tables.
// Callers (a parser, a test fixture builder) are responsible for satisfying
// the invariants in §3 (unique ids, strictly decreasing child types, one
// root) before calling this — NewHierarchy does not itself validate the
// tree beyond refusing a nil root, since production construction happens
// once at load and is not performance sensitive to re-derive here.
func NewHierarchy(root *Bucket) (*Hierarchy, error) {
	if root == nil {
		return nil, fmt.Errorf("crush: hierarchy root must not be nil")
	}
	h := &Hierarchy{
		Root:      root,
		byName:    make(map[string]*Bucket),
		byID:      make(map[int64]*Bucket),
		devByID:   make(map[int64]*Device),
		devByName: make(map[string]*Device),
	}
	h.index(root, nil)
	h.recomputeSubtreeWeight(root)
	return h, nil
}

func (h *Hierarchy) index(b *Bucket, parent *Bucket) {
	b.parent = parent
	h.byName[b.Name] = b
	h.byID[b.ID] = b
	for i := range b.Children {
		c := b.Children[i]
		switch {
		case c.Bucket != nil:
			h.index(c.Bucket, b)
		case c.Device != nil:
			c.Device.parent = b
			h.devByID[c.Device.ID] = c.Device
			h.devByName[c.Device.Name] = c.Device
		}
	}
}

// recomputeSubtreeWeight recomputes bucket.Weight = Σ child.Weight bottom-up,
// used once after construction per §4.1.
func (h *Hierarchy) recomputeSubtreeWeight(b *Bucket) Weight {
	var total Weight
	for i := range b.Children {
		c := b.Children[i]
		if c.Bucket != nil {
			total += h.recomputeSubtreeWeight(c.Bucket)
		} else {
			total += c.Device.Weight
		}
	}
	b.Weight = total
	return total
}

// LookupByName returns the bucket with the given exact name, if any.
func (h *Hierarchy) LookupByName(name string) (*Bucket, bool) {
	b, ok := h.byName[name]
	return b, ok
}

// BucketByID returns the bucket with the given id.
func (h *Hierarchy) BucketByID(id int64) (*Bucket, bool) {
	b, ok := h.byID[id]
	return b, ok
}

// DeviceByID returns the device with the given id.
func (h *Hierarchy) DeviceByID(id int64) (*Device, bool) {
	d, ok := h.devByID[id]
	return d, ok
}

// DeviceByName returns the device with the given exact name.
func (h *Hierarchy) DeviceByName(name string) (*Device, bool) {
	d, ok := h.devByName[name]
	return d, ok
}

// Devices returns every device in the hierarchy, in an unspecified order.
func (h *Hierarchy) Devices() []*Device {
	out := make([]*Device, 0, len(h.devByID))
	for _, d := range h.devByID {
		out = append(out, d)
	}
	return out
}

// UpdateDeviceWeight sets device d's weight to w, propagating the delta to
// every ancestor bucket so that bucket.Weight == Σ child.Weight continues
// to hold exactly (§4.1). O(tree height).
func (h *Hierarchy) UpdateDeviceWeight(d *Device, w Weight) {
	delta := w - d.Weight
	d.Weight = w
	for b := d.parent; b != nil; b = b.parent {
		b.Weight += delta
	}
}

// Choose selects one child of b using b's algorithm, given selection input
// x and retry count r (§4.3).
func (b *Bucket) Choose(x int64, r int64) Child {
	switch b.Alg {
	case AlgUniform:
		return chooseUniform(b, x, r)
	default:
		return chooseStraw2(b, x, r)
	}
}
