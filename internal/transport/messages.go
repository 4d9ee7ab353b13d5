// Package transport implements the JSON frame contract (§6) a caller
// drives a simulator through: inbound commands (rule, adjust_rule, step,
// insert, mode) and outbound frames (hierarchy/event responses). The
// channel itself is a bidirectional byte stream; this package only knows
// about frame shapes and dispatch, not how the bytes got here.
package transport

import (
	"encoding/json"
	"fmt"

	"crushsim/internal/crush"
	"crushsim/internal/sim"
)

// Inbound is the envelope every inbound command arrives in: a type tag
// plus whichever of the type-specific fields that command uses.
type Inbound struct {
	Type string `json:"type"`

	Message string `json:"message,omitempty"` // rule, adjust_rule
	ID      int64  `json:"id,omitempty"`       // insert
	NewMode string `json:"new_mode,omitempty"` // mode
}

// ParseInbound decodes one JSON frame into an Inbound envelope.
func ParseInbound(data []byte) (Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return Inbound{}, fmt.Errorf("transport: decode inbound frame: %w", err)
	}
	return in, nil
}

// HierarchyFail is the outbound frame a failed rule/adjust_rule parse
// produces (§6, §7): simulator state is left unchanged.
type HierarchyFail struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

func NewHierarchyFail(err error) HierarchyFail {
	return HierarchyFail{Type: "hierarchy_fail", Data: err.Error()}
}

// HierarchySuccess is the outbound frame a successful rule reset produces.
type HierarchySuccess struct {
	Type string     `json:"type"`
	Data BucketNode `json:"data"`
}

func NewHierarchySuccess(h *crush.Hierarchy) HierarchySuccess {
	return HierarchySuccess{Type: "hierarchy_success", Data: serializeBucket(h.Root)}
}

// AdjustHierarchySuccess is adjust_rule's success response: the rewritten
// hierarchy plus the virtual clock at the moment of reconciliation.
type AdjustHierarchySuccess struct {
	Type      string     `json:"type"`
	Data      BucketNode `json:"data"`
	Timestamp int64      `json:"timestamp"`
}

func NewAdjustHierarchySuccess(h *crush.Hierarchy, timestamp int64) AdjustHierarchySuccess {
	return AdjustHierarchySuccess{Type: "adjust_hierarchy_success", Data: serializeBucket(h.Root), Timestamp: timestamp}
}

// EventsFrame is step's response: every observable event produced by that
// process_pending call, stamped with the cohort's timestamp.
type EventsFrame struct {
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp"`
	Events    []EventJSON `json:"events"`
}

func NewEventsFrame(timestamp int64, batch []*sim.Event) EventsFrame {
	events := make([]EventJSON, len(batch))
	for i, ev := range batch {
		events[i] = serializeEvent(ev)
	}
	return EventsFrame{Type: "events", Timestamp: timestamp, Events: events}
}

// EventJSON is one outbound event (§4.7), tagged by Type. Only the fields
// relevant to Type are populated; this mirrors sim.Event's own
// tagged-union shape rather than introducing a second taxonomy.
type EventJSON struct {
	Type string `json:"type"`
	Time int64  `json:"time"`

	OpID   int64  `json:"op_id,omitempty"` // 0 only means "no op associated with this event kind"; NextOpID starts at 1
	Obj    int64  `json:"obj,omitempty"`
	PG     int    `json:"pg"`  // pg ids start at 0 (§3); must always be present to reconstruct the causal chain
	OSD    int64  `json:"osd"` // device ids are > 0, so 0 means the event names no device
	Reason string `json:"reason,omitempty"`

	PeeringID      int64   `json:"peering_id,omitempty"`
	DevicesTouched []int64 `json:"devices_touched,omitempty"`
	CandidateMap   []int64 `json:"candidate_map,omitempty"`
}

func serializeEvent(ev *sim.Event) EventJSON {
	return EventJSON{
		Type:           ev.Kind.String(),
		Time:           ev.Time,
		OpID:           ev.OpID,
		Obj:            ev.Obj,
		PG:             ev.PG,
		OSD:            ev.OSD,
		Reason:         ev.Reason,
		PeeringID:      ev.PeeringID,
		DevicesTouched: ev.DevicesTouched,
		CandidateMap:   ev.CandidateMap,
	}
}

// BucketNode is the hierarchy JSON shape (§6): every bucket serializes as
// {name, type:"bucket", children}, every device as {name:"osd.<id>",
// type:"osd"}. A single recursive type covers both: Children is nil for a
// device leaf.
type BucketNode struct {
	Name     string       `json:"name"`
	Type     string       `json:"type"`
	Children []BucketNode `json:"children,omitempty"`
}

func serializeBucket(b *crush.Bucket) BucketNode {
	node := BucketNode{Name: b.Name, Type: "bucket"}
	for _, child := range b.Children {
		switch {
		case child.Bucket != nil:
			node.Children = append(node.Children, serializeBucket(child.Bucket))
		case child.Device != nil:
			node.Children = append(node.Children, BucketNode{Name: child.Device.Name, Type: "osd"})
		}
	}
	return node
}
