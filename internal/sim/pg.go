package sim

import (
	"crushsim/internal/check"
)

// Phase is a placement group's peering state (§4.6, §4.9). Mirrors the
// freshness tracker's phase-enum idiom: a small closed state machine with
// an assertion-guarded Transition rather than a bare field any caller can
// set.
type Phase uint8

const (
	PhaseActive Phase = iota + 1
	PhasePeering
)

func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhasePeering:
		return "peering"
	default:
		return "unknown_phase"
	}
}

func (p Phase) Transition(to Phase) Phase {
	ok := false
	switch p {
	case PhaseActive:
		ok = to == PhasePeering
	case PhasePeering:
		ok = to == PhaseActive
	}
	check.Assertf(ok, "pg phase transition: %s -> %s", p, to)
	if !ok {
		return p
	}
	return to
}

// Op tags a write request applied to a device's per-PG log (§4.8).
type Op uint8

const (
	OpInsert Op = iota
	OpUpdate
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown_op"
	}
}

// LogEntry is one write recorded against a device's view of a placement
// group.
type LogEntry struct {
	Op  Op
	Obj int64
}

// PlacementGroup is C6: a mapping history, a peering phase, and per-device
// write logs.
type PlacementGroup struct {
	ID       int
	Maps     [][]int64
	LastSync int
	Phase    Phase
	Log      map[int64][]LogEntry
}

// NewPlacementGroup returns an empty, active placement group.
func NewPlacementGroup(id int) *PlacementGroup {
	return &PlacementGroup{
		ID:    id,
		Phase: PhaseActive,
		Log:   make(map[int64][]LogEntry),
	}
}

// CurrentMap returns the most recently recorded map, or nil if none has
// been recorded yet.
func (pg *PlacementGroup) CurrentMap() []int64 {
	if len(pg.Maps) == 0 {
		return nil
	}
	return pg.Maps[len(pg.Maps)-1]
}

// RecordIfNew appends m to Maps iff it differs from the last entry,
// reporting whether it was appended (§4.6).
func (pg *PlacementGroup) RecordIfNew(m []int64) bool {
	if len(pg.Maps) > 0 && equalMaps(pg.Maps[len(pg.Maps)-1], m) {
		return false
	}
	pg.Maps = append(pg.Maps, m)
	return true
}

func equalMaps(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Peer implements §4.6's peer: whether candidate, together with every map
// appended since the last successful sync, stays reachable for the full
// peering look-ahead window. candidate is not yet part of Maps — it is
// only recorded there once the PeeringSuccess callback commits it, so Peer
// takes it as a parameter rather than assuming it has already been
// appended.
func (pg *PlacementGroup) Peer(ctx *Context, candidate []int64) bool {
	unsynced := pg.Maps[pg.LastSync:]
	success := true
	for _, m := range unsynced {
		if !mapSurvivesPeering(ctx, m) {
			success = false
		}
	}
	if !mapSurvivesPeering(ctx, candidate) {
		success = false
	}
	return success
}

func mapSurvivesPeering(ctx *Context, m []int64) bool {
	for j := int64(0); j < ctx.TimestepsToPeer; j++ {
		t := ctx.CurrentTime + j*ctx.Timestep
		if !anyAlive(ctx, m, t) {
			return false
		}
	}
	return true
}

func anyAlive(ctx *Context, m []int64, t int64) bool {
	for _, d := range m {
		if ctx.Oracle.AliveAt(d, t) {
			return true
		}
	}
	return false
}

// StartPeering flips the phase to peering.
func (pg *PlacementGroup) StartPeering() {
	pg.Phase = pg.Phase.Transition(PhasePeering)
}

// StopPeering flips the phase back to active.
func (pg *PlacementGroup) StopPeering() {
	pg.Phase = pg.Phase.Transition(PhaseActive)
}

// AppendLog records a write against device d's log.
func (pg *PlacementGroup) AppendLog(d int64, op Op, obj int64) {
	pg.Log[d] = append(pg.Log[d], LogEntry{Op: op, Obj: obj})
}
