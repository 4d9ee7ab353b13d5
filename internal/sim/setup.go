// Package sim implements the discrete-event write/peering/failure
// simulator that runs on top of a crush.Hierarchy and crush.Rule: the
// placement groups, the event taxonomy, the scheduler, the iteration
// driver, and the reconciler (§4.6-§4.10).
package sim

import (
	"sort"

	"crushsim/internal/crush"
	"crushsim/internal/liveness"
)

// DefaultPGCount mirrors original_source/backend/main.py's bootstrap setup.
const DefaultPGCount = 8

// DefaultPoolReplicas is the pool_replicas argument handed to every
// crush.Evaluate call when no pool configuration overrides it.
const DefaultPoolReplicas = 3

// Simulation bundles every piece of mutable state one simulator instance
// owns: the topology, the placement rule, the live device weights, the
// placement groups, the event queue, and the run context. A `rule` or
// `adjust_rule` inbound command (§6) replaces this wholesale via NewSetup
// or Reconcile.
type Simulation struct {
	Hierarchy    *crush.Hierarchy
	Rule         crush.Rule
	Tunables     crush.Tunables
	PoolReplicas int

	Context   *Context
	Scheduler *Scheduler
	PGs       []*PlacementGroup

	// InitWeight is each device's nominal weight, independent of the
	// oracle-driven up/down toggling the iteration driver applies to
	// Hierarchy. A device whose InitWeight is itself OutOfClusterWeight
	// is permanently excluded (§4.9 step 1), distinct from one merely
	// toggled down by liveness.
	InitWeight map[int64]crush.Weight
}

// NewSetup builds a fresh simulation over hierarchy/rule: every device
// starts at its current hierarchy weight, every PG starts with an empty
// map and an active phase, and death probability defaults to
// liveness.DefaultDeathProba unless priorDeathProba is non-nil (§6: "rule"
// preserves the previous death_proba if any).
func NewSetup(hierarchy *crush.Hierarchy, rule crush.Rule, tunables crush.Tunables, poolReplicas int, priorDeathProba *float64) *Simulation {
	devices := hierarchy.Devices()
	ids := make([]int64, len(devices))
	initWeight := make(map[int64]crush.Weight, len(devices))
	for i, d := range devices {
		ids[i] = d.ID
		initWeight[d.ID] = d.Weight
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	p := liveness.DefaultDeathProba
	if priorDeathProba != nil {
		p = *priorDeathProba
	}
	oracle := liveness.NewOracle(ids, p)

	pgs := make([]*PlacementGroup, DefaultPGCount)
	for i := range pgs {
		pgs[i] = NewPlacementGroup(i)
	}

	return &Simulation{
		Hierarchy:    hierarchy,
		Rule:         rule,
		Tunables:     tunables,
		PoolReplicas: poolReplicas,
		Context:      NewContext(oracle),
		Scheduler:    NewScheduler(),
		PGs:          pgs,
		InitWeight:   initWeight,
	}
}

// Bootstrap seeds the scheduler with the first MainloopIteration at t=0.
// Called once, after NewSetup, before the simulation's queue is ever
// stepped.
func (s *Simulation) Bootstrap() {
	s.Scheduler.Push(&Event{Kind: MainloopIteration, Time: s.Context.CurrentTime})
}

// PGByID returns the placement group with the given id, or nil.
func (s *Simulation) PGByID(id int) *PlacementGroup {
	for _, pg := range s.PGs {
		if pg.ID == id {
			return pg
		}
	}
	return nil
}

// PGForObject hashes obj to select a placement group, per §6's insert
// command ("sha-based hash mod |pgs|").
func (s *Simulation) PGForObject(obj int64) *PlacementGroup {
	h := crush.Hash(obj)
	idx := int(h % uint64(len(s.PGs)))
	return s.PGs[idx]
}

// DeviceIDsSorted returns every device id in the hierarchy in ascending
// order, giving the iteration driver a deterministic device visit order.
func (s *Simulation) DeviceIDsSorted() []int64 {
	devices := s.Hierarchy.Devices()
	ids := make([]int64, len(devices))
	for i, d := range devices {
		ids[i] = d.ID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
