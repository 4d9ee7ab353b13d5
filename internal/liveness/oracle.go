// Package liveness implements the deterministic death-probability oracle
// the iteration driver consults for device up/down transitions (§4.5).
package liveness

import (
	"crushsim/internal/check"
	"crushsim/internal/crush"
)

// DefaultDeathProba is the per-device death probability a simulator resets
// to whenever a rule is installed without a prior oracle to inherit from
// (§6: "otherwise defaults to 0.25").
const DefaultDeathProba = 0.25

// Oracle answers "is device d alive at virtual time t" deterministically,
// as a pure function of (d.id, t, p_die) — no clock, no randomness source,
// so the same query always returns the same answer across runs and
// platforms. One Oracle instance tracks every device of a single
// hierarchy generation; the reconciler (C10) builds a fresh Oracle rather
// than mutating this one across a hierarchy edit.
type Oracle struct {
	proba map[int64]float64
}

// NewOracle seeds an oracle for deviceIDs, all starting at death
// probability p.
func NewOracle(deviceIDs []int64, p float64) *Oracle {
	o := &Oracle{proba: make(map[int64]float64, len(deviceIDs))}
	for _, id := range deviceIDs {
		o.proba[id] = p
	}
	return o
}

// SetDeathProba re-sets p_die on every device this oracle tracks (§4.5):
// probability updates apply uniformly, never per-device.
func (o *Oracle) SetDeathProba(p float64) {
	for id := range o.proba {
		o.proba[id] = p
	}
}

// DeathProba reports the current death probability tracked for deviceID;
// used by the reconciler (§4.10) to carry the uniform rate forward into a
// freshly rebuilt oracle for an edited hierarchy.
func (o *Oracle) DeathProba(deviceID int64) float64 {
	return o.proba[deviceID]
}

// Tracks reports whether deviceID has a probability entry.
func (o *Oracle) Tracks(deviceID int64) bool {
	_, ok := o.proba[deviceID]
	return ok
}

// AliveAt implements §4.5's alive_at: true iff
// low16(H(d.id, t)) >= round(p_die * 65535). Called both for the current
// time and for current_time + j*timestep during peering look-ahead
// (§4.6); both cases are just different values of t.
func (o *Oracle) AliveAt(deviceID int64, t int64) bool {
	p := o.proba[deviceID]
	check.Assertf(p >= 0 && p <= 1, "liveness: death probability %v for device %d out of range", p, deviceID)
	threshold := crush.Round65535(p)
	u := crush.Low16(crush.Hash(deviceID, t))
	return uint32(u) >= threshold
}
