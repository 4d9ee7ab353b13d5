package sim

import (
	"crushsim/internal/crush"
	"crushsim/internal/liveness"
)

// Reconcile is C10's adjust_mapping: installing an edited hierarchy/rule
// mid-simulation. It preserves the clock and every PG's recorded history,
// installs a fresh liveness oracle over the new device set (propagating
// sticky-dead status for devices that were permanently out-of-cluster
// before), and rewrites every in-flight event against the new device set
// per §4.10's table.
func Reconcile(old *Simulation, newHierarchy *crush.Hierarchy, newRule crush.Rule, newTunables crush.Tunables) *Simulation {
	ctx := &Context{
		CurrentTime:     old.Context.CurrentTime,
		Timestep:        old.Context.Timestep,
		TimestepsToPeer: old.Context.TimestepsToPeer,
		Timeout:         old.Context.Timeout,
		UserConnSpeed:   old.Context.UserConnSpeed,
		ConnSpeed:       old.Context.ConnSpeed,
		FailureProba:    old.Context.FailureProba,
	}

	newDevices := newHierarchy.Devices()
	newIDs := make([]int64, len(newDevices))
	initWeight := make(map[int64]crush.Weight, len(newDevices))
	for i, d := range newDevices {
		newIDs[i] = d.ID
		initWeight[d.ID] = d.Weight
	}

	// Sticky-dead propagation: a device permanently out-of-cluster in the
	// old hierarchy stays out-of-cluster in the new one.
	for id, w := range old.InitWeight {
		if w != crush.OutOfClusterWeight {
			continue
		}
		if d, ok := newHierarchy.DeviceByID(id); ok {
			newHierarchy.UpdateDeviceWeight(d, crush.OutOfClusterWeight)
			initWeight[id] = crush.OutOfClusterWeight
		}
	}

	priorDeathProba := liveness.DefaultDeathProba
	for id := range old.InitWeight {
		if old.Context.Oracle.Tracks(id) {
			priorDeathProba = old.Context.Oracle.DeathProba(id)
			break
		}
	}
	ctx.Oracle = liveness.NewOracle(newIDs, priorDeathProba)

	next := &Simulation{
		Hierarchy:    newHierarchy,
		Rule:         newRule,
		Tunables:     newTunables,
		PoolReplicas: old.PoolReplicas,
		Context:      ctx,
		Scheduler:    NewScheduler(),
		PGs:          old.PGs,
		InitWeight:   initWeight,
	}

	newPeerings := make(map[int64]bool)
	failingOps := make(map[int64]bool)

	deviceAbsent := func(id int64) bool {
		_, ok := newHierarchy.DeviceByID(id)
		return !ok
	}

	for _, ev := range old.Scheduler.Drain() {
		switch ev.Kind {
		case MainloopIteration:
			next.Scheduler.Push(&Event{Kind: MainloopIteration, Time: ctx.CurrentTime})

		case SendFailure:
			next.Scheduler.Push(ev)

		case PrimaryRecvSuccess:
			if deviceAbsent(ev.OSD) {
				failingOps[ev.OpID] = true
				next.Scheduler.Push(&Event{Kind: SendFailure, Time: ev.Time, Obj: ev.Obj, Reason: "primary removed"})
				continue
			}
			newMap := make([]int64, 0, len(ev.Map))
			newMap = append(newMap, ev.OSD)
			for _, d := range ev.Map[1:] {
				if deviceAbsent(d) {
					failingOps[ev.OpID] = true
					continue
				}
				newMap = append(newMap, d)
			}
			rewritten := *ev
			rewritten.Map = newMap
			next.Scheduler.Push(&rewritten)

		case PrimaryRecvFailure:
			if !deviceAbsent(ev.OSD) {
				next.Scheduler.Push(ev)
			}

		case PrimaryRecvAcknowledged:
			if deviceAbsent(ev.OSD) {
				continue
			}
			if failingOps[ev.OpID] {
				next.Scheduler.Push(&Event{Kind: PrimaryReplicationFail, Time: ev.Time, OpID: ev.OpID, Obj: ev.Obj, PG: ev.PG, OSD: ev.OSD})
				continue
			}
			next.Scheduler.Push(ev)

		case PrimaryReplicationFail, ReplicaRecvSuccess, ReplicaRecvFailure, ReplicaRecvAcknowledged:
			if !deviceAbsent(ev.OSD) {
				next.Scheduler.Push(ev)
			}

		case PeeringStart:
			newPeerings[ev.PeeringID] = true

		case PeeringSuccess:
			if newPeerings[ev.PeeringID] {
				continue
			}
			next.Scheduler.Push(&Event{Kind: PeeringFailure, Time: ev.Time, PeeringID: ev.PeeringID, PG: ev.PG})

		case PeeringFailure:
			if !newPeerings[ev.PeeringID] {
				next.Scheduler.Push(ev)
			}

		case OSDFailed, OSDRecovered:
			if !deviceAbsent(ev.OSD) {
				next.Scheduler.Push(ev)
			}
		}
	}

	return next
}
