package sim

import (
	"crushsim/internal/check"
	"crushsim/internal/crush"
)

// Step implements process_pending (§4.9): pops one time-cohort of events
// in heap order, applies each, and returns the timestamp plus every
// observer-visible event in that cohort. Returns ok=false on an empty
// queue.
func (s *Simulation) Step() (now int64, batch []*Event, ok bool) {
	now, cohort, ok := s.Scheduler.PopCohort()
	if !ok {
		return -1, nil, false
	}
	for _, ev := range cohort {
		children := s.processEvent(ev)
		for _, child := range children {
			s.Scheduler.Push(child)
		}
		if ev.Kind.Observable() {
			batch = append(batch, ev)
		}
	}
	return now, batch, true
}

// processEvent applies ev's side effect, returning any follow-on events
// that must be pushed back into the scheduler. Only MainloopIteration
// produces follow-on events; every other kind either mutates PG state in
// place or is purely observational.
func (s *Simulation) processEvent(ev *Event) []*Event {
	switch ev.Kind {
	case MainloopIteration:
		return s.runIteration()
	case PrimaryRecvSuccess, ReplicaRecvSuccess:
		if pg := s.PGByID(ev.PG); pg != nil {
			pg.AppendLog(ev.OSD, ev.WriteOp, ev.Obj)
		}
	case PeeringStart:
		if pg := s.PGByID(ev.PG); pg != nil {
			pg.StartPeering()
		}
	case PeeringSuccess:
		if pg := s.PGByID(ev.PG); pg != nil {
			pg.StopPeering()
			pg.LastSync = len(pg.Maps)
			pg.RecordIfNew(ev.CandidateMap)
		}
	case PeeringFailure:
		if pg := s.PGByID(ev.PG); pg != nil {
			pg.StopPeering()
		}
	}
	return nil
}

// runIteration is get_iteration_event's callback (§4.9): device liveness
// updates, then per-PG mapping attempts in insertion order, then the
// clock tick, then scheduling the next iteration.
func (s *Simulation) runIteration() []*Event {
	var pending []*Event
	ctx := s.Context

	for _, id := range s.DeviceIDsSorted() {
		d, ok := s.Hierarchy.DeviceByID(id)
		if !ok {
			continue
		}
		init := s.InitWeight[id]
		if init == crush.OutOfClusterWeight {
			pending = append(pending, &Event{Kind: OSDFailed, Time: ctx.CurrentTime, OSD: id})
			continue
		}
		alive := ctx.Oracle.AliveAt(id, ctx.CurrentTime)
		currentlyDown := d.Weight == crush.OutOfClusterWeight
		switch {
		case currentlyDown && alive:
			s.Hierarchy.UpdateDeviceWeight(d, init)
			pending = append(pending, &Event{Kind: OSDRecovered, Time: ctx.CurrentTime, OSD: id})
		case !currentlyDown && !alive:
			s.Hierarchy.UpdateDeviceWeight(d, crush.OutOfClusterWeight)
			pending = append(pending, &Event{Kind: OSDFailed, Time: ctx.CurrentTime, OSD: id})
		}
	}

	for _, pg := range s.PGs {
		if pg.Phase == PhasePeering {
			continue
		}
		candidate, err := crush.Evaluate(int64(pg.ID), s.Hierarchy, s.Rule, s.PoolReplicas, s.Tunables)
		if err != nil {
			check.Assertf(false, "sim: pg %d: %v", pg.ID, err)
			continue
		}
		candidateMap := deviceIDs(candidate)
		if equalMaps(candidateMap, pg.CurrentMap()) {
			continue
		}

		peeringSuccess := pg.Peer(ctx, candidateMap)

		peeringID := ctx.NextPeeringID()
		pending = append(pending, &Event{
			Kind:           PeeringStart,
			Time:           ctx.CurrentTime,
			PeeringID:      peeringID,
			PG:             pg.ID,
			DevicesTouched: candidateMap,
			CandidateMap:   candidateMap,
		})

		resolveAt := ctx.CurrentTime + ctx.Timestep*ctx.TimestepsToPeer
		kind := PeeringFailure
		if peeringSuccess {
			kind = PeeringSuccess
		}
		pending = append(pending, &Event{Kind: kind, Time: resolveAt, PeeringID: peeringID, PG: pg.ID, CandidateMap: candidateMap})
	}

	ctx.CurrentTime += ctx.Timestep
	pending = append(pending, &Event{Kind: MainloopIteration, Time: ctx.CurrentTime})

	return pending
}

func deviceIDs(devices []*crush.Device) []int64 {
	out := make([]int64, len(devices))
	for i, d := range devices {
		out[i] = d.ID
	}
	return out
}
