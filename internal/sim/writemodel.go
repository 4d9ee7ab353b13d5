package sim

import "crushsim/internal/crush"

// overloadCheck is the deterministic probabilistic test §4.8 shares with
// is_out: true (the write proceeds) unless the low 16 bits of the hash of
// args fall under the scaled probability threshold.
func overloadCheck(p float64, args ...int64) bool {
	u := crush.Low16(crush.Hash(args...))
	return uint32(u) >= crush.Round65535(p)
}

// Updelsert is C7's updelsert(pg, obj, op): the write cost model. It
// returns the events the write generates; the caller is responsible for
// pushing them onto a Scheduler. No event here is applied immediately —
// PG log mutations happen when the scheduler later pops the
// PrimaryRecvSuccess/ReplicaRecvSuccess event (see Simulation.processEvent), so a
// write's visible side effects occur at their causal time, not at
// submission time.
func Updelsert(pg *PlacementGroup, obj int64, op Op, ctx *Context) []*Event {
	m := pg.CurrentMap()
	if len(m) == 0 {
		return []*Event{{
			Kind:   SendFailure,
			Time:   ctx.CurrentTime,
			Obj:    obj,
			Reason: "empty map",
		}}
	}

	primary := m[0]
	tp := ctx.CurrentTime + ctx.userConnSpeed(primary)

	if !ctx.Oracle.AliveAt(primary, tp) || !overloadCheck(ctx.failureProba(primary), ctx.CurrentTime, obj, primary) {
		return []*Event{{
			Kind: PrimaryRecvFailure,
			Time: tp,
			Obj:  obj,
			PG:   pg.ID,
			OSD:  primary,
		}}
	}

	opID := ctx.NextOpID()
	events := []*Event{{
		Kind:    PrimaryRecvSuccess,
		Time:    tp,
		OpID:    opID,
		Obj:     obj,
		PG:      pg.ID,
		OSD:     primary,
		Map:     m,
		WriteOp: op,
	}}

	var maxTime int64
	anyFailed := false
	for _, d := range m[1:] {
		td := tp + ctx.connSpeed(primary, d)
		if ctx.Oracle.AliveAt(d, td) && overloadCheck(ctx.failureProba(d), ctx.CurrentTime, obj, d) {
			events = append(events,
				&Event{Kind: ReplicaRecvSuccess, Time: td, OpID: opID, Obj: obj, PG: pg.ID, OSD: d, WriteOp: op},
				&Event{Kind: ReplicaRecvAcknowledged, Time: td + 1, OpID: opID, Obj: obj, PG: pg.ID, OSD: d},
			)
			if td+1 > maxTime {
				maxTime = td + 1
			}
		} else {
			events = append(events, &Event{Kind: ReplicaRecvFailure, Time: td, OpID: opID, Obj: obj, PG: pg.ID, OSD: d})
			anyFailed = true
			if td > maxTime {
				maxTime = td
			}
		}
	}

	if anyFailed {
		events = append(events, &Event{Kind: PrimaryReplicationFail, Time: maxTime + 1, OpID: opID, Obj: obj, PG: pg.ID, OSD: primary})
	} else {
		events = append(events, &Event{Kind: PrimaryRecvAcknowledged, Time: maxTime + 1, OpID: opID, Obj: obj, PG: pg.ID, OSD: primary})
	}

	return events
}
