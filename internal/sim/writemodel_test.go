package sim

import (
	"testing"

	"crushsim/internal/liveness"
)

func TestUpdelsertEmptyMapSendsFailure(t *testing.T) {
	oracle := liveness.NewOracle([]int64{1}, 0.0)
	ctx := NewContext(oracle)
	pg := NewPlacementGroup(0)

	events := Updelsert(pg, 7, OpInsert, ctx)
	if len(events) != 1 || events[0].Kind != SendFailure {
		t.Fatalf("events = %+v, want a single SendFailure", events)
	}
}

// TestUpdelsertHappyPath is §8 scenario 5: insert(obj=42) at
// current_time=0 with all devices alive and failure_proba=0.
func TestUpdelsertHappyPath(t *testing.T) {
	oracle := liveness.NewOracle([]int64{1, 2, 3}, 0.0)
	ctx := NewContext(oracle)
	ctx.CurrentTime = 0

	pg := NewPlacementGroup(0)
	pg.RecordIfNew([]int64{1, 2, 3})

	events := Updelsert(pg, 42, OpInsert, ctx)

	counts := map[EventKind]int{}
	for _, ev := range events {
		counts[ev.Kind]++
	}

	want := map[EventKind]int{
		PrimaryRecvSuccess:      1,
		ReplicaRecvSuccess:      2,
		ReplicaRecvAcknowledged: 2,
		PrimaryRecvAcknowledged: 1,
	}
	for kind, n := range want {
		if counts[kind] != n {
			t.Errorf("count[%v] = %d, want %d", kind, counts[kind], n)
		}
	}
	if counts[PrimaryRecvFailure] != 0 || counts[PrimaryReplicationFail] != 0 || counts[ReplicaRecvFailure] != 0 {
		t.Errorf("unexpected failure events in happy path: %+v", counts)
	}

	var recvTimes, ackTimes []int64
	for _, ev := range events {
		switch ev.Kind {
		case PrimaryRecvSuccess, ReplicaRecvSuccess:
			recvTimes = append(recvTimes, ev.Time)
		case ReplicaRecvAcknowledged, PrimaryRecvAcknowledged:
			ackTimes = append(ackTimes, ev.Time)
		}
	}
	for _, rt := range recvTimes {
		for _, at := range ackTimes {
			if at <= rt {
				t.Errorf("ack time %d does not strictly exceed recv time %d", at, rt)
			}
		}
	}
}

func TestUpdelsertPrimaryDeadFailsFast(t *testing.T) {
	oracle := liveness.NewOracle([]int64{1, 2, 3}, 1.0)
	ctx := NewContext(oracle)

	pg := NewPlacementGroup(0)
	pg.RecordIfNew([]int64{1, 2, 3})

	events := Updelsert(pg, 1, OpInsert, ctx)
	if len(events) != 1 || events[0].Kind != PrimaryRecvFailure {
		t.Fatalf("events = %+v, want a single PrimaryRecvFailure", events)
	}
}

// TestUpdelsertWriteEventLaws checks §8's write-event laws hold across
// many (obj, device-liveness) combinations, including mixed alive/dead
// replicas.
func TestUpdelsertWriteEventLaws(t *testing.T) {
	oracle := liveness.NewOracle([]int64{1, 2, 3}, 0.5)
	ctx := NewContext(oracle)

	for obj := int64(0); obj < 200; obj++ {
		pg := NewPlacementGroup(0)
		pg.RecordIfNew([]int64{1, 2, 3})
		ctx.CurrentTime = obj // vary time too, still deterministic

		events := Updelsert(pg, obj, OpInsert, ctx)
		counts := map[EventKind]int{}
		for _, ev := range events {
			counts[ev.Kind]++
		}

		if counts[PrimaryRecvFailure]+counts[PrimaryRecvSuccess] != 1 {
			t.Fatalf("obj %d: exactly one of PrimaryRecvFailure/PrimaryRecvSuccess required, got %+v", obj, counts)
		}
		if counts[PrimaryRecvSuccess] == 1 {
			if counts[PrimaryRecvAcknowledged]+counts[PrimaryReplicationFail] != 1 {
				t.Fatalf("obj %d: exactly one of ack/replication-fail required after success, got %+v", obj, counts)
			}
		}
		if counts[ReplicaRecvSuccess] != counts[ReplicaRecvAcknowledged] {
			t.Fatalf("obj %d: ReplicaRecvAcknowledged count %d != ReplicaRecvSuccess count %d", obj, counts[ReplicaRecvAcknowledged], counts[ReplicaRecvSuccess])
		}
	}
}
