package sim

import (
	"testing"

	"crushsim/internal/crush"
)

func TestReconcileDropsEventsForRemovedHost(t *testing.T) {
	h := buildSimHierarchy(t)
	rule := simRule()
	tunables := crush.Tunables{ChooseTotalTries: 8}

	s := NewSetup(h, rule, tunables, DefaultPoolReplicas, nil)
	s.Context.Oracle.SetDeathProba(0.0)
	s.Bootstrap()

	// Drive a few iterations so in-flight write/peering events exist
	// against devices under h1.
	for i := 0; i < 3; i++ {
		if _, _, ok := s.Step(); !ok {
			break
		}
	}
	for _, pg := range s.PGs {
		pg.RecordIfNew([]int64{1, 2, 3})
	}
	events := Updelsert(s.PGs[0], 99, OpInsert, s.Context)
	for _, ev := range events {
		s.Scheduler.Push(ev)
	}

	preTime := s.Context.CurrentTime

	newHierarchy := buildHierarchyWithoutHost1(t)
	next := Reconcile(s, newHierarchy, rule, tunables)

	if next.Context.CurrentTime != preTime {
		t.Errorf("CurrentTime = %d, want preserved %d", next.Context.CurrentTime, preTime)
	}

	mainloopCount := 0
	for _, ev := range next.Scheduler.Drain() {
		mainloopCount += boolToInt(ev.Kind == MainloopIteration)
		if ev.OSD == 1 || ev.OSD == 2 || ev.OSD == 3 {
			t.Errorf("event %v still references removed device %d", ev.Kind, ev.OSD)
		}
	}
	if mainloopCount != 1 {
		t.Errorf("mainloopCount = %d, want exactly 1 fresh iteration event", mainloopCount)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// buildHierarchyWithoutHost1 is buildSimHierarchy with h1 (and osd 1-3)
// deleted, per §8 scenario 6 ("edit the rule to delete host h1").
func buildHierarchyWithoutHost1(t *testing.T) *crush.Hierarchy {
	t.Helper()

	var osdID int64 = 4
	var hostID int64 = -3
	var hostChildren []crush.Child
	for _, name := range []string{"h2", "h3"} {
		host := &crush.Bucket{ID: hostID, Name: name, Type: crush.TypeHost, Alg: crush.AlgStraw2}
		hostID--
		for i := 0; i < 3; i++ {
			dev := &crush.Device{ID: osdID, Name: "osd-removed", Weight: crush.UnitWeight}
			host.Children = append(host.Children, crush.Child{Device: dev})
			osdID++
		}
		hostChildren = append(hostChildren, crush.Child{Bucket: host})
	}
	root := &crush.Bucket{ID: -1, Name: "root", Type: crush.TypeRoot, Alg: crush.AlgStraw2, Children: hostChildren}
	h, err := crush.NewHierarchy(root)
	if err != nil {
		t.Fatalf("NewHierarchy: %v", err)
	}
	return h
}

func TestReconcilePreservesPGHistory(t *testing.T) {
	h := buildSimHierarchy(t)
	rule := simRule()
	tunables := crush.Tunables{ChooseTotalTries: 8}

	s := NewSetup(h, rule, tunables, DefaultPoolReplicas, nil)
	s.PGs[0].RecordIfNew([]int64{1, 2, 3})
	s.PGs[0].AppendLog(1, OpInsert, 7)

	next := Reconcile(s, h, rule, tunables)
	if len(next.PGs[0].Maps) != 1 {
		t.Fatalf("PG history not preserved: Maps = %+v", next.PGs[0].Maps)
	}
	if len(next.PGs[0].Log[1]) != 1 {
		t.Fatalf("PG log not preserved: Log = %+v", next.PGs[0].Log)
	}
}

func TestReconcileIdempotentOnSameHierarchy(t *testing.T) {
	h := buildSimHierarchy(t)
	rule := simRule()
	tunables := crush.Tunables{ChooseTotalTries: 8}

	s := NewSetup(h, rule, tunables, DefaultPoolReplicas, nil)
	s.Context.Oracle.SetDeathProba(0.0)
	s.Bootstrap()
	for i := 0; i < 2; i++ {
		s.Step()
	}

	before := s.Scheduler.Drain()
	for _, ev := range before {
		s.Scheduler.Push(ev)
	}

	next := Reconcile(s, h, rule, tunables)
	after := next.Scheduler.Drain()

	if len(after) != len(before) {
		t.Fatalf("len(after) = %d, len(before) = %d, want equal (modulo the single iteration event)", len(after), len(before))
	}

	beforeByKind := map[EventKind]int{}
	afterByKind := map[EventKind]int{}
	for _, ev := range before {
		beforeByKind[ev.Kind]++
	}
	for _, ev := range after {
		afterByKind[ev.Kind]++
	}
	for kind, n := range beforeByKind {
		if kind == MainloopIteration {
			continue
		}
		if afterByKind[kind] != n {
			t.Errorf("kind %v: before=%d after=%d", kind, n, afterByKind[kind])
		}
	}
}
