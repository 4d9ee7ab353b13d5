package sim

import "testing"

func TestSchedulerOrdersByTime(t *testing.T) {
	s := NewScheduler()
	s.Push(&Event{Kind: SendFailure, Time: 30})
	s.Push(&Event{Kind: SendFailure, Time: 10})
	s.Push(&Event{Kind: SendFailure, Time: 20})

	var times []int64
	for {
		now, cohort, ok := s.PopCohort()
		if !ok {
			break
		}
		for range cohort {
			times = append(times, now)
		}
	}
	want := []int64{10, 20, 30}
	if len(times) != len(want) {
		t.Fatalf("got %v, want %v", times, want)
	}
	for i := range want {
		if times[i] != want[i] {
			t.Errorf("times[%d] = %d, want %d", i, times[i], want[i])
		}
	}
}

func TestPeeringSuccessPulledFirst(t *testing.T) {
	s := NewScheduler()
	s.Push(&Event{Kind: SendFailure, Time: 5})
	s.Push(&Event{Kind: OSDFailed, Time: 5})
	s.Push(&Event{Kind: PeeringSuccess, Time: 5, PeeringID: 1})

	_, cohort, ok := s.PopCohort()
	if !ok {
		t.Fatal("expected a cohort")
	}
	if len(cohort) != 3 {
		t.Fatalf("len(cohort) = %d, want 3", len(cohort))
	}
	if cohort[0].Kind != PeeringSuccess {
		t.Errorf("cohort[0].Kind = %v, want PeeringSuccess", cohort[0].Kind)
	}
}

func TestPopCohortEmptyQueue(t *testing.T) {
	s := NewScheduler()
	now, cohort, ok := s.PopCohort()
	if ok {
		t.Fatal("expected ok=false on empty queue")
	}
	if now != -1 || cohort != nil {
		t.Errorf("now=%d cohort=%v, want -1, nil", now, cohort)
	}
}
