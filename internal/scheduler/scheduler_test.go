package scheduler

import "testing"

func TestEventsFireInTimeOrder(t *testing.T) {
	s := New()
	var order []int
	s.ScheduleAt(300, func(uint64) { order = append(order, 3) })
	s.ScheduleAt(100, func(uint64) { order = append(order, 1) })
	s.ScheduleAt(200, func(uint64) { order = append(order, 2) })

	steps := 0
	s.Run(func(uint64) {
		steps++
		if steps > 3 {
			s.Stop()
		}
	})

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("events fired out of order: %v", order)
	}
}

func TestPeriodicEventReschedules(t *testing.T) {
	s := New()
	fires := 0
	e := s.ScheduleEvery(100, func(uint64) {
		fires++
		if fires >= 3 {
			s.Stop()
		}
	})
	defer s.Cancel(e)

	s.Run(func(uint64) {})

	if fires != 3 {
		t.Fatalf("want 3 periodic fires, got %d", fires)
	}
}

func TestCancelRemovesPendingEvent(t *testing.T) {
	s := New()
	fired := false
	e := s.ScheduleAt(1000, func(uint64) { fired = true })
	s.Cancel(e)

	s.ScheduleAt(2000, func(uint64) { s.Stop() })
	s.Run(func(uint64) {})

	if fired {
		t.Fatalf("canceled event fired anyway")
	}
}

func TestHandoffRenderContextDeliversToChannel(t *testing.T) {
	s := New()
	s.HandoffRenderContext("frame-1")
	select {
	case v := <-s.RenderContexts():
		if v != "frame-1" {
			t.Fatalf("want frame-1, got %v", v)
		}
	default:
		t.Fatalf("expected a buffered render context")
	}
}
