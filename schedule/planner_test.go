package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmaas/deskagent/audit"
)

type fakeCalendar struct {
	mu     sync.Mutex
	busy   []Interval
	events []Event

	freeBusyErr error
	insertErr   error
}

func (f *fakeCalendar) FreeBusy(_ context.Context, _, _ time.Time) ([]Interval, error) {
	if f.freeBusyErr != nil {
		return nil, f.freeBusyErr
	}
	return f.busy, nil
}

func (f *fakeCalendar) InsertEvent(_ context.Context, event Event) (string, error) {
	if f.insertErr != nil {
		return "", f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return "evt-1", nil
}

type captureSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (c *captureSink) Record(event audit.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func TestPlannerProposeUsesCalendarBusyTime(t *testing.T) {
	cal := &fakeCalendar{busy: []Interval{
		{Start: at(monday, 9, 0), End: at(monday, 12, 0)},
	}}
	sink := &captureSink{}
	planner := &Planner{Calendar: cal, Sink: sink, UserID: "u-1"}

	slots, err := planner.Propose(context.Background(), Request{
		DurationMinutes: 30,
		StartDate:       "2025-06-16",
		EndDate:         "2025-06-16",
	})
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	if len(slots) == 0 {
		t.Fatal("expected slots")
	}
	if !slots[0].Start.Equal(at(monday, 12, 0)) {
		t.Errorf("first slot = %v, want 12:00 after the busy morning", slots[0].Start)
	}

	if len(sink.events) != 1 || sink.events[0].Action != "time_slots_proposed" {
		t.Fatalf("audit events = %+v", sink.events)
	}
	if sink.events[0].Meta["busy_periods_count"] != 1 {
		t.Errorf("meta = %v", sink.events[0].Meta)
	}
}

func TestPlannerProposeCalendarFailure(t *testing.T) {
	cal := &fakeCalendar{freeBusyErr: errors.New("calendar unavailable")}
	sink := &captureSink{}
	planner := &Planner{Calendar: cal, Sink: sink}

	_, err := planner.Propose(context.Background(), Request{
		DurationMinutes: 30,
		StartDate:       "2025-06-16",
		EndDate:         "2025-06-16",
	})
	if err == nil {
		t.Fatal("expected calendar error")
	}
	if len(sink.events) != 1 || sink.events[0].Status != audit.StatusFailure {
		t.Errorf("audit events = %+v, want failure record", sink.events)
	}
}

func TestPlannerSchedule(t *testing.T) {
	cal := &fakeCalendar{}
	sink := &captureSink{}
	planner := &Planner{Calendar: cal, Sink: sink}

	id, err := planner.Schedule(context.Background(), Event{
		Title: "Follow-up sync",
		Start: at(monday, 10, 0),
		End:   at(monday, 10, 30),
	})
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if id != "evt-1" || len(cal.events) != 1 {
		t.Errorf("id = %q, events = %d", id, len(cal.events))
	}
	if len(sink.events) != 1 || sink.events[0].ResourceID != "evt-1" {
		t.Errorf("audit events = %+v", sink.events)
	}
}
