package schedule

import (
	"errors"
	"testing"
	"time"
)

// 2025-06-16 is a Monday.
var monday = time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)

func at(day time.Time, hour, min int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, min, 0, 0, day.Location())
}

func TestProposeSlotsSkipsBusyTime(t *testing.T) {
	req := Request{
		DurationMinutes: 30,
		StartDate:       "2025-06-16",
		EndDate:         "2025-06-16",
		Busy: []Interval{
			{Start: at(monday, 9, 0), End: at(monday, 10, 0)},
		},
	}

	slots, err := ProposeSlots(req)
	if err != nil {
		t.Fatalf("ProposeSlots failed: %v", err)
	}
	if len(slots) == 0 {
		t.Fatal("expected slots")
	}

	// The working day starts at 09:00 but the first hour is busy; the first
	// free slot starts exactly when the meeting ends.
	if !slots[0].Start.Equal(at(monday, 10, 0)) {
		t.Errorf("first slot starts %v, want 10:00", slots[0].Start)
	}
	if !slots[0].End.Equal(at(monday, 10, 30)) {
		t.Errorf("first slot ends %v, want 10:30", slots[0].End)
	}

	for _, slot := range slots {
		candidate := Interval{Start: slot.Start, End: slot.End}
		for _, busy := range req.Busy {
			if candidate.Overlaps(busy) {
				t.Errorf("slot %v-%v overlaps busy %v-%v", slot.Start, slot.End, busy.Start, busy.End)
			}
		}
	}
}

func TestProposeSlotsAbuttingBusyIsFree(t *testing.T) {
	// Busy 10:00-10:30. A slot ending exactly at 10:00 and one starting
	// exactly at 10:30 both survive; intervals are half-open.
	req := Request{
		DurationMinutes: 30,
		StartDate:       "2025-06-16",
		EndDate:         "2025-06-16",
		Busy: []Interval{
			{Start: at(monday, 10, 0), End: at(monday, 10, 30)},
		},
	}

	slots, err := ProposeSlots(req)
	if err != nil {
		t.Fatalf("ProposeSlots failed: %v", err)
	}

	found930 := false
	found1030 := false
	for _, slot := range slots {
		if slot.Start.Equal(at(monday, 9, 30)) {
			found930 = true
		}
		if slot.Start.Equal(at(monday, 10, 30)) {
			found1030 = true
		}
		if slot.Start.Equal(at(monday, 10, 0)) {
			t.Error("slot overlapping busy time proposed")
		}
	}
	if !found930 {
		t.Error("slot ending exactly at busy start should be kept")
	}
	if !found1030 {
		t.Error("slot starting exactly at busy end should be kept")
	}
}

func TestProposeSlotsRespectsWorkingWindow(t *testing.T) {
	req := Request{
		DurationMinutes: 60,
		StartDate:       "2025-06-16",
		EndDate:         "2025-06-16",
	}

	slots, err := ProposeSlots(req)
	if err != nil {
		t.Fatalf("ProposeSlots failed: %v", err)
	}

	for _, slot := range slots {
		if slot.Start.Before(at(monday, 9, 0)) {
			t.Errorf("slot %v starts before working hours", slot.Start)
		}
		if slot.End.After(at(monday, 17, 0)) {
			t.Errorf("slot ending %v spills past the working window", slot.End)
		}
	}
}

func TestProposeSlotsSkipsNonWorkingDays(t *testing.T) {
	// Saturday and Sunday of the same week.
	req := Request{
		DurationMinutes: 30,
		StartDate:       "2025-06-21",
		EndDate:         "2025-06-22",
	}

	slots, err := ProposeSlots(req)
	if err != nil {
		t.Fatalf("ProposeSlots failed: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("got %d weekend slots, want none", len(slots))
	}
}

func TestProposeSlotsCustomWorkingHours(t *testing.T) {
	req := Request{
		DurationMinutes: 30,
		StartDate:       "2025-06-21", // Saturday
		EndDate:         "2025-06-21",
		WorkingHours: WorkingHours{
			time.Saturday: {10, 12},
		},
	}

	slots, err := ProposeSlots(req)
	if err != nil {
		t.Fatalf("ProposeSlots failed: %v", err)
	}
	if len(slots) != 4 {
		t.Fatalf("got %d slots, want 4 half-hour slots in a two-hour window", len(slots))
	}
	if !slots[0].Start.Equal(time.Date(2025, 6, 21, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("first slot = %v", slots[0].Start)
	}
}

func TestProposeSlotsCapAndOrder(t *testing.T) {
	req := Request{
		DurationMinutes: 30,
		StartDate:       "2025-06-16",
		EndDate:         "2025-06-20",
	}

	slots, err := ProposeSlots(req)
	if err != nil {
		t.Fatalf("ProposeSlots failed: %v", err)
	}
	if len(slots) != DefaultMaxSlots {
		t.Errorf("got %d slots, want default cap %d", len(slots), DefaultMaxSlots)
	}
	for i := 1; i < len(slots); i++ {
		if !slots[i-1].Start.Before(slots[i].Start) {
			t.Errorf("slots out of order at %d: %v then %v", i, slots[i-1].Start, slots[i].Start)
		}
	}

	t.Run("custom cap", func(t *testing.T) {
		req.MaxSlots = 3
		slots, err := ProposeSlots(req)
		if err != nil {
			t.Fatalf("ProposeSlots failed: %v", err)
		}
		if len(slots) != 3 {
			t.Errorf("got %d slots, want 3", len(slots))
		}
	})
}

func TestProposeSlotsLongerDuration(t *testing.T) {
	// A 2-hour meeting in an 09:00-17:00 day with busy 11:00-15:00: slots
	// can only start 09:00 and 15:00.
	req := Request{
		DurationMinutes: 120,
		StartDate:       "2025-06-16",
		EndDate:         "2025-06-16",
		Busy: []Interval{
			{Start: at(monday, 11, 0), End: at(monday, 15, 0)},
		},
	}

	slots, err := ProposeSlots(req)
	if err != nil {
		t.Fatalf("ProposeSlots failed: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("got %d slots, want 2", len(slots))
	}
	if !slots[0].Start.Equal(at(monday, 9, 0)) || !slots[1].Start.Equal(at(monday, 15, 0)) {
		t.Errorf("slots = %v and %v", slots[0].Start, slots[1].Start)
	}
}

func TestProposeSlotsDeterministic(t *testing.T) {
	req := Request{
		DurationMinutes: 45,
		StartDate:       "2025-06-16",
		EndDate:         "2025-06-18",
		Busy: []Interval{
			{Start: at(monday, 9, 0), End: at(monday, 12, 0)},
		},
	}

	first, err := ProposeSlots(req)
	if err != nil {
		t.Fatalf("ProposeSlots failed: %v", err)
	}
	second, err := ProposeSlots(req)
	if err != nil {
		t.Fatalf("ProposeSlots failed: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].Start.Equal(second[i].Start) || !first[i].End.Equal(second[i].End) {
			t.Errorf("slot %d differs between identical calls", i)
		}
	}
}

func TestProposeSlotsTimezone(t *testing.T) {
	req := Request{
		DurationMinutes: 30,
		StartDate:       "2025-06-16",
		EndDate:         "2025-06-16",
		Timezone:        "America/New_York",
	}

	slots, err := ProposeSlots(req)
	if err != nil {
		t.Fatalf("ProposeSlots failed: %v", err)
	}
	if len(slots) == 0 {
		t.Fatal("expected slots")
	}
	if slots[0].Timezone != "America/New_York" {
		t.Errorf("Timezone = %q", slots[0].Timezone)
	}
	if slots[0].Start.Hour() != 9 {
		t.Errorf("first slot local hour = %d, want 9", slots[0].Start.Hour())
	}
}

func TestProposeSlotsValidation(t *testing.T) {
	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{
			name:  "zero duration",
			req:   Request{StartDate: "2025-06-16", EndDate: "2025-06-16"},
			field: "duration_minutes",
		},
		{
			name:  "negative duration",
			req:   Request{DurationMinutes: -15, StartDate: "2025-06-16", EndDate: "2025-06-16"},
			field: "duration_minutes",
		},
		{
			name:  "bad start date",
			req:   Request{DurationMinutes: 30, StartDate: "June 16", EndDate: "2025-06-16"},
			field: "start_date",
		},
		{
			name:  "end before start",
			req:   Request{DurationMinutes: 30, StartDate: "2025-06-17", EndDate: "2025-06-16"},
			field: "end_date",
		},
		{
			name:  "unknown timezone",
			req:   Request{DurationMinutes: 30, StartDate: "2025-06-16", EndDate: "2025-06-16", Timezone: "Mars/Olympus"},
			field: "timezone",
		},
		{
			name: "inverted working window",
			req: Request{
				DurationMinutes: 30, StartDate: "2025-06-16", EndDate: "2025-06-16",
				WorkingHours: WorkingHours{time.Monday: {17, 9}},
			},
			field: "working_hours",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ProposeSlots(tt.req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestIntervalOverlaps(t *testing.T) {
	base := Interval{Start: at(monday, 10, 0), End: at(monday, 11, 0)}

	tests := []struct {
		name  string
		other Interval
		want  bool
	}{
		{"identical", base, true},
		{"contained", Interval{Start: at(monday, 10, 15), End: at(monday, 10, 45)}, true},
		{"straddles start", Interval{Start: at(monday, 9, 30), End: at(monday, 10, 30)}, true},
		{"straddles end", Interval{Start: at(monday, 10, 30), End: at(monday, 11, 30)}, true},
		{"abuts before", Interval{Start: at(monday, 9, 0), End: at(monday, 10, 0)}, false},
		{"abuts after", Interval{Start: at(monday, 11, 0), End: at(monday, 12, 0)}, false},
		{"disjoint", Interval{Start: at(monday, 13, 0), End: at(monday, 14, 0)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Overlaps(tt.other); got != tt.want {
				t.Errorf("Overlaps = %v, want %v", got, tt.want)
			}
		})
	}
}
