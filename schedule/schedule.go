// Package schedule proposes free meeting slots against busy calendar time.
//
// The slot engine is pure: given a request and the busy intervals, it
// deterministically produces candidate slots. Calendar I/O lives in Planner,
// which fetches free/busy data and feeds it here.
package schedule

import (
	"fmt"
	"time"
)

// DefaultMaxSlots caps proposals when the request does not set its own cap.
const DefaultMaxSlots = 10

// DefaultStep is the increment between candidate slot starts.
const DefaultStep = 30 * time.Minute

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether two half-open intervals intersect. Abutting
// intervals (one ends exactly when the other starts) do not overlap.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && iv.End.After(other.Start)
}

// Slot is a proposed meeting time.
type Slot struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Timezone string    `json:"timezone"`
}

// Window is a daily working window in whole hours, e.g. {9, 17} for
// 09:00 to 17:00.
type Window struct {
	Start int
	End   int
}

// WorkingHours maps weekdays to their working window. Days absent from the
// map yield no slots.
type WorkingHours map[time.Weekday]Window

// DefaultWorkingHours is 09:00 to 17:00, Monday through Friday.
func DefaultWorkingHours() WorkingHours {
	return WorkingHours{
		time.Monday:    {9, 17},
		time.Tuesday:   {9, 17},
		time.Wednesday: {9, 17},
		time.Thursday:  {9, 17},
		time.Friday:    {9, 17},
	}
}

// Request describes the slots being asked for.
type Request struct {
	// DurationMinutes is the meeting length. Required, positive.
	DurationMinutes int

	// StartDate and EndDate bound the search, inclusive, as "2006-01-02".
	StartDate string
	EndDate   string

	// Timezone is an IANA zone name. Empty means UTC.
	Timezone string

	// WorkingHours restricts candidate slots. Nil means DefaultWorkingHours.
	WorkingHours WorkingHours

	// Busy is the occupied calendar time to avoid.
	Busy []Interval

	// MaxSlots caps the proposals. Zero means DefaultMaxSlots.
	MaxSlots int

	// Step is the increment between candidate starts. Zero means DefaultStep.
	Step time.Duration
}

// ValidationError reports an invalid Request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Message
}

const dateLayout = "2006-01-02"

// ProposeSlots generates free slots for the request.
//
// Candidates start every Step within each day's working window; a candidate
// is kept when it fits entirely inside the window and overlaps no busy
// interval. Results are in ascending start order, capped at MaxSlots. The
// function is pure: equal inputs always produce equal output.
func ProposeSlots(req Request) ([]Slot, error) {
	if req.DurationMinutes <= 0 {
		return nil, &ValidationError{Field: "duration_minutes", Message: "must be positive"}
	}

	loc := time.UTC
	tzName := "UTC"
	if req.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(req.Timezone)
		if err != nil {
			return nil, &ValidationError{Field: "timezone", Message: fmt.Sprintf("unknown zone %q", req.Timezone)}
		}
		tzName = req.Timezone
	}

	startDay, err := time.ParseInLocation(dateLayout, req.StartDate, loc)
	if err != nil {
		return nil, &ValidationError{Field: "start_date", Message: "want YYYY-MM-DD"}
	}
	endDay, err := time.ParseInLocation(dateLayout, req.EndDate, loc)
	if err != nil {
		return nil, &ValidationError{Field: "end_date", Message: "want YYYY-MM-DD"}
	}
	if endDay.Before(startDay) {
		return nil, &ValidationError{Field: "end_date", Message: "before start_date"}
	}

	hours := req.WorkingHours
	if hours == nil {
		hours = DefaultWorkingHours()
	}
	for day, window := range hours {
		if window.Start < 0 || window.End > 24 || window.Start >= window.End {
			return nil, &ValidationError{
				Field:   "working_hours",
				Message: fmt.Sprintf("%s window [%d, %d) is not a valid hour range", day, window.Start, window.End),
			}
		}
	}

	maxSlots := req.MaxSlots
	if maxSlots <= 0 {
		maxSlots = DefaultMaxSlots
	}
	step := req.Step
	if step <= 0 {
		step = DefaultStep
	}
	duration := time.Duration(req.DurationMinutes) * time.Minute

	var slots []Slot
	for day := startDay; !day.After(endDay); day = day.AddDate(0, 0, 1) {
		window, working := hours[day.Weekday()]
		if !working {
			continue
		}

		dayStart := time.Date(day.Year(), day.Month(), day.Day(), window.Start, 0, 0, 0, loc)
		dayEnd := time.Date(day.Year(), day.Month(), day.Day(), window.End, 0, 0, 0, loc)

		for slotStart := dayStart; slotStart.Before(dayEnd); slotStart = slotStart.Add(step) {
			slotEnd := slotStart.Add(duration)
			if slotEnd.After(dayEnd) {
				break
			}

			candidate := Interval{Start: slotStart, End: slotEnd}
			free := true
			for _, busy := range req.Busy {
				if candidate.Overlaps(busy) {
					free = false
					break
				}
			}
			if !free {
				continue
			}

			slots = append(slots, Slot{Start: slotStart, End: slotEnd, Timezone: tzName})
			if len(slots) == maxSlots {
				return slots, nil
			}
		}
	}

	return slots, nil
}
