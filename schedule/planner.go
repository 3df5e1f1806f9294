package schedule

import (
	"context"
	"time"

	"github.com/dmaas/deskagent/audit"
)

// Event is a calendar event to insert.
type Event struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Timezone    string    `json:"timezone,omitempty"`
	Attendees   []string  `json:"attendees,omitempty"`
	Location    string    `json:"location,omitempty"`
}

// CalendarClient is the calendar surface the planner needs. Implementations
// wrap a real calendar API; tests use in-memory fakes.
type CalendarClient interface {
	// FreeBusy returns the busy intervals between from and to.
	FreeBusy(ctx context.Context, from, to time.Time) ([]Interval, error)

	// InsertEvent creates the event and returns its id.
	InsertEvent(ctx context.Context, event Event) (string, error)
}

// Planner combines calendar I/O with the pure slot engine.
type Planner struct {
	Calendar CalendarClient
	Sink     audit.Sink

	// UserID is attached to audit events.
	UserID string
}

// Propose fetches the calendar's busy time for the request window and
// returns the free slots. The request's Busy field is ignored; the calendar
// is the source of truth here.
func (p *Planner) Propose(ctx context.Context, req Request) ([]Slot, error) {
	loc := time.UTC
	if req.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(req.Timezone)
		if err != nil {
			return nil, &ValidationError{Field: "timezone", Message: "unknown zone " + req.Timezone}
		}
	}

	from, err := time.ParseInLocation(dateLayout, req.StartDate, loc)
	if err != nil {
		return nil, &ValidationError{Field: "start_date", Message: "want YYYY-MM-DD"}
	}
	to, err := time.ParseInLocation(dateLayout, req.EndDate, loc)
	if err != nil {
		return nil, &ValidationError{Field: "end_date", Message: "want YYYY-MM-DD"}
	}
	to = to.AddDate(0, 0, 1) // inclusive end date

	busy, err := p.Calendar.FreeBusy(ctx, from, to)
	if err != nil {
		audit.Record(p.Sink, audit.Event{
			Action:   "time_slots_proposed",
			Resource: "calendar",
			UserID:   p.UserID,
			Status:   audit.StatusFailure,
			Meta:     map[string]interface{}{"error": err.Error()},
		})
		return nil, err
	}

	req.Busy = busy
	slots, err := ProposeSlots(req)
	if err != nil {
		return nil, err
	}

	audit.Record(p.Sink, audit.Event{
		Action:   "time_slots_proposed",
		Resource: "calendar",
		UserID:   p.UserID,
		Status:   audit.StatusSuccess,
		Meta: map[string]interface{}{
			"duration_minutes":      req.DurationMinutes,
			"start_date":            req.StartDate,
			"end_date":              req.EndDate,
			"busy_periods_count":    len(busy),
			"available_slots_count": len(slots),
		},
	})
	return slots, nil
}

// Schedule inserts the event and returns its id.
func (p *Planner) Schedule(ctx context.Context, event Event) (string, error) {
	id, err := p.Calendar.InsertEvent(ctx, event)
	if err != nil {
		audit.Record(p.Sink, audit.Event{
			Action:   "calendar_event_created",
			Resource: "calendar_event",
			UserID:   p.UserID,
			Status:   audit.StatusFailure,
			Meta:     map[string]interface{}{"error": err.Error(), "title": event.Title},
		})
		return "", err
	}

	audit.Record(p.Sink, audit.Event{
		Action:     "calendar_event_created",
		Resource:   "calendar_event",
		ResourceID: id,
		UserID:     p.UserID,
		Status:     audit.StatusSuccess,
		Meta:       map[string]interface{}{"title": event.Title},
	})
	return id, nil
}
