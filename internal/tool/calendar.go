package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CalendarEvent is one scheduled entry.
type CalendarEvent struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Attendees []string  `json:"attendees,omitempty"`
}

// CalendarStore holds events for the calendar tool. The in-process store
// stands in for an external calendar backend.
type CalendarStore struct {
	mu     sync.RWMutex
	events []CalendarEvent
}

// NewCalendarStore creates an empty store.
func NewCalendarStore() *CalendarStore { return &CalendarStore{} }

// Add appends an event.
func (s *CalendarStore) Add(ev CalendarEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// OnDay returns the events overlapping the given calendar day, sorted by
// start time.
func (s *CalendarStore) OnDay(day time.Time) []CalendarEvent {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []CalendarEvent
	for _, ev := range s.events {
		if ev.Start.Before(dayEnd) && ev.End.After(dayStart) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// Calendar checks availability, creates events, and lists a day's events.
type Calendar struct {
	store  *CalendarStore
	now    func() time.Time
	logger *zap.Logger
}

// NewCalendar creates the calendar tool over a store.
func NewCalendar(store *CalendarStore, logger *zap.Logger) *Calendar {
	return &Calendar{store: store, now: time.Now, logger: logger}
}

func (c *Calendar) Name() string { return "calendar" }

func (c *Calendar) Description() string {
	return "Calendar actions: check_availability, create_event, or list_events for a date (YYYY-MM-DD)"
}

func (c *Calendar) Validate(params map[string]any) error {
	switch action := cfgString(params, "action"); action {
	case "check_availability", "list_events":
	case "create_event":
		if cfgString(params, "title") == "" {
			return fmt.Errorf("title is required for create_event")
		}
		if cfgString(params, "time") == "" {
			return fmt.Errorf("time is required for create_event")
		}
	case "":
		return fmt.Errorf("action is required")
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	return nil
}

func (c *Calendar) Execute(_ context.Context, params, config map[string]any) (any, error) {
	loc := time.UTC
	if tz := cfgString(config, "timezone"); tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("unknown timezone %q", tz)
		}
		loc = parsed
	}

	day, err := c.resolveDay(cfgString(params, "date"), loc)
	if err != nil {
		return nil, err
	}

	switch cfgString(params, "action") {
	case "list_events":
		return map[string]any{
			"date":   day.Format("2006-01-02"),
			"events": c.store.OnDay(day),
		}, nil

	case "check_availability":
		slots := c.freeSlots(day, config)
		return map[string]any{
			"date":       day.Format("2006-01-02"),
			"free_slots": slots,
		}, nil

	case "create_event":
		start, err := time.ParseInLocation("2006-01-02 15:04", day.Format("2006-01-02")+" "+cfgString(params, "time"), loc)
		if err != nil {
			return nil, fmt.Errorf("invalid time %q, expected HH:MM", cfgString(params, "time"))
		}
		duration := time.Duration(cfgInt(params, "duration_min", 30)) * time.Minute
		ev := CalendarEvent{
			ID:        uuid.New().String(),
			Title:     cfgString(params, "title"),
			Start:     start,
			End:       start.Add(duration),
			Attendees: cfgStringSlice(params, "attendees"),
		}

		for _, existing := range c.store.OnDay(day) {
			if ev.Start.Before(existing.End) && ev.End.After(existing.Start) {
				return nil, fmt.Errorf("time conflicts with %q (%s-%s)",
					existing.Title,
					existing.Start.Format("15:04"),
					existing.End.Format("15:04"))
			}
		}

		c.store.Add(ev)
		c.logger.Info("calendar event created",
			zap.String("id", ev.ID), zap.Time("start", ev.Start))
		return map[string]any{"status": "created", "event": ev}, nil
	}
	return nil, fmt.Errorf("unknown action")
}

func (c *Calendar) resolveDay(date string, loc *time.Location) (time.Time, error) {
	if date == "" {
		now := c.now().In(loc)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc), nil
	}
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}
	return day, nil
}

// freeSlots walks the working hours in slot-sized steps and keeps the
// slots that overlap no existing event.
func (c *Calendar) freeSlots(day time.Time, config map[string]any) []string {
	startHour := cfgInt(config, "working_hours_start", 9)
	endHour := cfgInt(config, "working_hours_end", 17)
	slotMin := cfgInt(config, "slot_minutes", 30)
	if slotMin <= 0 {
		slotMin = 30
	}

	events := c.store.OnDay(day)
	var slots []string
	slot := time.Duration(slotMin) * time.Minute
	for t := day.Add(time.Duration(startHour) * time.Hour); t.Add(slot).Before(day.Add(time.Duration(endHour)*time.Hour + time.Nanosecond)); t = t.Add(slot) {
		slotEnd := t.Add(slot)
		busy := false
		for _, ev := range events {
			if t.Before(ev.End) && slotEnd.After(ev.Start) {
				busy = true
				break
			}
		}
		if !busy {
			slots = append(slots, t.Format("15:04"))
		}
	}
	return slots
}
