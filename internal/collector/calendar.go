package collector

import (
	"context"
	"log"
	"time"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/mohammad-safakhou/daybrief/internal/auth"
)

// CalendarEvent is one expanded event instance occurring today.
type CalendarEvent struct {
	Title    string `json:"title"`
	Start    string `json:"start"`
	Location string `json:"location,omitempty"`
}

// CalendarCollector reads today's agenda from the primary calendar.
// Recurring series are expanded into single instances server-side.
type CalendarCollector struct {
	broker  *auth.Broker
	timeout time.Duration
	logger  *log.Logger
	now     func() time.Time
	opts    []option.ClientOption
}

func NewCalendarCollector(broker *auth.Broker, timeout time.Duration, logger *log.Logger, opts ...option.ClientOption) *CalendarCollector {
	return &CalendarCollector{broker: broker, timeout: timeout, logger: logger, now: time.Now, opts: opts}
}

func (c *CalendarCollector) Name() string { return NameCalendar }

func (c *CalendarCollector) Fetch(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	tok, err := c.broker.Acquire(ctx)
	if err != nil {
		return Failuref(NameCalendar, "auth: %v", err)
	}

	svc, err := calendar.NewService(ctx, c.clientOptions(tok)...)
	if err != nil {
		return Failuref(NameCalendar, "creating calendar service: %v", err)
	}

	now := c.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, now.Location())

	events, err := svc.Events.List("primary").
		TimeMin(dayStart.Format(time.RFC3339)).
		TimeMax(dayEnd.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return Failuref(NameCalendar, "listing events: %v", err)
	}
	if len(events.Items) == 0 {
		return Empty(NameCalendar, "no events")
	}

	agenda := make([]CalendarEvent, 0, len(events.Items))
	for _, ev := range events.Items {
		item := CalendarEvent{
			Title:    ev.Summary,
			Location: ev.Location,
		}
		if item.Title == "" {
			item.Title = "(untitled)"
		}
		if ev.Start != nil {
			if ev.Start.DateTime != "" {
				item.Start = ev.Start.DateTime
			} else {
				item.Start = ev.Start.Date
			}
		}
		agenda = append(agenda, item)
	}

	c.logger.Printf("[CALENDAR] %d events today", len(agenda))
	return Success(NameCalendar, agenda)
}

func (c *CalendarCollector) clientOptions(tok *oauth2.Token) []option.ClientOption {
	opts := []option.ClientOption{option.WithTokenSource(oauth2.StaticTokenSource(tok))}
	return append(opts, c.opts...)
}
