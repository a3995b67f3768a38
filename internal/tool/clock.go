package tool

import (
	"context"
	"fmt"
	"time"
)

// Clock reports the current time, optionally in a requested timezone.
type Clock struct {
	now func() time.Time
}

// NewClock creates the clock tool.
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

func (c *Clock) Name() string { return "clock" }

func (c *Clock) Description() string {
	return "Get the current date and time, optionally for a specific IANA timezone"
}

func (c *Clock) Validate(_ map[string]any) error { return nil }

func (c *Clock) Execute(_ context.Context, params, config map[string]any) (any, error) {
	tz := cfgString(params, "timezone")
	if tz == "" {
		tz = cfgString(config, "timezone")
	}

	now := c.now()
	if tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("unknown timezone %q", tz)
		}
		now = now.In(loc)
	}

	return map[string]any{
		"iso":      now.Format(time.RFC3339),
		"unix":     now.Unix(),
		"weekday":  now.Weekday().String(),
		"timezone": now.Location().String(),
	}, nil
}
