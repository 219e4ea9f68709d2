package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule is the poll trigger: either a fixed interval or a cron
// expression. Exactly one of Every/Cron is set.
type Schedule struct {
	Every time.Duration
	Cron  cron.Schedule

	// Raw keeps the original schedule string for logging.
	Raw string
}

// ParseSchedule parses a schedule string.
//
// Supported forms:
//   - Interval duration: "10m", "600s", "2h30m"
//   - Cron (crontab.guru-style): "*/10 * * * *", "@hourly", "@every 10m"
func ParseSchedule(raw string) (Schedule, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Schedule{}, fmt.Errorf("schedule required")
	}

	// Any whitespace or leading '@' means cron; a bare token is tried as
	// a Go duration first.
	if !strings.ContainsAny(s, " \t") && !strings.HasPrefix(s, "@") {
		d, err := time.ParseDuration(s)
		if err == nil {
			if d <= 0 {
				return Schedule{}, fmt.Errorf("interval must be > 0")
			}
			return Schedule{Every: d, Raw: s}, nil
		}
	}

	sched, err := cron.ParseStandard(s)
	if err != nil {
		return Schedule{}, fmt.Errorf(
			"invalid schedule %q (use a duration like '10m' or cron like '*/10 * * * *'): %w", raw, err)
	}
	return Schedule{Cron: sched, Raw: s}, nil
}

// Next returns the time of the tick after now.
func (s Schedule) Next(now time.Time) time.Time {
	if s.Cron != nil {
		return s.Cron.Next(now)
	}
	return now.Add(s.Every)
}

func (s Schedule) String() string {
	if s.Raw != "" {
		return s.Raw
	}
	return s.Every.String()
}
