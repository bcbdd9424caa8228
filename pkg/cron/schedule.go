// Package cron runs named periodic jobs inside the daemon process. The
// concierge uses it for housekeeping work such as the global metrics
// summary log line.
package cron

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ScheduleKind represents the type of schedule.
type ScheduleKind string

const (
	ScheduleKindAt    ScheduleKind = "at"
	ScheduleKindEvery ScheduleKind = "every"
	ScheduleKindCron  ScheduleKind = "cron"
)

// Schedule specifies when a job runs.
type Schedule struct {
	Kind ScheduleKind `json:"kind"`

	// For "at": one-shot ISO 8601 timestamp.
	At string `json:"at,omitempty"`

	// For "every": fixed interval.
	Every time.Duration `json:"every,omitempty"`

	// For "cron": 5-field expression or descriptor ("@hourly"), with an
	// optional timezone.
	Expr string `json:"expr,omitempty"`
	TZ   string `json:"tz,omitempty"`
}

// CronSchedule is shorthand for a cron-expression schedule.
func CronSchedule(expr string) Schedule {
	return Schedule{Kind: ScheduleKindCron, Expr: expr}
}

// EverySchedule is shorthand for a fixed-interval schedule.
func EverySchedule(interval time.Duration) Schedule {
	return Schedule{Kind: ScheduleKindEvery, Every: interval}
}

var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// NextRun calculates when the schedule fires next, after now.
func NextRun(schedule Schedule, now time.Time) (time.Time, error) {
	switch schedule.Kind {
	case ScheduleKindAt:
		if schedule.At == "" {
			return time.Time{}, fmt.Errorf("'at' schedule requires 'at' field")
		}
		t, err := time.Parse(time.RFC3339, schedule.At)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp: %w", err)
		}
		return t, nil

	case ScheduleKindEvery:
		if schedule.Every <= 0 {
			return time.Time{}, fmt.Errorf("'every' schedule requires a positive interval")
		}
		return now.Add(schedule.Every), nil

	case ScheduleKindCron:
		if schedule.Expr == "" {
			return time.Time{}, fmt.Errorf("'cron' schedule requires 'expr' field")
		}
		sched, err := cronParser.Parse(schedule.Expr)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid cron expression: %w", err)
		}
		if schedule.TZ != "" {
			loc, err := time.LoadLocation(schedule.TZ)
			if err != nil {
				return time.Time{}, fmt.Errorf("invalid timezone: %w", err)
			}
			now = now.In(loc)
		}
		return sched.Next(now), nil

	default:
		return time.Time{}, fmt.Errorf("unknown schedule kind: %s", schedule.Kind)
	}
}
