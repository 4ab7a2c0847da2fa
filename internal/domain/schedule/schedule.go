// Package schedule defines recurring task templates and their due-time rules.
package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Strob0t/AgentForge/internal/domain/task"
)

// Source identifies who declared a schedule.
type Source string

const (
	SourceSystem Source = "system"
	SourceUser   Source = "user"
	SourceAgent  Source = "agent"
)

// PatternKind selects how a schedule's due time is evaluated.
type PatternKind string

const (
	KindCron       PatternKind = "cron"
	KindInterval   PatternKind = "interval"
	KindHourMinute PatternKind = "hour_minute"
)

// Pattern describes when a schedule fires. Exactly one of the kind-specific
// field groups is meaningful, selected by Kind.
type Pattern struct {
	Kind     PatternKind   `json:"kind"`
	Cron     string        `json:"cron,omitempty"`
	Interval time.Duration `json:"interval,omitempty"`
	Hour     int           `json:"hour,omitempty"`
	Minute   int           `json:"minute,omitempty"`
}

// cronParser accepts the standard 5-field syntax (minute, hour, day-of-month,
// month, day-of-week) including * and */N step forms.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Validate checks that the pattern is well-formed for its kind.
func (p Pattern) Validate() error {
	switch p.Kind {
	case KindCron:
		if _, err := cronParser.Parse(p.Cron); err != nil {
			return fmt.Errorf("cron pattern %q: %w", p.Cron, err)
		}
	case KindInterval:
		if p.Interval <= 0 {
			return errors.New("interval must be positive")
		}
	case KindHourMinute:
		if p.Hour < 0 || p.Hour > 23 || p.Minute < 0 || p.Minute > 59 {
			return fmt.Errorf("invalid hour/minute %d:%d", p.Hour, p.Minute)
		}
	default:
		return fmt.Errorf("unknown pattern kind %q", p.Kind)
	}
	return nil
}

// Due reports whether a schedule with this pattern and the given lastRun is
// due at now. A nil lastRun is always due. For cron and hour/minute patterns
// due-ness is "the next occurrence after lastRun is at or before now", so a
// tick missed while the process slept still fires exactly once.
func (p Pattern) Due(lastRun *time.Time, now time.Time) bool {
	if lastRun == nil {
		return true
	}
	switch p.Kind {
	case KindCron:
		sched, err := cronParser.Parse(p.Cron)
		if err != nil {
			return false
		}
		return !sched.Next(*lastRun).After(now)
	case KindInterval:
		return now.Sub(*lastRun) >= p.Interval
	case KindHourMinute:
		// An hour/minute pattern is a daily cron fixed at that time of day.
		sched, err := cronParser.Parse(fmt.Sprintf("%d %d * * *", p.Minute, p.Hour))
		if err != nil {
			return false
		}
		return !sched.Next(*lastRun).After(now)
	}
	return false
}

// Schedule is a persisted recurring task template.
type Schedule struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Pattern   Pattern            `json:"pattern"`
	Template  task.CreateRequest `json:"template"`
	Source    Source             `json:"source"`
	Enabled   bool               `json:"enabled"`
	LastRun   *time.Time         `json:"last_run,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// MarkRun advances LastRun to now. LastRun only moves forward.
func (s *Schedule) MarkRun(now time.Time) {
	if s.LastRun != nil && s.LastRun.After(now) {
		return
	}
	t := now
	s.LastRun = &t
	s.UpdatedAt = now
}
