package schedule

import (
	"testing"
	"time"
)

func TestPatternValidate(t *testing.T) {
	cases := []struct {
		name    string
		pattern Pattern
		wantErr bool
	}{
		{"cron ok", Pattern{Kind: KindCron, Cron: "*/5 * * * *"}, false},
		{"cron malformed", Pattern{Kind: KindCron, Cron: "not a cron"}, true},
		{"cron six fields", Pattern{Kind: KindCron, Cron: "0 0 * * * *"}, true},
		{"interval ok", Pattern{Kind: KindInterval, Interval: time.Minute}, false},
		{"interval zero", Pattern{Kind: KindInterval}, true},
		{"interval negative", Pattern{Kind: KindInterval, Interval: -time.Second}, true},
		{"hour minute ok", Pattern{Kind: KindHourMinute, Hour: 23, Minute: 59}, false},
		{"hour out of range", Pattern{Kind: KindHourMinute, Hour: 24}, true},
		{"minute out of range", Pattern{Kind: KindHourMinute, Minute: 60}, true},
		{"unknown kind", Pattern{Kind: "weekly"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.pattern.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestDueNilLastRun(t *testing.T) {
	patterns := []Pattern{
		{Kind: KindCron, Cron: "0 0 * * *"},
		{Kind: KindInterval, Interval: time.Hour},
		{Kind: KindHourMinute, Hour: 3, Minute: 30},
	}
	for _, p := range patterns {
		if !p.Due(nil, time.Now()) {
			t.Errorf("pattern %+v with nil lastRun should be due", p)
		}
	}
}

func TestDueInterval(t *testing.T) {
	p := Pattern{Kind: KindInterval, Interval: time.Minute}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	recent := now.Add(-59 * time.Second)
	if p.Due(&recent, now) {
		t.Error("59s elapsed on 60s interval should not be due")
	}
	exact := now.Add(-time.Minute)
	if !p.Due(&exact, now) {
		t.Error("exactly one interval elapsed should be due")
	}
	old := now.Add(-61 * time.Second)
	if !p.Due(&old, now) {
		t.Error("61s elapsed on 60s interval should be due")
	}
}

func TestDueCron(t *testing.T) {
	// Every 4 hours on the hour.
	p := Pattern{Kind: KindCron, Cron: "0 */4 * * *"}

	lastRun := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	if p.Due(&lastRun, time.Date(2025, 6, 1, 11, 59, 0, 0, time.UTC)) {
		t.Error("before the next occurrence should not be due")
	}
	if !p.Due(&lastRun, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)) {
		t.Error("at the next occurrence should be due")
	}
	// A missed tick while asleep still registers once the process wakes.
	if !p.Due(&lastRun, time.Date(2025, 6, 2, 3, 0, 0, 0, time.UTC)) {
		t.Error("long after a missed occurrence should be due")
	}
}

func TestDueCronMalformedNeverFires(t *testing.T) {
	p := Pattern{Kind: KindCron, Cron: "bogus"}
	lastRun := time.Now().Add(-24 * time.Hour)
	if p.Due(&lastRun, time.Now()) {
		t.Error("malformed cron with non-nil lastRun should never be due")
	}
}

func TestDueHourMinute(t *testing.T) {
	p := Pattern{Kind: KindHourMinute, Hour: 9, Minute: 30}

	lastRun := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

	if p.Due(&lastRun, time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC)) {
		t.Error("same day after firing should not be due")
	}
	if !p.Due(&lastRun, time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)) {
		t.Error("next day at the scheduled time should be due")
	}
	if !p.Due(&lastRun, time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)) {
		t.Error("next day past the scheduled time should be due")
	}
}

func TestMarkRun(t *testing.T) {
	s := &Schedule{ID: "s1"}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	s.MarkRun(now)
	if s.LastRun == nil || !s.LastRun.Equal(now) {
		t.Fatalf("LastRun = %v, want %v", s.LastRun, now)
	}

	later := now.Add(time.Hour)
	s.MarkRun(later)
	if !s.LastRun.Equal(later) {
		t.Fatalf("LastRun = %v, want %v", s.LastRun, later)
	}

	// LastRun never moves backward.
	s.MarkRun(now)
	if !s.LastRun.Equal(later) {
		t.Fatalf("LastRun moved backward to %v, want %v", s.LastRun, later)
	}
}
