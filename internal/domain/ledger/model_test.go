package ledger

import (
	"testing"
	"time"
)

func TestEntry_Settled(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("EDT", -4*60*60)
	freeze := time.Date(2025, time.September, 16, 12, 0, 0, 0, loc)

	tests := []struct {
		name   string
		entry  Entry
		now    time.Time
		passed bool
		want   bool
	}{
		{name: "no freeze", entry: Entry{}, now: freeze, want: false},
		{name: "before freeze", entry: Entry{FreezeAt: &freeze}, now: freeze.Add(-time.Minute), want: false},
		{name: "at freeze", entry: Entry{FreezeAt: &freeze}, now: freeze, passed: true, want: true},
		{name: "after freeze", entry: Entry{FreezeAt: &freeze}, now: freeze.Add(24 * time.Hour), passed: true, want: true},
		{name: "locked flag", entry: Entry{Locked: true}, now: freeze, want: true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.entry.FreezePassed(tc.now); got != tc.passed {
				t.Fatalf("expected FreezePassed=%v, got=%v", tc.passed, got)
			}
			if got := tc.entry.Settled(tc.now); got != tc.want {
				t.Fatalf("expected Settled=%v, got=%v", tc.want, got)
			}
		})
	}
}
