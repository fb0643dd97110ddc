package schedule

import (
	"testing"
	"time"
)

func TestReleaseFreeze(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		kickoff     time.Time
		wantRelease time.Time
		wantFreeze  time.Time
	}{
		{
			name:        "thursday night",
			kickoff:     at(2025, time.September, 18, 20, 15),
			wantRelease: at(2025, time.September, 16, 0, 1),
			wantFreeze:  at(2025, time.September, 16, 12, 0),
		},
		{
			name:        "friday",
			kickoff:     at(2025, time.September, 19, 19, 0),
			wantRelease: at(2025, time.September, 16, 0, 1),
			wantFreeze:  at(2025, time.September, 16, 12, 0),
		},
		{
			name:        "sunday afternoon",
			kickoff:     at(2025, time.September, 21, 13, 0),
			wantRelease: at(2025, time.September, 18, 0, 1),
			wantFreeze:  at(2025, time.September, 18, 12, 0),
		},
		{
			name:        "monday night",
			kickoff:     at(2025, time.September, 22, 20, 15),
			wantRelease: at(2025, time.September, 25, 0, 1),
			wantFreeze:  at(2025, time.September, 25, 12, 0),
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			release, freeze := ReleaseFreeze(&tc.kickoff)
			if release == nil || freeze == nil {
				t.Fatalf("expected known release and freeze")
			}
			if !release.Equal(tc.wantRelease) {
				t.Fatalf("expected release %s, got=%s", tc.wantRelease, release)
			}
			if !freeze.Equal(tc.wantFreeze) {
				t.Fatalf("expected freeze %s, got=%s", tc.wantFreeze, freeze)
			}
		})
	}
}

func TestReleaseFreeze_Unknown(t *testing.T) {
	t.Parallel()

	release, freeze := ReleaseFreeze(nil)
	if release != nil || freeze != nil {
		t.Fatalf("expected nil release and freeze, got=%v %v", release, freeze)
	}
}

func TestReleaseFreeze_StaysInsideWeek(t *testing.T) {
	t.Parallel()

	for k := at(2025, time.August, 25, 0, 0); k.Before(at(2026, time.February, 1, 0, 0)); k = k.Add(7 * time.Hour) {
		kickoff := k
		release, freeze := ReleaseFreeze(&kickoff)
		monday := MondayOf(kickoff)
		if monday.Weekday() != time.Monday {
			t.Fatalf("monday of %s is a %s", kickoff, monday.Weekday())
		}
		if release.After(*freeze) {
			t.Fatalf("release %s after freeze %s", release, freeze)
		}
		if release.Before(monday) {
			t.Fatalf("release %s before monday %s", release, monday)
		}
		if !freeze.Before(monday.AddDate(0, 0, 8)) {
			t.Fatalf("freeze %s not before monday+8d of %s", freeze, kickoff)
		}
	}
}

func TestMondayOf(t *testing.T) {
	t.Parallel()

	got := MondayOf(at(2025, time.September, 21, 13, 0))
	if want := at(2025, time.September, 15, 0, 0); !got.Equal(want) {
		t.Fatalf("expected %s, got=%s", want, got)
	}
	got = MondayOf(at(2025, time.September, 15, 9, 30))
	if want := at(2025, time.September, 15, 0, 0); !got.Equal(want) {
		t.Fatalf("expected %s, got=%s", want, got)
	}
}
