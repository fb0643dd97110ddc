package schedule

import "time"

// PublishAllowed reports whether a run at now may reveal data for kickoff.
// Tuesday runs open Thursday..Friday, Thursday runs open Saturday..next Monday.
// An unknown kickoff always passes.
func PublishAllowed(now time.Time, kickoff *time.Time) bool {
	if kickoff == nil {
		return true
	}

	monday := MondayOf(now)
	var from, to int
	switch now.Weekday() {
	case time.Tuesday:
		from, to = 3, 4
	case time.Thursday:
		from, to = 5, 7
	default:
		return false
	}

	k := kickoff.In(now.Location())
	day := time.Date(k.Year(), k.Month(), k.Day(), 0, 0, 0, 0, now.Location())
	start := monday.AddDate(0, 0, from)
	end := monday.AddDate(0, 0, to)
	return !day.Before(start) && !day.After(end)
}

// Publication is the combined visibility decision for one kickoff at one instant.
type Publication struct {
	Kickoff   *time.Time
	ReleaseAt *time.Time
	FreezeAt  *time.Time
	GateOpen  bool
}

func Evaluate(now time.Time, kickoff *time.Time) Publication {
	release, freeze := ReleaseFreeze(kickoff)
	return Publication{
		Kickoff:   kickoff,
		ReleaseAt: release,
		FreezeAt:  freeze,
		GateOpen:  PublishAllowed(now, kickoff),
	}
}

// Permitted is true once the gate is open and the release time has passed.
// Kickoffs without a release time stay unpublished.
func (p Publication) Permitted(now time.Time) bool {
	return p.GateOpen && p.ReleaseAt != nil && !now.Before(*p.ReleaseAt)
}

// Frozen is true once the freeze time has passed.
func (p Publication) Frozen(now time.Time) bool {
	return p.FreezeAt != nil && !now.Before(*p.FreezeAt)
}
