package schedule

import "time"

// MondayOf returns local midnight of the Monday that starts t's week.
func MondayOf(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, t.Location())
}

// ReleaseFreeze returns when lines for a kickoff become visible and when they lock.
// Thursday and Friday games release on Tuesday of the same Monday-anchored week,
// everything else on Thursday. A nil kickoff yields nil times.
func ReleaseFreeze(kickoff *time.Time) (release, freeze *time.Time) {
	if kickoff == nil {
		return nil, nil
	}
	monday := MondayOf(*kickoff)

	day := 3
	switch kickoff.Weekday() {
	case time.Thursday, time.Friday:
		day = 1
	}

	rel := time.Date(monday.Year(), monday.Month(), monday.Day()+day, 0, 1, 0, 0, monday.Location())
	frz := time.Date(monday.Year(), monday.Month(), monday.Day()+day, 12, 0, 0, 0, monday.Location())
	return &rel, &frz
}
