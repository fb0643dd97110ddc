package schedule

import (
	"fmt"
	"time"

	"github.com/riskibarqy/lines-ledger/internal/domain/ledger"
)

const weekLength = 7 * 24 * time.Hour

// Week is one half-open [Start, End) window of a season.
type Week struct {
	SeasonYear int
	Index      int
	Start      time.Time
	End        time.Time
}

func (w Week) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Tag is the persisted week identity, e.g. "2025-NFL-Wk3" or "2025-CFB-Bowls".
func (w Week) Tag(league ledger.League, phase ledger.Phase) string {
	if phase.IsPostseason() {
		return fmt.Sprintf("%d-%s-%s", w.SeasonYear, league.Tag, phase.Title())
	}
	return fmt.Sprintf("%d-%s-Wk%d", w.SeasonYear, league.Tag, w.Index)
}

// Calendar is the immutable week table of one league season.
type Calendar struct {
	weeks []Week
}

func NewCalendar(seasonYear int, start time.Time, weeks int) (*Calendar, error) {
	if weeks <= 0 {
		return nil, fmt.Errorf("calendar needs at least one week, got=%d", weeks)
	}
	if start.IsZero() {
		return nil, fmt.Errorf("calendar start is required")
	}

	table := make([]Week, 0, weeks)
	for i := 0; i < weeks; i++ {
		// AddDate keeps local midnight stable across DST changes.
		weekStart := start.AddDate(0, 0, 7*i)
		table = append(table, Week{
			SeasonYear: seasonYear,
			Index:      i + 1,
			Start:      weekStart,
			End:        start.AddDate(0, 0, 7*(i+1)),
		})
	}
	return &Calendar{weeks: table}, nil
}

func (c *Calendar) Weeks() []Week {
	out := make([]Week, len(c.weeks))
	copy(out, c.weeks)
	return out
}

// Resolve maps any instant to exactly one week: the containing window, or the week
// whose start is nearest. Equal distances resolve to the earlier week.
func (c *Calendar) Resolve(now time.Time) Week {
	best := c.weeks[0]
	bestDist := absDuration(now.Sub(best.Start))
	for _, w := range c.weeks {
		if w.Contains(now) {
			return w
		}
		if d := absDuration(now.Sub(w.Start)); d < bestDist {
			best, bestDist = w, d
		}
	}
	return best
}

// Week returns the week with the given 1-based index.
func (c *Calendar) Week(index int) (Week, bool) {
	if index < 1 || index > len(c.weeks) {
		return Week{}, false
	}
	return c.weeks[index-1], true
}

func (c *Calendar) Len() int {
	return len(c.weeks)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
