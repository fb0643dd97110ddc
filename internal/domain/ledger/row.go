package ledger

import "strings"

// RawRow is one row as produced by a schedule source.
type RawRow struct {
	Cells   []string
	EventID string
}

// NormalizeCells maps a scraped row onto the 8-cell display layout
// [logo, team, pick, line, pick, o/u, date, time]. Legacy 6-cell rows
// [logo, team, date, time, line, o/u] are remapped; anything else is padded or cut.
func NormalizeCells(cells []string) Row {
	r := append([]string(nil), cells...)
	for len(r) > DisplayWidth && strings.TrimSpace(r[len(r)-1]) == "" {
		r = r[:len(r)-1]
	}

	switch {
	case len(r) == DisplayWidth:
		return RowOf(r)
	case len(r) == 6, len(r) > 6 && looksLikeTime(r[3]):
		return Row{r[0], r[1], "", r[4], "", r[5], r[2], r[3]}
	default:
		return RowOf(r)
	}
}

func looksLikeTime(v string) bool {
	v = strings.ToUpper(v)
	return strings.Contains(v, "AM") || strings.Contains(v, "PM")
}

// PackEvents pairs consecutive rows as away/home. A trailing unpaired row is dropped.
func PackEvents(rows []RawRow) []Event {
	out := make([]Event, 0, len(rows)/2)
	for i := 0; i+1 < len(rows); i += 2 {
		away, home := rows[i], rows[i+1]
		eventID := strings.TrimSpace(away.EventID)
		if eventID == "" {
			eventID = strings.TrimSpace(home.EventID)
		}
		out = append(out, Event{
			Away:    NormalizeCells(away.Cells),
			Home:    NormalizeCells(home.Cells),
			EventID: eventID,
		})
	}
	return out
}

// DateText and TimeText of a pair come from the away row.
func (e Event) DateText() string { return e.Away.DateText() }
func (e Event) TimeText() string { return e.Away.TimeText() }
