package ledger

import (
	"strings"
	"time"
)

// Column offsets of the Lines worksheet (A..R).
const (
	ColLogo = iota
	ColTeam
	ColAwayPick
	ColLine
	ColHomePick
	ColOverUnder
	ColDate
	ColTime
	ColLeague
	ColWeekTag
	ColPhase
	ColGameKey
	ColKickoff
	ColReleaseAt
	ColFreezeAt
	ColLocked
	ColStatus
	ColLastUpdated
)

const (
	DisplayWidth = 8
	Width        = 18

	// HeaderRow is the 1-based row holding column labels; entries start below it.
	HeaderRow    = 1
	FirstPairRow = 2

	LockedYes = "Y"
	LockedNo  = "N"

	// NotAvailable is the scraper's sentinel for a missing line or total.
	NotAvailable = "N/A"

	StampLayout = "2006-01-02 15:04"
)

var headerLabels = [Width]string{
	"Logo", "Team", "Pick #", "Line", "Pick #", "O/U", "Date", "Time",
	"League", "WeekTag", "Phase", "GameKey", "KickoffLocal", "ReleaseAt", "FreezeAt", "Locked", "Status", "LastUpdated",
}

// Header returns a fresh copy of the 18 header labels.
func Header() []string {
	out := make([]string, Width)
	copy(out, headerLabels[:])
	return out
}

// HeaderMatches reports whether row carries the expected labels in A..R.
func HeaderMatches(row []string) bool {
	if len(row) < Width {
		return false
	}
	for i, label := range headerLabels {
		if row[i] != label {
			return false
		}
	}
	return true
}

// League identifies one tracked competition.
type League struct {
	Code string
	Tag  string
}

var (
	LeagueNFL     = League{Code: "nfl", Tag: "NFL"}
	LeagueCollege = League{Code: "ncaaf", Tag: "CFB"}
)

func LeagueByCode(code string) (League, bool) {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case LeagueNFL.Code:
		return LeagueNFL, true
	case LeagueCollege.Code, "cfb", "college":
		return LeagueCollege, true
	default:
		return League{}, false
	}
}

func (l League) String() string {
	return l.Code
}

type Phase string

const (
	PhaseRegular  Phase = "regular"
	PhasePlayoffs Phase = "playoffs"
	PhaseBowls    Phase = "bowls"
)

func ParsePhase(v string) (Phase, bool) {
	switch Phase(strings.ToLower(strings.TrimSpace(v))) {
	case PhaseRegular, "":
		return PhaseRegular, true
	case PhasePlayoffs:
		return PhasePlayoffs, true
	case PhaseBowls:
		return PhaseBowls, true
	default:
		return "", false
	}
}

func (p Phase) IsPostseason() bool {
	return p == PhasePlayoffs || p == PhaseBowls
}

// Title is the capitalized phase name used inside postseason week tags.
func (p Phase) Title() string {
	s := string(p)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

type Status string

const (
	StatusPlaceholder Status = "placeholder"
	StatusPosted      Status = "posted"
	StatusLocked      Status = "locked"
)

// Row holds the display cells A..H of one participant.
type Row [DisplayWidth]string

func RowOf(cells []string) Row {
	var r Row
	copy(r[:], cells)
	return r
}

func (r Row) Name() string      { return strings.TrimSpace(r[ColTeam]) }
func (r Row) Line() string      { return r[ColLine] }
func (r Row) OverUnder() string { return r[ColOverUnder] }
func (r Row) DateText() string  { return r[ColDate] }
func (r Row) TimeText() string  { return r[ColTime] }

// Event is one scraped away/home pair.
type Event struct {
	Away    Row
	Home    Row
	EventID string
}

// Entry is a persisted pair of rows plus the metadata columns I..R.
type Entry struct {
	TopRow       int        `json:"top_row"`
	Away         Row        `json:"away"`
	Home         Row        `json:"home"`
	League       string     `json:"league"`
	WeekTag      string     `json:"week_tag"`
	Phase        Phase      `json:"phase"`
	GameKey      string     `json:"game_key"`
	KickoffLocal *time.Time `json:"kickoff_local,omitempty"`
	ReleaseAt    *time.Time `json:"release_at,omitempty"`
	FreezeAt     *time.Time `json:"freeze_at,omitempty"`
	Locked       bool       `json:"locked"`
	Status       Status     `json:"status"`
	LastUpdated  *time.Time `json:"last_updated,omitempty"`
}

// Rows renders the entry back into two 18-cell store rows.
func (e Entry) Rows(loc *time.Location) (away, home []string) {
	meta := []string{
		e.League,
		e.WeekTag,
		string(e.Phase),
		e.GameKey,
		FormatStamp(e.KickoffLocal, loc),
		FormatStamp(e.ReleaseAt, loc),
		FormatStamp(e.FreezeAt, loc),
		LockedFlag(e.Locked),
		string(e.Status),
		FormatStamp(e.LastUpdated, loc),
	}
	away = append(append(make([]string, 0, Width), e.Away[:]...), meta...)
	home = append(append(make([]string, 0, Width), e.Home[:]...), meta...)
	return away, home
}

// FreezePassed reports whether the stored freeze instant is at or before now.
func (e Entry) FreezePassed(now time.Time) bool {
	return e.FreezeAt != nil && !now.Before(*e.FreezeAt)
}

// Settled is true once the entry is locked or is due to be. Settled entries are
// never rewritten from a scrape and never purged.
func (e Entry) Settled(now time.Time) bool {
	return e.Locked || e.FreezePassed(now)
}

// EntryFromRows reads an entry from the pair starting at top. Missing cells read as blank.
func EntryFromRows(top int, away, home []string, loc *time.Location) Entry {
	return Entry{
		TopRow:       top,
		Away:         RowOf(away),
		Home:         RowOf(home),
		League:       strings.TrimSpace(Cell(away, ColLeague)),
		WeekTag:      strings.TrimSpace(Cell(away, ColWeekTag)),
		Phase:        Phase(strings.TrimSpace(Cell(away, ColPhase))),
		GameKey:      strings.TrimSpace(Cell(away, ColGameKey)),
		KickoffLocal: ParseStamp(Cell(away, ColKickoff), loc),
		ReleaseAt:    ParseStamp(Cell(away, ColReleaseAt), loc),
		FreezeAt:     ParseStamp(Cell(away, ColFreezeAt), loc),
		Locked:       IsLockedFlag(Cell(away, ColLocked)),
		Status:       Status(strings.TrimSpace(Cell(away, ColStatus))),
		LastUpdated:  ParseStamp(Cell(away, ColLastUpdated), loc),
	}
}

// Cell returns row[i] or blank when the row is short.
func Cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// PadRow copies row into exactly Width cells.
func PadRow(row []string) []string {
	out := make([]string, Width)
	copy(out, row)
	return out
}

func LockedFlag(locked bool) string {
	if locked {
		return LockedYes
	}
	return LockedNo
}

func IsLockedFlag(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), LockedYes)
}

func FormatStamp(t *time.Time, loc *time.Location) string {
	if t == nil || t.IsZero() {
		return ""
	}
	if loc == nil {
		return t.Format(StampLayout)
	}
	return t.In(loc).Format(StampLayout)
}

func ParseStamp(v string, loc *time.Location) *time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(StampLayout, v, loc)
	if err != nil {
		return nil
	}
	return &t
}
