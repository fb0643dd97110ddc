package espn

import (
	"strings"
	"testing"

	"github.com/riskibarqy/lines-ledger/internal/domain/ledger"
	"github.com/stretchr/testify/require"
)

type gameFixture struct {
	awayName, awayLogo, awayRank string
	homeName, homeLogo, homeRank string
	time                         string
	odds                         []string
	gameID                       string
	ariaLabel                    string
}

func teamCell(name, logo, rank string) string {
	var b strings.Builder
	b.WriteString(`<td><span class="Table__Team">`)
	if rank != "" {
		b.WriteString(`<span class="TeamRank">` + rank + `</span>`)
	}
	b.WriteString(`<a href="/nfl/team/_/name/x"><img src="` + logo + `"/></a>`)
	b.WriteString(`<a href="/nfl/team/_/name/x">` + name + `</a></span></td>`)
	return b.String()
}

func gameRow(g gameFixture) string {
	var b strings.Builder
	b.WriteString(`<tr class="Table__TR"`)
	if g.ariaLabel != "" {
		b.WriteString(` aria-label="` + g.ariaLabel + `"`)
	}
	b.WriteString(`>`)
	b.WriteString(teamCell(g.awayName, g.awayLogo, g.awayRank))
	b.WriteString(teamCell(g.homeName, g.homeLogo, g.homeRank))
	b.WriteString(`<td>`)
	if g.gameID != "" {
		b.WriteString(`<a href="/nfl/game/_/gameId/` + g.gameID + `">` + g.time + `</a>`)
	} else {
		b.WriteString(g.time)
	}
	b.WriteString(`</td><td></td><td></td><td></td><td>`)
	for _, o := range g.odds {
		b.WriteString(`<a href="#">` + o + `</a>`)
	}
	b.WriteString(`</td></tr>`)
	return b.String()
}

func scheduleSection(date string, games ...gameFixture) string {
	var b strings.Builder
	b.WriteString(`<div class="ScheduleTables mb5"><div class="Table__Title">` + date + `</div><table><tbody>`)
	for _, g := range games {
		b.WriteString(gameRow(g))
	}
	b.WriteString(`</tbody></table></div>`)
	return b.String()
}

func schedulePage(sections ...string) string {
	return `<html><body><div class="page">` + strings.Join(sections, "") + `</div></body></html>`
}

func mustParse(t *testing.T, html string, opts parseOptions) []ledger.RawRow {
	t.Helper()
	rows, err := parseSchedule(strings.NewReader(html), opts)
	require.NoError(t, err)
	return rows
}

func TestParseSchedule_NFLRowPairs(t *testing.T) {
	t.Parallel()

	html := schedulePage(scheduleSection("Thursday, September 18, 2025", gameFixture{
		awayName: "Miami", awayLogo: "https://a.espncdn.com/i/teamlogos/nfl/500/mia.png",
		homeName: "Buffalo", homeLogo: "https://a.espncdn.com/i/teamlogos/nfl/500/buf.png",
		time:   "8:15 PM",
		odds:   []string{"Line: BUF -12.5", "O/U: 49.5"},
		gameID: "401772936",
	}))

	rows := mustParse(t, html, parseOptions{league: ledger.LeagueNFL})
	require.Len(t, rows, 2)

	away, home := rows[0], rows[1]
	require.Equal(t, "401772936", away.EventID)
	require.Empty(t, home.EventID)
	require.Equal(t, []string{
		`=IMAGE("` + nflLogoURLs["MIA"] + `", 1)`, "Miami", "", "MIA +12.5", "", "O 49.5", "Thursday, September 18, 2025", "8:15 PM",
	}, away.Cells)
	require.Equal(t, []string{
		`=IMAGE("` + nflLogoURLs["BUF"] + `", 1)`, "Buffalo", "", "BUF -12.5", "", "U 49.5", "Thursday, September 18, 2025", "8:15 PM",
	}, home.Cells)
}

func TestParseSchedule_NewYorkResolvedByLogo(t *testing.T) {
	t.Parallel()

	html := schedulePage(scheduleSection("Sunday, September 21, 2025", gameFixture{
		awayName: "New York", awayLogo: "https://a.espncdn.com/i/teamlogos/nfl/500/nyj.png",
		homeName: "Tampa Bay", homeLogo: "https://a.espncdn.com/i/teamlogos/nfl/500/tb.png",
		time: "1:00 PM",
		odds: []string{"Line: NYJ -3", "O/U: 44"},
	}))

	rows := mustParse(t, html, parseOptions{league: ledger.LeagueNFL})
	require.Len(t, rows, 2)
	require.Equal(t, "NYJ -3", rows[0].Cells[ledger.ColLine])
	require.Equal(t, "TB +3", rows[1].Cells[ledger.ColLine])
}

func TestParseSchedule_MissingOddsAndTime(t *testing.T) {
	t.Parallel()

	html := schedulePage(scheduleSection("Monday, September 22, 2025", gameFixture{
		awayName: "Detroit", homeName: "Baltimore",
		time: "TBD",
	}))

	rows := mustParse(t, html, parseOptions{league: ledger.LeagueNFL})
	require.Len(t, rows, 2)
	for _, row := range rows {
		require.Equal(t, ledger.NotAvailable, row.Cells[ledger.ColLine])
		require.Equal(t, ledger.NotAvailable, row.Cells[ledger.ColOverUnder])
		require.Equal(t, "TBD", row.Cells[ledger.ColTime])
	}
}

func TestParseSchedule_TimeFromAriaLabel(t *testing.T) {
	t.Parallel()

	html := schedulePage(scheduleSection("Sunday, September 21, 2025", gameFixture{
		awayName: "Denver", homeName: "Los Angeles Chargers",
		ariaLabel: "Denver at Los Angeles, 4:25 pm",
	}))

	rows := mustParse(t, html, parseOptions{league: ledger.LeagueNFL})
	require.Len(t, rows, 2)
	require.Equal(t, "4:25 PM", rows[0].Cells[ledger.ColTime])
}

func TestParseSchedule_CollegeRanksAndDirectory(t *testing.T) {
	t.Parallel()

	teams := NewTeamDirectory([][]string{
		{"", "Team", "Abbr", "", "", "Logo"},
		{"", "Ohio State", "osu", "", "", "https://logos.example/osu.png"},
		{"", "Michigan", "MICH", "", "", "https://logos.example/mich.png"},
		{"", "Iowa", "IOWA"},
		{"", "Rutgers", "RUTG"},
	})

	html := schedulePage(scheduleSection("Saturday, November 29, 2025",
		gameFixture{
			awayName: "Ohio State", awayRank: "2",
			homeName: "Michigan", homeRank: "18",
			time: "12:00 PM",
			odds: []string{"Line: OSU -9.5", "O/U: 45.5"},
		},
		gameFixture{
			awayName: "Iowa", homeName: "Rutgers",
			time: "3:30 PM",
			odds: []string{"Line: IOWA -3", "O/U: 40"},
		},
	))

	rows := mustParse(t, html, parseOptions{league: ledger.LeagueCollege, teams: teams})
	require.Len(t, rows, 2, "unranked matchup must be filtered")
	require.Equal(t, "2 Ohio State", rows[0].Cells[ledger.ColTeam])
	require.Equal(t, "18 Michigan", rows[1].Cells[ledger.ColTeam])
	require.Equal(t, "OSU -9.5", rows[0].Cells[ledger.ColLine])
	require.Equal(t, "MICH +9.5", rows[1].Cells[ledger.ColLine])
	require.Equal(t, `=IMAGE("https://logos.example/osu.png", 1)`, rows[0].Cells[ledger.ColLogo])

	all := mustParse(t, html, parseOptions{league: ledger.LeagueCollege, teams: teams, includeAll: true})
	require.Len(t, all, 4)
	require.Equal(t, "Iowa", all[2].Cells[ledger.ColTeam])
	require.Empty(t, all[2].Cells[ledger.ColLogo])
}

func TestSplitLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		line     string
		away     string
		home     string
		college  bool
		wantAway string
		wantHome string
	}{
		{name: "away favourite", line: "KC -3.0", away: "KC", home: "LV", wantAway: "KC -3", wantHome: "LV +3"},
		{name: "home favourite", line: "BUF -6.5", away: "MIA", home: "BUF", wantAway: "MIA +6.5", wantHome: "BUF -6.5"},
		{name: "no space", line: "ILL-45.5", away: "ILL", home: "WIS", college: true, wantAway: "ILL -45.5", wantHome: "WIS +45.5"},
		{name: "college unmatched", line: "XYZ -7", away: "OSU", home: "MICH", college: true, wantAway: "***", wantHome: "***"},
		{name: "nfl unmatched", line: "XYZ -7", away: "KC", home: "LV", wantAway: "N/A", wantHome: "N/A"},
		{name: "pick em", line: "EVEN", away: "KC", home: "LV", wantAway: "N/A", wantHome: "N/A"},
		{name: "unknown abbreviation", line: "KC -3", away: "", home: "LV", wantAway: "N/A", wantHome: "N/A"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			gotAway, gotHome := splitLine(tc.line, tc.away, tc.home, tc.college)
			if gotAway != tc.wantAway || gotHome != tc.wantHome {
				t.Fatalf("expected %q/%q, got=%q/%q", tc.wantAway, tc.wantHome, gotAway, gotHome)
			}
		})
	}
}

func TestTeamDirectory_LogoFuzzyMatch(t *testing.T) {
	t.Parallel()

	teams := NewTeamDirectory([][]string{
		{"", "Team", "Abbr", "", "", "Logo"},
		{"", "Miami (OH) RedHawks", "M-OH", "", "", "https://logos.example/moh.png"},
		{"", "Texas A&M", "TAMU", "", "", "https://logos.example/tamu.png"},
	})

	require.Equal(t, 2, teams.Len())
	require.Equal(t, "https://logos.example/tamu.png", teams.LogoURL("Texas A&M"))
	require.Equal(t, "https://logos.example/moh.png", teams.LogoURL("Miami (OH)"))
	require.Empty(t, teams.LogoURL("Nowhere State"))

	var missing *TeamDirectory
	require.Empty(t, missing.Abbreviation("Iowa"))
}
