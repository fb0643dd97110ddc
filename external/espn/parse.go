package espn

import (
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/lines-ledger/internal/domain/ledger"
)

var (
	timeTokenRegex = regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}\s*[AP]M\b`)
	bareLineRegex  = regexp.MustCompile(`^([A-Za-z]{2,4})\s*([+-]?\d+(?:\.\d+)?)$`)
	gameIDRegex    = regexp.MustCompile(`gameId[/=](\d+)`)
	leadRankRegex  = regexp.MustCompile(`^\s*(\d{1,2})\s`)
	spaceRegex     = regexp.MustCompile(`\s+`)
)

const (
	minRank = 1
	maxRank = 25

	// unmatchedFavorite marks a college spread whose favourite matches neither side.
	unmatchedFavorite = "***"
)

var rankSelectors = []string{"span.TeamRank", "span.teamRank", "span.rank", "span.Rank"}

type parseOptions struct {
	league     ledger.League
	includeAll bool
	teams      *TeamDirectory
}

// parseSchedule reads one ESPN schedule page into away/home row pairs.
func parseSchedule(body io.Reader, opts parseOptions) ([]ledger.RawRow, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, crerr.Wrap(err, "parse schedule html")
	}

	sections := doc.Find("div.ScheduleTables")
	if sections.Length() == 0 {
		sections = doc.Find("tbody").Parent()
	}

	out := make([]ledger.RawRow, 0, 32)
	sections.Each(func(_ int, section *goquery.Selection) {
		dateText := cleanText(section.Find(".Table__Title").First().Text())

		rows := section.Find("tbody tr")
		if rows.Length() == 0 {
			rows = section.Find("tr")
		}
		rows.Each(func(_ int, row *goquery.Selection) {
			away, home, ok := parseGameRow(row, dateText, opts)
			if !ok {
				return
			}
			out = append(out, away, home)
		})
	})
	return out, nil
}

func parseGameRow(row *goquery.Selection, dateText string, opts parseOptions) (away, home ledger.RawRow, ok bool) {
	cells := row.Find("td")
	if cells.Length() < 2 {
		return away, home, false
	}
	awayCell, homeCell := cells.Eq(0), cells.Eq(1)

	awayTeam := teamText(awayCell)
	homeTeam := teamText(homeCell)
	if awayTeam == "" || homeTeam == "" {
		return away, home, false
	}

	awayRank, homeRank := 0, 0
	if opts.league == ledger.LeagueCollege {
		awayRank, homeRank = teamRank(awayCell), teamRank(homeCell)
		if !opts.includeAll && awayRank == 0 && homeRank == 0 {
			return away, home, false
		}
	}

	gameTime := scanTime(row, cells)
	line, total := parseOdds(row)

	var awayAbbr, homeAbbr, awayLogo, homeLogo string
	switch opts.league {
	case ledger.LeagueCollege:
		awayAbbr, homeAbbr = opts.teams.Abbreviation(awayTeam), opts.teams.Abbreviation(homeTeam)
		awayLogo, homeLogo = opts.teams.LogoURL(awayTeam), opts.teams.LogoURL(homeTeam)
	default:
		awayAbbr = nflAbbreviation(awayTeam, logoURL(awayCell))
		homeAbbr = nflAbbreviation(homeTeam, logoURL(homeCell))
		awayLogo, homeLogo = nflLogoURLs[awayAbbr], nflLogoURLs[homeAbbr]
	}

	awayLine, homeLine := splitLine(line, awayAbbr, homeAbbr, opts.league == ledger.LeagueCollege)
	over, under := ledger.NotAvailable, ledger.NotAvailable
	if total != ledger.NotAvailable {
		over, under = "O "+total, "U "+total
	}

	away = ledger.RawRow{
		Cells:   []string{imageFormula(awayLogo), rankedName(awayRank, awayTeam), "", awayLine, "", over, dateText, gameTime},
		EventID: gameID(row),
	}
	home = ledger.RawRow{
		Cells: []string{imageFormula(homeLogo), rankedName(homeRank, homeTeam), "", homeLine, "", under, dateText, gameTime},
	}
	return away, home, true
}

// teamText picks the last team anchor with text. The first anchor in a cell
// usually wraps the logo image.
func teamText(cell *goquery.Selection) string {
	for _, sel := range []string{"a[href*='/team/']", "span.Table__Team a"} {
		var name string
		cell.Find(sel).Each(func(_ int, a *goquery.Selection) {
			if txt := cleanText(a.Text()); txt != "" {
				name = txt
			}
		})
		if name != "" {
			return name
		}
	}
	name := cleanText(cell.Text())
	name = strings.TrimSpace(strings.TrimPrefix(name, "@"))
	return name
}

func logoURL(cell *goquery.Selection) string {
	return cell.Find("img").First().AttrOr("src", "")
}

// teamRank returns the college poll rank in 1..25, or 0 when unranked.
func teamRank(cell *goquery.Selection) int {
	for _, sel := range rankSelectors {
		if rank := parseRank(cell.Find(sel).First().Text()); rank > 0 {
			return rank
		}
	}
	rank := 0
	cell.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		rank = parseRank(span.Text())
		return rank == 0
	})
	if rank > 0 {
		return rank
	}
	if m := leadRankRegex.FindStringSubmatch(cleanText(cell.Text())); m != nil {
		return parseRank(m[1])
	}
	return 0
}

func parseRank(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < minRank || n > maxRank {
		return 0
	}
	return n
}

func rankedName(rank int, team string) string {
	if rank == 0 {
		return team
	}
	return strconv.Itoa(rank) + " " + team
}

// scanTime finds the first clock token in the row text, then in its
// aria-label. A TBD third cell is kept verbatim.
func scanTime(row, cells *goquery.Selection) string {
	if m := timeTokenRegex.FindString(cleanText(row.Text())); m != "" {
		return strings.ToUpper(m)
	}
	if m := timeTokenRegex.FindString(cleanText(row.AttrOr("aria-label", ""))); m != "" {
		return strings.ToUpper(m)
	}
	if cells.Length() > 2 {
		if txt := cleanText(cells.Eq(2).Text()); strings.EqualFold(txt, "TBD") {
			return "TBD"
		}
	}
	return ledger.NotAvailable
}

// parseOdds reads the spread and total anchors of a row.
func parseOdds(row *goquery.Selection) (line, total string) {
	line, total = ledger.NotAvailable, ledger.NotAvailable
	row.Find("a").Each(func(_ int, a *goquery.Selection) {
		raw := strings.ReplaceAll(cleanText(a.Text()), "\u00bd", ".5")
		lower := strings.ToLower(raw)
		switch {
		case strings.HasPrefix(lower, "line:"), strings.HasPrefix(lower, "spread:"):
			line = afterColon(raw)
		case strings.HasPrefix(lower, "o/u:"), strings.HasPrefix(lower, "total:"):
			total = afterColon(raw)
		case bareLineRegex.MatchString(raw):
			line = raw
		}
	})
	if line == "" {
		line = ledger.NotAvailable
	}
	if total == "" {
		total = ledger.NotAvailable
	}
	return line, total
}

// splitLine turns "BUF -6.5" into per-team cells. An unknown abbreviation on
// either side leaves both cells N/A.
func splitLine(line, awayAbbr, homeAbbr string, college bool) (awayLine, homeLine string) {
	awayLine, homeLine = ledger.NotAvailable, ledger.NotAvailable
	if line == ledger.NotAvailable || awayAbbr == "" || homeAbbr == "" {
		return awayLine, homeLine
	}
	m := bareLineRegex.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return awayLine, homeLine
	}
	value, err := strconv.ParseFloat(strings.TrimLeft(m[2], "+-"), 64)
	if err != nil {
		return awayLine, homeLine
	}
	spread := strconv.FormatFloat(math.Round(value*10)/10, 'f', -1, 64)

	switch favorite := strings.ToUpper(m[1]); favorite {
	case awayAbbr:
		return awayAbbr + " -" + spread, homeAbbr + " +" + spread
	case homeAbbr:
		return awayAbbr + " +" + spread, homeAbbr + " -" + spread
	}
	if college {
		return unmatchedFavorite, unmatchedFavorite
	}
	return awayLine, homeLine
}

func gameID(row *goquery.Selection) string {
	var id string
	row.Find("a[href*='gameId']").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if m := gameIDRegex.FindStringSubmatch(a.AttrOr("href", "")); m != nil {
			id = m[1]
			return false
		}
		return true
	})
	return id
}

func afterColon(raw string) string {
	_, value, _ := strings.Cut(raw, ":")
	return strings.TrimSpace(value)
}

func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(spaceRegex.ReplaceAllString(s, " "))
}
