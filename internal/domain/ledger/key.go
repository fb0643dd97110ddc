package ledger

import (
	"regexp"
	"strings"
	"time"
)

var (
	leadingRankRegex = regexp.MustCompile(`^\d{1,2}\s+`)
	whitespaceRegex  = regexp.MustCompile(`\s+`)
)

// NormalizeTeam strips a leading poll rank ("12 Oregon") and folds case and spacing.
func NormalizeTeam(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\u00a0", " "))
	name = strings.TrimSpace(leadingRankRegex.ReplaceAllString(name, ""))
	return strings.ToUpper(whitespaceRegex.ReplaceAllString(name, " "))
}

// GameKey resolves the primary identity of a fixture. An external event id wins; a
// known kickoff keys by calendar day; otherwise the week tag keeps TBD games stable.
func GameKey(eventID string, kickoff *time.Time, weekTag, away, home string) string {
	if id := strings.TrimSpace(eventID); id != "" {
		return id
	}
	prefix := weekTag
	if kickoff != nil {
		prefix = kickoff.Format("2006-01-02")
	}
	return prefix + "|" + NormalizeTeam(away) + "|" + NormalizeTeam(home)
}

// SecondaryKey matches persisted rows whose kickoff knowledge changed between runs.
func SecondaryKey(weekTag, away, home string) string {
	return strings.TrimSpace(weekTag) + "\x1f" + NormalizeTeam(away) + "\x1f" + NormalizeTeam(home)
}
