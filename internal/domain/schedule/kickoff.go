package schedule

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// rollForwardAfter is how far in the past a parsed kickoff may sit before it is
// assumed to belong to next year's calendar.
const rollForwardAfter = 180

var (
	monthDayRegex   = regexp.MustCompile(`([A-Za-z]+)\s+(\d{1,2})`)
	clockRegex      = regexp.MustCompile(`(?i)(\d{1,2}):(\d{2})\s*(AM|PM)`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

var unknownTimes = map[string]struct{}{
	"TBD":       {},
	"N/A":       {},
	"-":         {},
	"POSTPONED": {},
}

var months = map[string]time.Month{}

func init() {
	for m := time.January; m <= time.December; m++ {
		name := strings.ToLower(m.String())
		months[name] = m
		months[name[:3]] = m
	}
	months["sept"] = time.September
}

// ParseKickoff turns scraped text like "Thursday, September 18" / "8:15 PM" into a
// kickoff in now's location. The second return is false when the kickoff is unknown.
func ParseKickoff(dateText, timeText string, now time.Time) (time.Time, bool) {
	dateText = strings.TrimSpace(dateText)
	timeText = normalizeClock(timeText)
	if dateText == "" || timeText == "" {
		return time.Time{}, false
	}
	if _, ok := unknownTimes[timeText]; ok {
		return time.Time{}, false
	}

	md := monthDayRegex.FindStringSubmatch(strings.ReplaceAll(dateText, "\u00a0", " "))
	if md == nil {
		return time.Time{}, false
	}
	month, ok := months[strings.ToLower(md[1])]
	if !ok {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(md[2])

	clock := clockRegex.FindStringSubmatch(timeText)
	if clock == nil {
		return time.Time{}, false
	}
	hour, _ := strconv.Atoi(clock[1])
	minute, _ := strconv.Atoi(clock[2])
	if hour < 1 || hour > 12 || minute > 59 {
		return time.Time{}, false
	}
	hour %= 12
	if clock[3] == "PM" {
		hour += 12
	}

	year := now.Year()
	if now.Month() >= time.November && month <= time.February {
		year++
	}

	kickoff, ok := buildDate(year, month, day, hour, minute, now.Location())
	if !ok {
		return time.Time{}, false
	}
	if int(now.Sub(kickoff)/(24*time.Hour)) > rollForwardAfter {
		kickoff, ok = buildDate(year+1, month, day, hour, minute, now.Location())
		if !ok {
			return time.Time{}, false
		}
	}
	return kickoff, true
}

func normalizeClock(v string) string {
	v = strings.ToUpper(strings.ReplaceAll(v, "\u00a0", " "))
	v = strings.TrimSpace(whitespaceRegex.ReplaceAllString(v, " "))
	v = strings.ReplaceAll(v, "A M", "AM")
	return strings.ReplaceAll(v, "P M", "PM")
}

// buildDate rejects dates time.Date would normalize, e.g. February 30.
func buildDate(year int, month time.Month, day, hour, minute int, loc *time.Location) (time.Time, bool) {
	t := time.Date(year, month, day, hour, minute, 0, 0, loc)
	if t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}
