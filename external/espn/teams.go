package espn

import (
	"regexp"
	"sort"
	"strings"
)

// nflTeams maps the city names ESPN prints to the abbreviations it uses in odds.
// Longer names come first so "Los Angeles Rams" wins over a shorter prefix.
var nflTeams = []struct {
	name string
	abbr string
}{
	{"Los Angeles Chargers", "LAC"}, {"Los Angeles Rams", "LAR"},
	{"New York Giants", "NYG"}, {"New York Jets", "NYJ"},
	{"Kansas City", "KC"}, {"Green Bay", "GB"}, {"Las Vegas", "LV"},
	{"New England", "NE"}, {"New Orleans", "NO"}, {"San Francisco", "SF"},
	{"Tampa Bay", "TB"}, {"Indianapolis", "IND"}, {"Jacksonville", "JAX"},
	{"Philadelphia", "PHI"}, {"Pittsburgh", "PIT"}, {"Washington", "WSH"},
	{"Cincinnati", "CIN"}, {"Cleveland", "CLE"}, {"Minnesota", "MIN"},
	{"Tennessee", "TEN"}, {"Baltimore", "BAL"}, {"Carolina", "CAR"},
	{"Arizona", "ARI"}, {"Atlanta", "ATL"}, {"Buffalo", "BUF"},
	{"Chicago", "CHI"}, {"Houston", "HOU"}, {"Seattle", "SEA"},
	{"Dallas", "DAL"}, {"Denver", "DEN"}, {"Detroit", "DET"},
	{"Miami", "MIA"},
}

// Logo hints separate the two New York and two Los Angeles clubs, whose short
// schedule names are identical.
var nflLogoHints = []string{"nyg", "nyj", "lar", "lac"}

var nflLogoURLs = map[string]string{
	"ARI": "https://drive.google.com/uc?export=view&id=1G8grwM4nTcvbANf_kGr-q3MLn6_OkxnD",
	"ATL": "https://drive.google.com/uc?export=view&id=1kSlPBJm5Xr5FfkyF9MsPP0ILMr0ScVxL",
	"BAL": "https://drive.google.com/uc?export=view&id=1KsRbiCLzrRCnPUMmbdwcIjseIg0riYga",
	"BUF": "https://drive.google.com/uc?export=view&id=1EXkNcY92v2EKfaLLXxcGSX1BPGzPBh5w",
	"CAR": "https://drive.google.com/uc?export=view&id=1eOet_WJPQOCMlKkdQq63o_TrHX9pyNHz",
	"CHI": "https://drive.google.com/uc?export=view&id=1oTMQ3Cb5Et1MsYPt_aHuljX3wkriioek",
	"CIN": "https://drive.google.com/uc?export=view&id=1pXBlGEoDjHhzGVIFhECYumTxEJbPZeg2",
	"CLE": "https://drive.google.com/uc?export=view&id=1M-W_fLSAcGMLsZnQ4vbVdDp017lYAfQd",
	"DAL": "https://drive.google.com/uc?export=view&id=1Y9igMt8oIzqgDxh6XzI8qREedekcb1dx",
	"DEN": "https://drive.google.com/uc?export=view&id=1e0nvFa5RzHSgk-4HeoIgKCiYc2SEnRj9",
	"DET": "https://drive.google.com/uc?export=view&id=1KV4ou_YQUPTOUaFq9Ds6E65L_KFm3RAt",
	"GB":  "https://drive.google.com/uc?export=view&id=1_hNMK-WHLGsDVNOq3MwfaKj5OAspvCbU",
	"HOU": "https://drive.google.com/uc?export=view&id=1U-1g66IUNBIu3m3YUBawICyGxDKnif-B",
	"IND": "https://drive.google.com/uc?export=view&id=1TR4Yo8dRvuzBimQaFK8oqg4xEbdMF9DT",
	"JAX": "https://drive.google.com/uc?export=view&id=12KHClgM0p39w3K5REl9dEKz8Kll8cOI1",
	"KC":  "https://drive.google.com/uc?export=view&id=1oO5qOWW_O2yUwYV0JOKBABFMtaRD_7kX",
	"LAC": "https://drive.google.com/uc?export=view&id=19NpiFd5ZEE9eP3zqLfESJEjhM-99SMGP",
	"LAR": "https://drive.google.com/uc?export=view&id=1kswDxvmH-uQDXDKrLI9-nDYEqGdq7pIU",
	"LV":  "https://drive.google.com/uc?export=view&id=1Y1a4QzAlc1enj_6EkBWUyKOtRPPGD6i-",
	"MIA": "https://drive.google.com/uc?export=view&id=1MRjwQEftAnevP39H83zHWtvYAxg0hAZ2",
	"MIN": "https://drive.google.com/uc?export=view&id=1F4p_Dkxzb2Z7FmJVkrfXPMhtPebz9xkD",
	"NE":  "https://drive.google.com/uc?export=view&id=1SKVXhYlP7aRHPpl_gaqUwHrlXKItF2RE",
	"NO":  "https://drive.google.com/uc?export=view&id=1o-9zrST5FFng9lnRaVonCQF8l6x-6B2q",
	"NYG": "https://drive.google.com/uc?export=view&id=1Fkq_DkTsyh4-8Qp-VgI1owP8ba4RUs4c",
	"NYJ": "https://drive.google.com/uc?export=view&id=1-XUFsIR6jktnXoEaCBMftirYxyVvO6NM",
	"PHI": "https://drive.google.com/uc?export=view&id=13rDw-O7XjrTnBh9sV8uzAZMsY7_zM6PB",
	"PIT": "https://drive.google.com/uc?export=view&id=1V2h1B1EnDtvgRZ5lmG1PZFQjsdfA6ldg",
	"SEA": "https://drive.google.com/uc?export=view&id=1QPfZ48n-q3XBiXH7Ho1MVIgwofmdiqRb",
	"SF":  "https://drive.google.com/uc?export=view&id=1-on8faSU5D80_lzG_HFJD_BdymbkBvbS",
	"TB":  "https://drive.google.com/uc?export=view&id=1tBdvan59Vm4UUqcEo3aSFNh8xYp5lbjH",
	"TEN": "https://drive.google.com/uc?export=view&id=1QQBOdLz4xme7yo0osa_JveEuInmCDkNE",
	"WSH": "https://drive.google.com/uc?export=view&id=1DBkizXYBC-w7gc1tvf8dBLIcGZuOI3R2",
}

var nonWordRegex = regexp.MustCompile(`[^\w]`)

// TeamDirectory resolves college abbreviations and logos. It is loaded from a
// roster sheet whose column B holds the team name, C the abbreviation and F the
// logo URL.
type TeamDirectory struct {
	abbr  map[string]string
	logos map[string]string
	// names keeps logo keys sorted for the fuzzy lookup.
	names []string
}

// NewTeamDirectory builds a directory from roster rows. Row 0 is a header.
func NewTeamDirectory(rows [][]string) *TeamDirectory {
	d := &TeamDirectory{
		abbr:  make(map[string]string),
		logos: make(map[string]string),
	}
	for i, row := range rows {
		if i == 0 || len(row) < 2 {
			continue
		}
		name := strings.TrimSpace(row[1])
		if name == "" {
			continue
		}
		if len(row) >= 3 {
			if abbr := strings.TrimSpace(row[2]); abbr != "" {
				d.abbr[name] = strings.ToUpper(abbr)
			}
		}
		if len(row) >= 6 {
			if logo := strings.TrimSpace(row[5]); logo != "" {
				d.logos[name] = logo
			}
		}
	}
	d.names = make([]string, 0, len(d.logos))
	for name := range d.logos {
		d.names = append(d.names, name)
	}
	sort.Strings(d.names)
	return d
}

func (d *TeamDirectory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.abbr)
}

func (d *TeamDirectory) Abbreviation(team string) string {
	if d == nil {
		return ""
	}
	return d.abbr[strings.TrimSpace(team)]
}

// LogoURL matches the exact name first, then any roster name containing it
// once punctuation and case are dropped.
func (d *TeamDirectory) LogoURL(team string) string {
	if d == nil {
		return ""
	}
	team = strings.TrimSpace(team)
	if url, ok := d.logos[team]; ok {
		return url
	}
	needle := squash(team)
	if needle == "" {
		return ""
	}
	for _, name := range d.names {
		if strings.Contains(squash(name), needle) {
			return d.logos[name]
		}
	}
	return ""
}

func squash(s string) string {
	return strings.ToLower(nonWordRegex.ReplaceAllString(s, ""))
}

// nflAbbreviation prefers the logo URL hint over the printed city name.
func nflAbbreviation(team, logoURL string) string {
	u := strings.ToLower(logoURL)
	for _, hint := range nflLogoHints {
		if strings.Contains(u, hint) {
			return strings.ToUpper(hint)
		}
	}
	for _, t := range nflTeams {
		if strings.Contains(team, t.name) {
			return t.abbr
		}
	}
	return ""
}

func imageFormula(url string) string {
	if url == "" {
		return ""
	}
	return `=IMAGE("` + url + `", 1)`
}
