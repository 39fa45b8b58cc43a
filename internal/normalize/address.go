package normalize

import (
	"regexp"
	"strings"
)

// abbrToState maps lowercase state abbreviations to lowercase full names.
var abbrToState = map[string]string{
	"al": "alabama", "ak": "alaska", "az": "arizona", "ar": "arkansas",
	"ca": "california", "co": "colorado", "ct": "connecticut", "de": "delaware",
	"fl": "florida", "ga": "georgia", "hi": "hawaii", "id": "idaho",
	"il": "illinois", "in": "indiana", "ia": "iowa", "ks": "kansas",
	"ky": "kentucky", "la": "louisiana", "me": "maine", "md": "maryland",
	"ma": "massachusetts", "mi": "michigan", "mn": "minnesota", "ms": "mississippi",
	"mo": "missouri", "mt": "montana", "ne": "nebraska", "nv": "nevada",
	"nh": "new hampshire", "nj": "new jersey", "nm": "new mexico", "ny": "new york",
	"nc": "north carolina", "nd": "north dakota", "oh": "ohio", "ok": "oklahoma",
	"or": "oregon", "pa": "pennsylvania", "ri": "rhode island", "sc": "south carolina",
	"sd": "south dakota", "tn": "tennessee", "tx": "texas", "ut": "utah",
	"vt": "vermont", "va": "virginia", "wa": "washington", "wv": "west virginia",
	"wi": "wisconsin", "wy": "wyoming", "dc": "district of columbia",
}

// stateToAbbr maps lowercase full names to lowercase abbreviations.
var stateToAbbr = func() map[string]string {
	m := make(map[string]string, len(abbrToState))
	for abbr, full := range abbrToState {
		m[full] = abbr
	}
	return m
}()

// streetAbbrs maps common street-suffix abbreviations to their full form.
var streetAbbrs = map[string]string{
	"st": "street", "ave": "avenue", "blvd": "boulevard", "rd": "road",
	"dr": "drive", "ln": "lane", "ct": "court", "pl": "place",
	"hwy": "highway", "pkwy": "parkway", "cir": "circle", "ste": "suite",
	"n": "north", "s": "south", "e": "east", "w": "west",
}

var zipRe = regexp.MustCompile(`^\s*(\d{5})(?:-\d{4})?\s*$`)

// State canonicalizes a state to its two-letter abbreviation, lower case.
// Unknown inputs pass through lowercased.
func State(raw string) string {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if _, ok := abbrToState[lower]; ok {
		return lower
	}
	if abbr, ok := stateToAbbr[lower]; ok {
		return abbr
	}
	return lower
}

// Zip extracts the 5-digit zip from a ZIP or ZIP+4 string, empty if absent.
func Zip(raw string) string {
	m := zipRe.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	return m[1]
}

// Street canonicalizes a street line: punctuation stripped, suffix
// abbreviations expanded, lower case.
func Street(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = stripPunct(s)
	fields := strings.Fields(s)
	for i, f := range fields {
		if full, ok := streetAbbrs[f]; ok {
			fields[i] = full
		}
	}
	return strings.Join(fields, " ")
}

// City lowercases and collapses whitespace in a city name.
func City(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = stripPunct(s)
	return strings.Join(strings.Fields(s), " ")
}
