package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var entitySuffixes = regexp.MustCompile(
	`(?i)\s*,?\s*(LLC|L\.?L\.?C\.?|INC\.?|INCORPORATED|CORP\.?|CORPORATION|` +
		`CO\.?|COMPANY|LTD\.?|LIMITED|L\.?P\.?|LLP|L\.?L\.?P\.?|` +
		`PLLC|P\.?L\.?L\.?C\.?|P\.?C\.?|DBA|D/B/A|TRUCKING\s+CO)\s*\.?\s*$`)

// nameAbbrs expands common business-word abbreviations so "Acme Mfg" and
// "Acme Manufacturing" produce the same canonical name.
var nameAbbrs = map[string]string{
	"mfg":    "manufacturing",
	"mfr":    "manufacturer",
	"mfrs":   "manufacturers",
	"svc":    "service",
	"svcs":   "services",
	"intl":   "international",
	"natl":   "national",
	"bros":   "brothers",
	"equip":  "equipment",
	"whse":   "warehouse",
	"trans":  "transportation",
	"xpress": "express",
}

// Name canonicalizes a company name for identity comparison: accent folding,
// legal-suffix stripping, punctuation removal, whitespace collapse, lower case.
func Name(raw string) string {
	n := strings.TrimSpace(raw)
	n = foldAccents(n)

	// Suffixes can stack ("Acme Holdings LLC Inc"); strip until stable.
	for {
		stripped := entitySuffixes.ReplaceAllString(n, "")
		if stripped == n {
			break
		}
		n = stripped
	}

	n = stripPunct(n)
	n = strings.ToLower(n)

	fields := strings.Fields(n)
	for i, f := range fields {
		if full, ok := nameAbbrs[f]; ok {
			fields[i] = full
		}
	}
	return strings.Join(fields, " ")
}

// foldAccents decomposes to NFKD and drops combining marks, so that
// "Café Logística" compares equal to "Cafe Logistica".
func foldAccents(s string) string {
	decomposed := norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// stripPunct replaces punctuation with spaces, keeping letters and digits.
// Ampersands become "and" so "A&B Freight" matches "A and B Freight".
func stripPunct(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '&':
			b.WriteString(" and ")
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// NameTokens returns the distinct tokens of a normalized name.
func NameTokens(normalizedName string) []string {
	fields := strings.Fields(normalizedName)
	seen := make(map[string]bool, len(fields))
	var out []string
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}
