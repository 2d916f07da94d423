package epg

import (
	"regexp"
	"strings"

	unorm "golang.org/x/text/unicode/norm"
)

var (
	invalidChars = regexp.MustCompile(`[^a-zà-ÿ0-9\s.\-_]`)
	separators   = regexp.MustCompile(`[\s.\-_]+`)
	onlySep      = regexp.MustCompile(`^[\s.\-_]*$`)
)

// MakeStableID derives a deterministic channel identifier from a display
// name. IDs stay stable across runs so EPG mappings in players survive.
func MakeStableID(name string) string {
	if name == "" {
		return ""
	}

	// NFC before and after lowercasing; case conversion can create new
	// combining sequences.
	s := unorm.NFC.String(name)
	s = strings.ToLower(strings.TrimSpace(s))
	s = unorm.NFC.String(s)

	s = invalidChars.ReplaceAllString(s, "")
	if onlySep.MatchString(s) {
		return ""
	}

	s = separators.ReplaceAllString(s, ".")
	return strings.Trim(s, ".")
}
