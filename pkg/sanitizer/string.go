package sanitizer

import (
	"regexp"
	"strings"
	"unicode"
)

var reMultiSlash = regexp.MustCompile(`/+`)

// TrimAndNormalize trims s and collapses inner whitespace runs to one space.
func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
			continue
		}
		result.WriteRune(r)
		lastWasSpace = false
	}
	return result.String()
}

func TrimString(s string) string {
	return strings.TrimSpace(s)
}

// NormalizeName is used for practitioner, exception and rule labels.
func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}

// NormalizeText keeps line breaks in notes and reasons but trims each line.
func NormalizeText(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.Join(lines, "\n")
}

// NormalizeTimeZone strips whitespace and duplicate slashes from an IANA
// identifier. "europe//Brussels " stays case-sensitive: "europe/Brussels".
func NormalizeTimeZone(tz string) string {
	tz = strings.TrimSpace(tz)
	tz = reMultiSlash.ReplaceAllString(tz, "/")
	return strings.Trim(tz, "/")
}
