package attendance

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// CleanName trims and NFC-normalizes a zone or location name and collapses
// inner whitespace.
func CleanName(name string) string {
	return strings.Join(strings.Fields(norm.NFC.String(name)), " ")
}

// NameKey is the uniqueness key of a zone name: cleaned and case-folded.
func NameKey(name string) string {
	return norm.NFC.String(cases.Fold().String(CleanName(name)))
}

// SameLocation reports whether two location names denote the same zone.
// Only Unicode form and surrounding whitespace are ignored.
func SameLocation(a, b string) bool {
	return CleanName(a) == CleanName(b)
}
