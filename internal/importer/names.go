package importer

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	idSeparator   = ":"
	nameSeparator = "|"
)

// RootNames builds the full ID and full name of an entry without a parent.
// The name carries the uppercased ID as its last segment.
func RootNames(localID, localName string) (string, string) {
	upper := cases.Upper(language.Und).String(localID)
	return localID, localName + nameSeparator + upper
}

// ChildNames extends the parent's full ID and full name by one level. A
// local ID that already spells out the parent path is kept as is.
func ChildNames(parentID, parentName, localID, localName string) (string, string) {
	fullID := parentID + idSeparator + localID
	if strings.HasPrefix(localID, parentID+idSeparator) {
		fullID = localID
	}
	return fullID, parentName + nameSeparator + localName
}

func SegmentCount(fullName string) int {
	return strings.Count(fullName, nameSeparator) + 1
}

// CountryID is the first colon segment of a jurisdiction ID.
func CountryID(jurisdictionID string) string {
	country, _, _ := strings.Cut(jurisdictionID, idSeparator)
	return country
}

var (
	leadingPlaceholder  = regexp.MustCompile(`^%s\s*`)
	trailingPlaceholder = regexp.MustCompile(`\s*%s$`)
)

// CourtName drops a "%s" placeholder at either end of a court name.
func CourtName(name string) string {
	name = leadingPlaceholder.ReplaceAllString(name, "")
	return trailingPlaceholder.ReplaceAllString(name, "")
}
