package identity

import "strings"

// UnknownFirstName is used when a scraped record carries no name at all.
const UnknownFirstName = "Unknown"

// Name is a person name split into the two stored parts. LastName may be
// empty.
type Name struct {
	FirstName string
	LastName  string
}

// ParseFullName splits a full name on whitespace. The first token is the
// first name and the remaining tokens, joined by single spaces, form the
// last name.
func ParseFullName(full string) Name {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return Name{FirstName: UnknownFirstName}
	case 1:
		return Name{FirstName: parts[0]}
	default:
		return Name{FirstName: parts[0], LastName: strings.Join(parts[1:], " ")}
	}
}
