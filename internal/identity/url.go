// Package identity canonicalizes LinkedIn profile URLs and person names so
// scraped employees can be matched to stored decisors.
package identity

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	schemeRe        = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*://`)
	leadingSchemeRe = regexp.MustCompile(`^(?:[a-zA-Z][a-zA-Z0-9+.\-]*://)+`)
	queryRe         = regexp.MustCompile(`\?.*$`)
	fragmentRe      = regexp.MustCompile(`#.*$`)
)

// profilePaths are the LinkedIn path prefixes that identify a person.
var profilePaths = []string{"linkedin.com/in/", "linkedin.com/pub/"}

// maxNormalizePasses bounds the fixed-point loop in NormalizeLinkedInURL.
const maxNormalizePasses = 8

// NormalizeLinkedInURL returns the canonical identity key for a profile URL.
// It never fails: input that net/url rejects goes through a regex fallback.
// The result is stable under repeated normalization.
func NormalizeLinkedInURL(raw string) string {
	s := normalizeOnce(raw)
	for i := 1; i < maxNormalizePasses; i++ {
		next := normalizeOnce(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

// normalizeOnce is a single canonicalization pass. Escaping done by
// url.String can change what the next pass sees, so callers iterate it.
func normalizeOnce(raw string) string {
	s := strings.ToValidUTF8(strings.TrimSpace(raw), "\uFFFD")
	s = queryRe.ReplaceAllString(s, "")
	s = fragmentRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	withScheme := s
	if !schemeRe.MatchString(withScheme) {
		withScheme = "https://" + withScheme
	}

	u, err := url.Parse(withScheme)
	if err != nil || u.Host == "" {
		return fallbackNormalize(s)
	}

	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = strings.TrimRight(u.RawPath, "/")
	if strings.EqualFold(u.Scheme, "http") {
		u.Scheme = "https"
	}

	return u.String()
}

// fallbackNormalize expects query and fragment to be stripped already.
func fallbackNormalize(s string) string {
	s = leadingSchemeRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(strings.TrimRight(s, "/"))
	return "https://" + s
}

// IsProfileURL reports whether raw points at a LinkedIn person profile.
func IsProfileURL(raw string) bool {
	lower := strings.ToLower(raw)
	for _, p := range profilePaths {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
