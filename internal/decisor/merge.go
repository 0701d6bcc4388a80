package decisor

import (
	"strings"
	"time"

	"github.com/theneilagencia/glimora-sub000/internal/identity"
	"github.com/theneilagencia/glimora-sub000/internal/model"
	"github.com/theneilagencia/glimora-sub000/internal/scoring"
)

// Candidate is a scraped employee reduced to the fields a decisor stores.
// Empty strings and a nil tenure mean the scrape did not provide a value.
type Candidate struct {
	NormalizedURL   string
	FirstName       string
	LastName        string
	Title           string
	AvatarURL       string
	Location        string
	TenureMonths    *int
	ProfileComplete bool
}

// NewCandidate builds a Candidate from a scraped record and its parsed
// score input. Explicit first/last names win over the full name.
func NewCandidate(emp model.EmployeeRecord, in scoring.ScoreInput) Candidate {
	c := Candidate{
		NormalizedURL:   identity.NormalizeLinkedInURL(emp.ProfileURL),
		Title:           strings.TrimSpace(emp.Title),
		AvatarURL:       strings.TrimSpace(emp.AvatarURL),
		Location:        strings.TrimSpace(emp.Location),
		TenureMonths:    in.TenureMonths,
		ProfileComplete: in.ProfileComplete,
	}
	switch {
	case strings.TrimSpace(emp.FirstName) != "":
		c.FirstName = strings.TrimSpace(emp.FirstName)
		c.LastName = strings.TrimSpace(emp.LastName)
	case strings.TrimSpace(emp.FullName) != "":
		n := identity.ParseFullName(emp.FullName)
		c.FirstName, c.LastName = n.FirstName, n.LastName
	}
	return c
}

// NewDecisor returns the insert for a candidate seen for the first time.
func (c Candidate) NewDecisor(accountID string, score scoring.ScoreResult, now time.Time) model.NewDecisor {
	first := c.FirstName
	if first == "" {
		first = identity.UnknownFirstName
	}
	return model.NewDecisor{
		AccountID:       accountID,
		FirstName:       first,
		LastName:        c.LastName,
		Title:           c.Title,
		LinkedInURL:     c.NormalizedURL,
		AvatarURL:       c.AvatarURL,
		Location:        c.Location,
		TenureMonths:    c.TenureMonths,
		DecisorScore:    score.Score,
		DecisorLabel:    score.Label,
		ProfileComplete: c.ProfileComplete,
		ScrapedAt:       now,
	}
}

// MergeUpdate computes the columns a re-sync writes to an existing decisor.
// Identity fields take the incoming value when present and keep the stored
// one otherwise. Completeness and scrape time are always written. Score and
// label are only written when no seller feedback exists.
func MergeUpdate(existing model.Decisor, incoming Candidate, score scoring.ScoreResult, now time.Time) model.DecisorUpdate {
	u := model.DecisorUpdate{
		FirstName:       prefer(incoming.FirstName, existing.FirstName),
		LastName:        prefer(incoming.LastName, existing.LastName),
		Title:           prefer(incoming.Title, existing.Title),
		AvatarURL:       prefer(incoming.AvatarURL, existing.AvatarURL),
		Location:        prefer(incoming.Location, existing.Location),
		TenureMonths:    existing.TenureMonths,
		ProfileComplete: incoming.ProfileComplete,
		ScrapedAt:       now,
	}
	if incoming.TenureMonths != nil {
		u.TenureMonths = incoming.TenureMonths
	}
	if !existing.HasFeedback() {
		s, l := score.Score, score.Label
		u.DecisorScore = &s
		u.DecisorLabel = &l
	}
	return u
}

func prefer(incoming, existing string) string {
	if incoming != "" {
		return incoming
	}
	return existing
}
