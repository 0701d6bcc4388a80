package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// DecisorLabel is the categorical tier assigned by the scoring engine.
type DecisorLabel string

const (
	LabelLikelyDecisor       DecisorLabel = "LIKELY_DECISOR"
	LabelPotentialInfluencer DecisorLabel = "POTENTIAL_INFLUENCER"
	LabelIrrelevantContact   DecisorLabel = "IRRELEVANT_CONTACT"
)

// SellerFeedback is a human judgment on a decisor. Once set, automated
// sync stops touching the decisor's score and label.
type SellerFeedback string

const (
	FeedbackConfirmedDecisor SellerFeedback = "CONFIRMED_DECISOR"
	FeedbackNotDecisor       SellerFeedback = "NOT_DECISOR"
	FeedbackNeedsReview      SellerFeedback = "NEEDS_REVIEW"
)

// ParseSellerFeedback validates a raw feedback value.
func ParseSellerFeedback(s string) (SellerFeedback, error) {
	switch f := SellerFeedback(s); f {
	case FeedbackConfirmedDecisor, FeedbackNotDecisor, FeedbackNeedsReview:
		return f, nil
	default:
		return "", eris.Errorf("model: invalid seller feedback %q", s)
	}
}

// Decisor is a person at an account who may influence a purchase. The
// normalized LinkedInURL is its stable identity within the account.
type Decisor struct {
	ID              string          `json:"id"`
	AccountID       string          `json:"account_id"`
	FirstName       string          `json:"first_name"`
	LastName        string          `json:"last_name"`
	Title           string          `json:"title,omitempty"`
	LinkedInURL     *string         `json:"linkedin_url,omitempty"`
	AvatarURL       string          `json:"avatar_url,omitempty"`
	Location        string          `json:"location,omitempty"`
	TenureMonths    *int            `json:"tenure_months,omitempty"`
	DecisorScore    int             `json:"decisor_score"`
	DecisorLabel    DecisorLabel    `json:"decisor_label"`
	ProfileComplete bool            `json:"profile_complete"`
	ScrapedAt       *time.Time      `json:"scraped_at,omitempty"`
	SellerFeedback  *SellerFeedback `json:"seller_feedback,omitempty"`
	FeedbackNotes   string          `json:"feedback_notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// HasFeedback reports whether a reviewer has judged this decisor.
func (d Decisor) HasFeedback() bool {
	return d.SellerFeedback != nil
}

// ProfileURL returns the stored LinkedIn URL, or "" when unset.
func (d Decisor) ProfileURL() string {
	if d.LinkedInURL == nil {
		return ""
	}
	return *d.LinkedInURL
}

// NewDecisor holds the fields written when a scraped employee is seen for
// the first time.
type NewDecisor struct {
	AccountID       string
	FirstName       string
	LastName        string
	Title           string
	LinkedInURL     string
	AvatarURL       string
	Location        string
	TenureMonths    *int
	DecisorScore    int
	DecisorLabel    DecisorLabel
	ProfileComplete bool
	ScrapedAt       time.Time
}

// DecisorUpdate is the set of columns a re-sync writes to an existing
// decisor. A nil score or label means the column is left untouched.
type DecisorUpdate struct {
	FirstName       string
	LastName        string
	Title           string
	AvatarURL       string
	Location        string
	TenureMonths    *int
	ProfileComplete bool
	ScrapedAt       time.Time
	DecisorScore    *int
	DecisorLabel    *DecisorLabel
}

// Apply copies the update onto d, honoring nil score and label.
func (u DecisorUpdate) Apply(d *Decisor) {
	d.FirstName = u.FirstName
	d.LastName = u.LastName
	d.Title = u.Title
	d.AvatarURL = u.AvatarURL
	d.Location = u.Location
	d.TenureMonths = u.TenureMonths
	d.ProfileComplete = u.ProfileComplete
	scraped := u.ScrapedAt
	d.ScrapedAt = &scraped
	if u.DecisorScore != nil {
		d.DecisorScore = *u.DecisorScore
	}
	if u.DecisorLabel != nil {
		d.DecisorLabel = *u.DecisorLabel
	}
}
