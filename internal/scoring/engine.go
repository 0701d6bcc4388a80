// Package scoring computes the heuristic decision-maker score of a scraped
// employee profile.
package scoring

import (
	"time"

	"github.com/theneilagencia/glimora-sub000/internal/model"
)

// Component maxima. They sum to 100.
const (
	titlePoints       = 25
	departmentPoints  = 20
	tenurePoints      = 10
	activityPoints    = 10
	ceoPoints         = 10
	brandPoints       = 5
	interactionCap    = 15
	profilePoints     = 10
	influencePerMatch = 2
	influenceCap      = 10

	minTenureMonths = 12
	activityWindow  = 30 * 24 * time.Hour

	likelyDecisorThreshold       = 80
	potentialInfluencerThreshold = 60
)

// ScoreInput is the set of attributes the engine scores.
type ScoreInput struct {
	Title               string     `json:"title"`
	Department          string     `json:"department"`
	TenureMonths        *int       `json:"tenure_months,omitempty"`
	LastActivityAt      *time.Time `json:"last_activity_at,omitempty"`
	InteractedWithCEO   bool       `json:"interacted_with_ceo"`
	InteractedWithBrand bool       `json:"interacted_with_brand"`
	ProfileComplete     bool       `json:"profile_complete"`
	About               string     `json:"about,omitempty"`
}

// Breakdown exposes each component's contribution.
type Breakdown struct {
	Title       int `json:"title"`
	Department  int `json:"department"`
	Tenure      int `json:"tenure"`
	Activity    int `json:"activity"`
	Interaction int `json:"interaction"`
	Profile     int `json:"profile"`
	Influence   int `json:"influence"`
}

// Sum returns the unclamped total of all components.
func (b Breakdown) Sum() int {
	return b.Title + b.Department + b.Tenure + b.Activity + b.Interaction + b.Profile + b.Influence
}

// ScoreResult is the engine output.
type ScoreResult struct {
	Score     int                `json:"score"`
	Label     model.DecisorLabel `json:"label"`
	Breakdown Breakdown          `json:"breakdown"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used by the activity component.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.nowFunc = now
	}
}

// Engine scores profiles against a fixed keyword configuration. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	kw      Keywords
	nowFunc func() time.Time
}

// NewEngine creates an Engine. Keywords are lower-cased once here.
func NewEngine(kw Keywords, opts ...Option) *Engine {
	e := &Engine{
		kw:      kw.lower(),
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Calculate scores in. For a fixed clock the result depends only on in.
func (e *Engine) Calculate(in ScoreInput) ScoreResult {
	title := lowerText(in.Title)
	deptText := lowerText(in.Department + " " + in.Title)
	influenceText := lowerText(in.About + " " + in.Title)

	var b Breakdown
	if containsAny(title, e.kw.Title) {
		b.Title = titlePoints
	}
	if containsAny(deptText, e.kw.Department) {
		b.Department = departmentPoints
	}
	if in.TenureMonths != nil && *in.TenureMonths >= minTenureMonths {
		b.Tenure = tenurePoints
	}
	if in.LastActivityAt != nil && e.nowFunc().Sub(*in.LastActivityAt) <= activityWindow {
		b.Activity = activityPoints
	}
	b.Interaction = interactionScore(in)
	if in.ProfileComplete {
		b.Profile = profilePoints
	}
	b.Influence = min(countMatches(influenceText, e.kw.Influence)*influencePerMatch, influenceCap)

	score := max(0, min(b.Sum(), 100))
	return ScoreResult{
		Score:     score,
		Label:     LabelFor(score),
		Breakdown: b,
	}
}

func interactionScore(in ScoreInput) int {
	points := 0
	if in.InteractedWithCEO {
		points += ceoPoints
	}
	if in.InteractedWithBrand {
		points += brandPoints
	}
	return min(points, interactionCap)
}

// LabelFor maps a score to its tier. Thresholds are inclusive lower bounds.
func LabelFor(score int) model.DecisorLabel {
	switch {
	case score >= likelyDecisorThreshold:
		return model.LabelLikelyDecisor
	case score >= potentialInfluencerThreshold:
		return model.LabelPotentialInfluencer
	default:
		return model.LabelIrrelevantContact
	}
}
