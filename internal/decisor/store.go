package decisor

import (
	"context"

	"github.com/theneilagencia/glimora-sub000/internal/model"
)

// AccountFilter scopes ListAccountsWithLinkedInURL. Exactly one field is
// expected to be set.
type AccountFilter struct {
	OrganizationID string
	AccountID      string
}

// Store is the persistence interface of the decisor pipeline. Lookups that
// find nothing return (nil, nil).
type Store interface {
	// Accounts
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	ListAccountsWithLinkedInURL(ctx context.Context, filter AccountFilter) ([]model.Account, error)
	CreateAccount(ctx context.Context, acct model.Account) (*model.Account, error)

	// Decisors
	FindDecisorByNormalizedURL(ctx context.Context, accountID, normalizedURL string) (*model.Decisor, error)
	CreateDecisor(ctx context.Context, d model.NewDecisor) (*model.Decisor, error)
	UpdateDecisor(ctx context.Context, id string, u model.DecisorUpdate) (*model.Decisor, error)
	FindDecisorsForDeletion(ctx context.Context, accountID string, excludeURLs []string) ([]model.Decisor, error)
	FindDecisorsWithInvalidURL(ctx context.Context, accountID string) ([]model.Decisor, error)
	DeleteDecisors(ctx context.Context, ids []string) (int, error)
	ListDecisors(ctx context.Context, accountID string) ([]model.Decisor, error)

	// SetSellerFeedback is the reviewer channel. It writes only the feedback
	// and notes columns.
	SetSellerFeedback(ctx context.Context, id string, feedback model.SellerFeedback, notes string) (*model.Decisor, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// decisorColumns is the select list shared by every decisor query.
const decisorColumns = `id, account_id, first_name, last_name, title, linkedin_url, avatar_url, location,
	tenure_months, decisor_score, decisor_label, profile_complete, scraped_at,
	seller_feedback, feedback_notes, created_at, updated_at`

// rowScanner is satisfied by pgx.Row, pgx.Rows and *sql.Row(s).
type rowScanner interface {
	Scan(dest ...any) error
}

// decisorRow holds the nullable scan targets of one decisor row.
type decisorRow struct {
	d        model.Decisor
	label    string
	feedback *string
}

func (r *decisorRow) targets() []any {
	return []any{
		&r.d.ID, &r.d.AccountID, &r.d.FirstName, &r.d.LastName, &r.d.Title,
		&r.d.LinkedInURL, &r.d.AvatarURL, &r.d.Location,
		&r.d.TenureMonths, &r.d.DecisorScore, &r.label, &r.d.ProfileComplete, &r.d.ScrapedAt,
		&r.feedback, &r.d.FeedbackNotes, &r.d.CreatedAt, &r.d.UpdatedAt,
	}
}

func (r *decisorRow) decisor() model.Decisor {
	d := r.d
	d.DecisorLabel = model.DecisorLabel(r.label)
	if r.feedback != nil {
		f := model.SellerFeedback(*r.feedback)
		d.SellerFeedback = &f
	}
	return d
}

func scanDecisor(s rowScanner) (model.Decisor, error) {
	var r decisorRow
	if err := s.Scan(r.targets()...); err != nil {
		return model.Decisor{}, err
	}
	return r.decisor(), nil
}

func feedbackArg(f *model.SellerFeedback) *string {
	if f == nil {
		return nil
	}
	s := string(*f)
	return &s
}

func labelArg(l *model.DecisorLabel) *string {
	if l == nil {
		return nil
	}
	s := string(*l)
	return &s
}
