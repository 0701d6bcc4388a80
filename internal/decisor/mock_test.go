package decisor

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/theneilagencia/glimora-sub000/internal/model"
)

// mockStore implements Store in memory for testing.
type mockStore struct {
	accounts []model.Account
	decisors []model.Decisor
	nextID   int

	findErr   error
	createErr error
	deleteErr error

	createCalls int
	updateCalls int
	deleteCalls [][]string
}

func (m *mockStore) GetAccount(_ context.Context, id string) (*model.Account, error) {
	for _, a := range m.accounts {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, nil
}

func (m *mockStore) ListAccountsWithLinkedInURL(_ context.Context, f AccountFilter) ([]model.Account, error) {
	var out []model.Account
	for _, a := range m.accounts {
		if !a.HasLinkedInURL() {
			continue
		}
		if (f.AccountID != "" && a.ID == f.AccountID) || (f.OrganizationID != "" && a.OrganizationID == f.OrganizationID) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockStore) CreateAccount(_ context.Context, a model.Account) (*model.Account, error) {
	m.accounts = append(m.accounts, a)
	return &a, nil
}

func (m *mockStore) FindDecisorByNormalizedURL(_ context.Context, accountID, url string) (*model.Decisor, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, d := range m.decisors {
		if d.AccountID == accountID && d.ProfileURL() == url {
			return &d, nil
		}
	}
	return nil, nil
}

func (m *mockStore) CreateDecisor(_ context.Context, nd model.NewDecisor) (*model.Decisor, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.createCalls++
	m.nextID++
	d := newDecisorRecord(fmt.Sprintf("d-%d", m.nextID), nd, nd.ScrapedAt)
	m.decisors = append(m.decisors, *d)
	return d, nil
}

func (m *mockStore) UpdateDecisor(_ context.Context, id string, u model.DecisorUpdate) (*model.Decisor, error) {
	m.updateCalls++
	for i := range m.decisors {
		if m.decisors[i].ID != id {
			continue
		}
		if m.decisors[i].HasFeedback() {
			u.DecisorScore, u.DecisorLabel = nil, nil
		}
		u.Apply(&m.decisors[i])
		d := m.decisors[i]
		return &d, nil
	}
	return nil, fmt.Errorf("decisor not found: %s", id)
}

func (m *mockStore) FindDecisorsForDeletion(_ context.Context, accountID string, exclude []string) ([]model.Decisor, error) {
	var out []model.Decisor
	for _, d := range m.decisors {
		if d.AccountID != accountID || d.HasFeedback() || d.LinkedInURL == nil {
			continue
		}
		if !slices.Contains(exclude, *d.LinkedInURL) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockStore) FindDecisorsWithInvalidURL(_ context.Context, accountID string) ([]model.Decisor, error) {
	var out []model.Decisor
	for _, d := range m.decisors {
		if d.AccountID == accountID && !d.HasFeedback() && d.ProfileURL() == "" {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockStore) DeleteDecisors(_ context.Context, ids []string) (int, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	m.deleteCalls = append(m.deleteCalls, ids)
	kept := m.decisors[:0]
	n := 0
	for _, d := range m.decisors {
		if slices.Contains(ids, d.ID) {
			n++
			continue
		}
		kept = append(kept, d)
	}
	m.decisors = kept
	return n, nil
}

func (m *mockStore) ListDecisors(_ context.Context, accountID string) ([]model.Decisor, error) {
	var out []model.Decisor
	for _, d := range m.decisors {
		if d.AccountID == accountID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockStore) SetSellerFeedback(_ context.Context, id string, f model.SellerFeedback, notes string) (*model.Decisor, error) {
	for i := range m.decisors {
		if m.decisors[i].ID == id {
			m.decisors[i].SellerFeedback = &f
			m.decisors[i].FeedbackNotes = notes
			d := m.decisors[i]
			return &d, nil
		}
	}
	return nil, nil
}

func (m *mockStore) Migrate(context.Context) error { return nil }
func (m *mockStore) Close() error                  { return nil }

// seed adds an existing decisor. An empty url leaves linkedin_url NULL.
func (m *mockStore) seed(accountID, url string, score int, feedback *model.SellerFeedback) *model.Decisor {
	m.nextID++
	d := model.Decisor{
		ID:             fmt.Sprintf("seed-%d", m.nextID),
		AccountID:      accountID,
		FirstName:      "Seed",
		LastName:       fmt.Sprintf("%d", m.nextID),
		Title:          "Old Title",
		AvatarURL:      "https://cdn.example.com/old.png",
		Location:       "Old City",
		DecisorScore:   score,
		DecisorLabel:   model.LabelIrrelevantContact,
		SellerFeedback: feedback,
		CreatedAt:      time.Now(),
	}
	if url != "" {
		u := url
		d.LinkedInURL = &u
	}
	m.decisors = append(m.decisors, d)
	return &m.decisors[len(m.decisors)-1]
}

func (m *mockStore) byURL(url string) *model.Decisor {
	for i := range m.decisors {
		if m.decisors[i].ProfileURL() == url {
			return &m.decisors[i]
		}
	}
	return nil
}

// mockScraper returns canned responses in order, repeating the last one.
type mockScraper struct {
	responses [][]model.EmployeeRecord
	err       error
	calls     []string
	limits    []int
}

func (m *mockScraper) ScrapeCompanyEmployees(_ context.Context, companyURL string, limit int) ([]model.EmployeeRecord, error) {
	m.calls = append(m.calls, companyURL)
	m.limits = append(m.limits, limit)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return nil, nil
	}
	idx := min(len(m.calls)-1, len(m.responses)-1)
	return m.responses[idx], nil
}
