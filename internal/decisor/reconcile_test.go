package decisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theneilagencia/glimora-sub000/internal/model"
	"github.com/theneilagencia/glimora-sub000/internal/scoring"
)

var testNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func feedbackPtr(f model.SellerFeedback) *model.SellerFeedback { return &f }

func testAccount() model.Account {
	return model.Account{
		ID:             "acct-1",
		OrganizationID: "org-1",
		Name:           "Acme",
		LinkedInURL:    strPtr("https://www.linkedin.com/company/acme"),
	}
}

func newTestReconciler(st Store, sc EmployeeScraper, opts ...Option) *Reconciler {
	engine := scoring.NewEngine(scoring.DefaultKeywords(), scoring.WithClock(func() time.Time { return testNow }))
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return NewReconciler(st, sc, engine, opts...)
}

func employee(name, title, url string) model.EmployeeRecord {
	return model.EmployeeRecord{FullName: name, Title: title, ProfileURL: url}
}

func TestDetectForAccount_NoLinkedInURL(t *testing.T) {
	st := &mockStore{}
	sc := &mockScraper{}
	r := newTestReconciler(st, sc)

	acct := testAccount()
	acct.LinkedInURL = nil

	res, err := r.DetectForAccount(context.Background(), acct)
	require.NoError(t, err)
	assert.Equal(t, &model.ReconcileResult{}, res)
	assert.Empty(t, sc.calls)
}

func TestDetectForAccount_CreatesValidProfiles(t *testing.T) {
	st := &mockStore{}
	sc := &mockScraper{responses: [][]model.EmployeeRecord{{
		{
			FullName:   "Ana Maria Silva",
			Title:      "Diretora Comercial",
			ProfileURL: "https://br.linkedin.com/in/anasilva/?trk=people",
			AvatarURL:  "https://cdn.example.com/ana.png",
			Location:   "São Paulo",
			Tenure:     "3 anos",
		},
		employee("Madonna", "Intern", "linkedin.com/pub/madonna"),
		employee("Company Page", "", "https://www.linkedin.com/company/acme"),
		employee("No URL", "CEO", ""),
	}}}
	r := newTestReconciler(st, sc)

	res, err := r.DetectForAccount(context.Background(), testAccount())
	require.NoError(t, err)
	assert.Equal(t, &model.ReconcileResult{Created: 2}, res)
	assert.Equal(t, []string{"https://www.linkedin.com/company/acme"}, sc.calls)
	assert.Equal(t, []int{DefaultEmployeeLimit}, sc.limits)

	ana := st.byURL("https://br.linkedin.com/in/anasilva")
	require.NotNil(t, ana)
	assert.Equal(t, "Ana", ana.FirstName)
	assert.Equal(t, "Maria Silva", ana.LastName)
	assert.Equal(t, "Diretora Comercial", ana.Title)
	assert.Equal(t, "São Paulo", ana.Location)
	require.NotNil(t, ana.TenureMonths)
	assert.Equal(t, 36, *ana.TenureMonths)
	assert.True(t, ana.ProfileComplete)
	// title 25 + department 20 + tenure 10 + profile 10
	assert.Equal(t, 65, ana.DecisorScore)
	assert.Equal(t, model.LabelPotentialInfluencer, ana.DecisorLabel)
	assert.Nil(t, ana.SellerFeedback)
	require.NotNil(t, ana.ScrapedAt)
	assert.Equal(t, testNow, *ana.ScrapedAt)

	madonna := st.byURL("https://linkedin.com/pub/madonna")
	require.NotNil(t, madonna)
	assert.Equal(t, "Madonna", madonna.FirstName)
	assert.Empty(t, madonna.LastName)
}

func TestDetectForAccount_Idempotent(t *testing.T) {
	scrape := []model.EmployeeRecord{
		employee("Ana Silva", "CEO", "https://www.linkedin.com/in/ana"),
		employee("Bruno Costa", "Gerente de Vendas", "https://www.linkedin.com/in/bruno"),
		employee("Carla Dias", "Analyst", "https://www.linkedin.com/in/carla"),
	}
	st := &mockStore{}
	r := newTestReconciler(st, &mockScraper{responses: [][]model.EmployeeRecord{scrape}})

	first, err := r.DetectForAccount(context.Background(), testAccount())
	require.NoError(t, err)
	assert.Equal(t, &model.ReconcileResult{Created: 3}, first)

	second, err := r.DetectForAccount(context.Background(), testAccount())
	require.NoError(t, err)
	assert.Equal(t, &model.ReconcileResult{Updated: 3}, second)
	assert.Len(t, st.decisors, 3)
}

func TestDetectForAccount_FeedbackProtectsScore(t *testing.T) {
	st := &mockStore{}
	url := "https://www.linkedin.com/in/jdoe"
	st.seed("acct-1", url, 40, feedbackPtr(model.FeedbackConfirmedDecisor))

	sc := &mockScraper{responses: [][]model.EmployeeRecord{{{
		FullName:   "John Doe",
		Title:      "CEO & Head of Sales",
		ProfileURL: url,
		AvatarURL:  "https://cdn.example.com/new.png",
		Location:   "Rio de Janeiro",
		Tenure:     "5 years",
		About:      "Senior executive leader driving growth, innovation and digital strategy",
	}}}}
	r := newTestReconciler(st, sc)

	res, err := r.DetectForAccount(context.Background(), testAccount())
	require.NoError(t, err)
	assert.Equal(t, &model.ReconcileResult{Updated: 1}, res)

	d := st.byURL(url)
	require.NotNil(t, d)
	assert.Equal(t, 40, d.DecisorScore)
	assert.Equal(t, model.LabelIrrelevantContact, d.DecisorLabel)
	assert.Equal(t, "CEO & Head of Sales", d.Title)
	assert.Equal(t, "https://cdn.example.com/new.png", d.AvatarURL)
	assert.Equal(t, "Rio de Janeiro", d.Location)
	require.NotNil(t, d.SellerFeedback)
	assert.Equal(t, model.FeedbackConfirmedDecisor, *d.SellerFeedback)
}

func TestDetectForAccount_RescoresWithoutFeedback(t *testing.T) {
	st := &mockStore{}
	url := "https://www.linkedin.com/in/jdoe"
	st.seed("acct-1", url, 40, nil)

	r := newTestReconciler(st, &mockScraper{responses: [][]model.EmployeeRecord{{
		{FullName: "John Doe", Title: "CEO & Head of Sales", ProfileURL: url, Tenure: "5 years"},
	}}})

	_, err := r.DetectForAccount(context.Background(), testAccount())
	require.NoError(t, err)

	d := st.byURL(url)
	require.NotNil(t, d)
	assert.Equal(t, 65, d.DecisorScore)
	assert.Equal(t, model.LabelPotentialInfluencer, d.DecisorLabel)
}

func TestDetectForAccount_DeletionGuardOnEmptyScrape(t *testing.T) {
	st := &mockStore{}
	for _, u := range []string{"a", "b", "c", "d", "e"} {
		st.seed("acct-1", "https://www.linkedin.com/in/"+u, 50, nil)
	}

	tests := []struct {
		name   string
		scrape []model.EmployeeRecord
	}{
		{"no records", nil},
		{"only unusable records", []model.EmployeeRecord{
			employee("Acme", "", "https://www.linkedin.com/company/acme"),
			employee("Nobody", "CEO", ""),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestReconciler(st, &mockScraper{responses: [][]model.EmployeeRecord{tt.scrape}})

			res, err := r.DetectForAccount(context.Background(), testAccount())
			require.NoError(t, err)
			assert.Equal(t, &model.ReconcileResult{}, res)
			assert.Len(t, st.decisors, 5)
			assert.Empty(t, st.deleteCalls)
		})
	}
}

func TestDetectForAccount_Churn(t *testing.T) {
	st := &mockStore{}
	st.seed("acct-1", "https://www.linkedin.com/in/url-1", 30, nil)

	r := newTestReconciler(st, &mockScraper{responses: [][]model.EmployeeRecord{{
		employee("New Person", "Manager", "https://www.linkedin.com/in/url-2"),
	}}})

	res, err := r.DetectForAccount(context.Background(), testAccount())
	require.NoError(t, err)
	assert.Equal(t, &model.ReconcileResult{Created: 1, Deleted: 1}, res)
	assert.Nil(t, st.byURL("https://www.linkedin.com/in/url-1"))
	assert.NotNil(t, st.byURL("https://www.linkedin.com/in/url-2"))
}

func TestDetectForAccount_StaleWithFeedbackSurvives(t *testing.T) {
	st := &mockStore{}
	st.seed("acct-1", "https://www.linkedin.com/in/kept", 30, feedbackPtr(model.FeedbackNotDecisor))
	st.seed("other-acct", "https://www.linkedin.com/in/elsewhere", 30, nil)

	r := newTestReconciler(st, &mockScraper{responses: [][]model.EmployeeRecord{{
		employee("New Person", "Manager", "https://www.linkedin.com/in/url-2"),
	}}})

	res, err := r.DetectForAccount(context.Background(), testAccount())
	require.NoError(t, err)
	assert.Equal(t, &model.ReconcileResult{Created: 1}, res)
	assert.NotNil(t, st.byURL("https://www.linkedin.com/in/kept"))
	assert.NotNil(t, st.byURL("https://www.linkedin.com/in/elsewhere"))
}

func TestDetectForAccount_InvalidURLCleanupAlwaysRuns(t *testing.T) {
	st := &mockStore{}
	st.seed("acct-1", "https://www.linkedin.com/in/valid", 30, nil)
	st.seed("acct-1", "", 30, nil)
	empty := st.seed("acct-1", "", 30, nil)
	empty.LinkedInURL = strPtr("")
	st.seed("acct-1", "", 30, feedbackPtr(model.FeedbackNeedsReview))

	r := newTestReconciler(st, &mockScraper{})

	res, err := r.DetectForAccount(context.Background(), testAccount())
	require.NoError(t, err)
	assert.Equal(t, &model.ReconcileResult{Deleted: 2}, res)
	assert.Len(t, st.decisors, 2)
	assert.NotNil(t, st.byURL("https://www.linkedin.com/in/valid"))
}

func TestDetectForAccount_MatchesNonCanonicalURL(t *testing.T) {
	st := &mockStore{}
	st.seed("acct-1", "https://www.linkedin.com/in/jdoe", 30, nil)

	r := newTestReconciler(st, &mockScraper{responses: [][]model.EmployeeRecord{{
		employee("John Doe", "Owner", "http://WWW.LinkedIn.com/in/jdoe/?trk=abc#top"),
	}}})

	res, err := r.DetectForAccount(context.Background(), testAccount())
	require.NoError(t, err)
	assert.Equal(t, &model.ReconcileResult{Updated: 1}, res)
	assert.Len(t, st.decisors, 1)
}

func TestDetectForAccount_DuplicateProfilesInOneScrape(t *testing.T) {
	st := &mockStore{}
	r := newTestReconciler(st, &mockScraper{responses: [][]model.EmployeeRecord{{
		employee("John Doe", "Owner", "https://www.linkedin.com/in/jdoe"),
		employee("John Doe", "Owner & Founder", "https://www.linkedin.com/in/jdoe/"),
	}}})

	res, err := r.DetectForAccount(context.Background(), testAccount())
	require.NoError(t, err)
	assert.Equal(t, &model.ReconcileResult{Created: 1, Updated: 1}, res)
	require.Len(t, st.decisors, 1)
	assert.Equal(t, "Owner & Founder", st.decisors[0].Title)
}

func TestDetectForAccount_ScrapeErrorPropagates(t *testing.T) {
	st := &mockStore{}
	st.seed("acct-1", "https://www.linkedin.com/in/a", 30, nil)

	r := newTestReconciler(st, &mockScraper{err: errors.New("actor run failed")})

	res, err := r.DetectForAccount(context.Background(), testAccount())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "actor run failed")
	var scrapeErr *ScrapeError
	assert.ErrorAs(t, err, &scrapeErr)
	assert.Len(t, st.decisors, 1)
	assert.Empty(t, st.deleteCalls)
}

func TestDetectForAccount_StoreErrors(t *testing.T) {
	scrape := [][]model.EmployeeRecord{{employee("Ana", "CEO", "https://www.linkedin.com/in/ana")}}

	t.Run("lookup", func(t *testing.T) {
		st := &mockStore{findErr: errors.New("db down")}
		_, err := newTestReconciler(st, &mockScraper{responses: scrape}).DetectForAccount(context.Background(), testAccount())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "look up")
		var scrapeErr *ScrapeError
		assert.False(t, errors.As(err, &scrapeErr))
	})

	t.Run("create", func(t *testing.T) {
		st := &mockStore{createErr: errors.New("constraint")}
		_, err := newTestReconciler(st, &mockScraper{responses: scrape}).DetectForAccount(context.Background(), testAccount())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "create")
	})

	t.Run("delete", func(t *testing.T) {
		st := &mockStore{deleteErr: errors.New("locked")}
		st.seed("acct-1", "https://www.linkedin.com/in/stale", 10, nil)
		_, err := newTestReconciler(st, &mockScraper{responses: scrape}).DetectForAccount(context.Background(), testAccount())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "delete stale decisors")
	})
}

func TestDetectForAccount_EmployeeLimit(t *testing.T) {
	sc := &mockScraper{}
	r := newTestReconciler(&mockStore{}, sc, WithEmployeeLimit(10))

	_, err := r.DetectForAccount(context.Background(), testAccount())
	require.NoError(t, err)
	assert.Equal(t, []int{10}, sc.limits)
}
