package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theneilagencia/glimora-sub000/internal/decisor"
	"github.com/theneilagencia/glimora-sub000/internal/decisorsync"
	"github.com/theneilagencia/glimora-sub000/internal/metrics"
	"github.com/theneilagencia/glimora-sub000/internal/model"
)

type fakeSyncer struct {
	accountRes  *model.AccountSyncResult
	accountErr  error
	orgRes      *model.OrganizationSyncResult
	orgErr      error
	gotID       string
	gotDeadline time.Time
	hasDeadline bool
}

func (f *fakeSyncer) SyncAccount(ctx context.Context, id string) (*model.AccountSyncResult, error) {
	f.gotID = id
	f.gotDeadline, f.hasDeadline = ctx.Deadline()
	return f.accountRes, f.accountErr
}

func (f *fakeSyncer) SyncOrganization(_ context.Context, id string) (*model.OrganizationSyncResult, error) {
	f.gotID = id
	return f.orgRes, f.orgErr
}

func newTestStore(t *testing.T) *decisor.SQLiteStore {
	t.Helper()
	st, err := decisor.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := NewRouter(&fakeSyncer{}, newTestStore(t), Options{})

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.NewManager()
	m.ScrapeFailed("provider")

	h := NewRouter(&fakeSyncer{}, newTestStore(t), Options{Metrics: m.Handler()})
	rec := do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "glimora_decisor_sync_scrape_failures_total")

	// not mounted without a handler
	h = NewRouter(&fakeSyncer{}, newTestStore(t), Options{})
	rec = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSyncAccount(t *testing.T) {
	fs := &fakeSyncer{accountRes: &model.AccountSyncResult{
		ReconcileResult: model.ReconcileResult{Created: 2, Updated: 1},
		AccountID:       "a1",
		Message:         "synced decisors for Acme",
	}}
	h := NewRouter(fs, newTestStore(t), Options{SyncTimeout: time.Minute})

	rec := do(t, h, http.MethodPost, "/accounts/a1/decisors/sync", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a1", fs.gotID)

	var got model.AccountSyncResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got.Created)
	assert.Equal(t, 1, got.Updated)
	assert.Equal(t, "synced decisors for Acme", got.Message)
}

func TestSyncAccount_NotFound(t *testing.T) {
	fs := &fakeSyncer{accountErr: eris.Wrap(decisorsync.ErrAccountNotFound, "decisorsync: account a1")}
	h := NewRouter(fs, newTestStore(t), Options{})

	rec := do(t, h, http.MethodPost, "/accounts/a1/decisors/sync", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSyncAccount_ScrapeFailure(t *testing.T) {
	scrapeErr := &decisor.ScrapeError{Err: errors.New("provider unavailable")}
	fs := &fakeSyncer{accountErr: eris.Wrap(scrapeErr, "decisorsync: sync account a1")}
	h := NewRouter(fs, newTestStore(t), Options{})

	rec := do(t, h, http.MethodPost, "/accounts/a1/decisors/sync", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "provider unavailable")
}

func TestSyncAccount_StoreFailure(t *testing.T) {
	fs := &fakeSyncer{accountErr: eris.Wrap(errors.New("database is locked"), "decisorsync: load account a1")}
	h := NewRouter(fs, newTestStore(t), Options{})

	rec := do(t, h, http.MethodPost, "/accounts/a1/decisors/sync", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "database is locked")
}

func TestSyncAccount_SyncTimeout(t *testing.T) {
	t.Run("bounded", func(t *testing.T) {
		fs := &fakeSyncer{accountRes: &model.AccountSyncResult{AccountID: "a1"}}
		h := NewRouter(fs, newTestStore(t), Options{SyncTimeout: time.Minute})

		before := time.Now()
		rec := do(t, h, http.MethodPost, "/accounts/a1/decisors/sync", "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, fs.hasDeadline)
		assert.WithinDuration(t, before.Add(time.Minute), fs.gotDeadline, 5*time.Second)
	})

	t.Run("unset", func(t *testing.T) {
		fs := &fakeSyncer{accountRes: &model.AccountSyncResult{AccountID: "a1"}}
		h := NewRouter(fs, newTestStore(t), Options{})

		rec := do(t, h, http.MethodPost, "/accounts/a1/decisors/sync", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, fs.hasDeadline)
	})
}

func TestSyncOrganization(t *testing.T) {
	fs := &fakeSyncer{orgRes: &model.OrganizationSyncResult{
		ReconcileResult:   model.ReconcileResult{Created: 5},
		OrganizationID:    "org-1",
		AccountsProcessed: 3,
		AccountsFailed:    1,
	}}
	h := NewRouter(fs, newTestStore(t), Options{})

	rec := do(t, h, http.MethodPost, "/organizations/org-1/decisors/sync", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "org-1", fs.gotID)

	var got model.OrganizationSyncResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 3, got.AccountsProcessed)
	assert.Equal(t, 1, got.AccountsFailed)
	assert.Equal(t, 5, got.Created)

	fs.orgErr = errors.New("list failed")
	rec = do(t, h, http.MethodPost, "/organizations/org-1/decisors/sync", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func seed(t *testing.T, st *decisor.SQLiteStore) model.Decisor {
	t.Helper()
	ctx := context.Background()
	url := "https://www.linkedin.com/company/acme"
	_, err := st.CreateAccount(ctx, model.Account{ID: "a1", OrganizationID: "org-1", Name: "Acme", LinkedInURL: &url})
	require.NoError(t, err)

	d, err := st.CreateDecisor(ctx, model.NewDecisor{
		AccountID:    "a1",
		FirstName:    "Ana",
		LastName:     "Silva",
		Title:        "CEO",
		LinkedInURL:  "https://www.linkedin.com/in/ana",
		DecisorScore: 60,
		DecisorLabel: model.LabelPotentialInfluencer,
		ScrapedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)
	return *d
}

func TestListDecisors(t *testing.T) {
	st := newTestStore(t)
	seed(t, st)
	h := NewRouter(&fakeSyncer{}, st, Options{})

	rec := do(t, h, http.MethodGet, "/accounts/a1/decisors", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		AccountID string          `json:"account_id"`
		Decisors  []model.Decisor `json:"decisors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "a1", body.AccountID)
	require.Len(t, body.Decisors, 1)
	assert.Equal(t, "Ana", body.Decisors[0].FirstName)
	assert.Equal(t, 60, body.Decisors[0].DecisorScore)

	rec = do(t, h, http.MethodGet, "/accounts/missing/decisors", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListDecisors_EmptyIsArray(t *testing.T) {
	st := newTestStore(t)
	_, err := st.CreateAccount(context.Background(), model.Account{ID: "a2", OrganizationID: "org-1", Name: "Empty"})
	require.NoError(t, err)
	h := NewRouter(&fakeSyncer{}, st, Options{})

	rec := do(t, h, http.MethodGet, "/accounts/a2/decisors", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"account_id":"a2","decisors":[]}`, rec.Body.String())
}

func TestSetFeedback(t *testing.T) {
	st := newTestStore(t)
	d := seed(t, st)
	h := NewRouter(&fakeSyncer{}, st, Options{})

	rec := do(t, h, http.MethodPut, "/decisors/"+d.ID+"/feedback", `{"feedback":"CONFIRMED_DECISOR","notes":"met at event"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got model.Decisor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.NotNil(t, got.SellerFeedback)
	assert.Equal(t, model.FeedbackConfirmedDecisor, *got.SellerFeedback)
	assert.Equal(t, "met at event", got.FeedbackNotes)
	assert.Equal(t, 60, got.DecisorScore)
}

func TestSetFeedback_Validation(t *testing.T) {
	st := newTestStore(t)
	d := seed(t, st)
	h := NewRouter(&fakeSyncer{}, st, Options{})

	rec := do(t, h, http.MethodPut, "/decisors/"+d.ID+"/feedback", `{"feedback":"MAYBE"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPut, "/decisors/"+d.ID+"/feedback", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPut, "/decisors/missing/feedback", `{"feedback":"NOT_DECISOR"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := NewRouter(&fakeSyncer{}, newTestStore(t), Options{CORSOrigins: []string{"https://app.glimora.io"}})

	req := httptest.NewRequest(http.MethodOptions, "/accounts/a1/decisors/sync", nil)
	req.Header.Set("Origin", "https://app.glimora.io")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.glimora.io", rec.Header().Get("Access-Control-Allow-Origin"))
}
