// Package decisor reconciles scraped company employees against the stored
// decisors of an account.
package decisor

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/theneilagencia/glimora-sub000/internal/identity"
	"github.com/theneilagencia/glimora-sub000/internal/metrics"
	"github.com/theneilagencia/glimora-sub000/internal/model"
	"github.com/theneilagencia/glimora-sub000/internal/scoring"
)

// DefaultEmployeeLimit is how many employees one reconciliation asks for.
const DefaultEmployeeLimit = 50

// EmployeeScraper fetches the employees of a company page. It returns an
// empty slice, not an error, when the company has no data.
type EmployeeScraper interface {
	ScrapeCompanyEmployees(ctx context.Context, companyURL string, limit int) ([]model.EmployeeRecord, error)
}

// ScrapeError marks a reconciliation that failed while fetching employees
// from the provider, as opposed to a store failure.
type ScrapeError struct {
	Err error
}

func (e *ScrapeError) Error() string { return e.Err.Error() }

func (e *ScrapeError) Unwrap() error { return e.Err }

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithEmployeeLimit overrides DefaultEmployeeLimit.
func WithEmployeeLimit(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.limit = n
		}
	}
}

// WithMetrics records reconcile outcomes on m.
func WithMetrics(m *metrics.Manager) Option {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

// WithClock overrides the time source for scraped_at.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		r.nowFunc = now
	}
}

// Reconciler diffs one account's scrape against its stored decisors.
type Reconciler struct {
	store   Store
	scraper EmployeeScraper
	engine  *scoring.Engine
	metrics *metrics.Manager
	limit   int
	nowFunc func() time.Time
}

// NewReconciler creates a Reconciler.
func NewReconciler(st Store, scraper EmployeeScraper, engine *scoring.Engine, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:   st,
		scraper: scraper,
		engine:  engine,
		limit:   DefaultEmployeeLimit,
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DetectForAccount scrapes the account's company page and creates, updates
// and retires decisors to match it. Accounts without a LinkedIn URL yield a
// zero result. Scrape and store errors are returned.
func (r *Reconciler) DetectForAccount(ctx context.Context, acct model.Account) (*model.ReconcileResult, error) {
	log := zap.L().With(
		zap.String("account_id", acct.ID),
		zap.String("account", acct.Name),
	)
	result := &model.ReconcileResult{}

	if !acct.HasLinkedInURL() {
		log.Debug("decisor: account has no linkedin url, skipping")
		return result, nil
	}

	start := r.nowFunc()
	employees, err := r.scraper.ScrapeCompanyEmployees(ctx, acct.CompanyLinkedInURL(), r.limit)
	if err != nil {
		return nil, eris.Wrapf(&ScrapeError{Err: err}, "decisor: scrape employees for account %s", acct.ID)
	}

	valid := filterProfiles(employees)
	log.Info("decisor: scraped employees",
		zap.Int("returned", len(employees)),
		zap.Int("valid", len(valid)),
	)

	scraped := make([]string, 0, len(valid))
	seen := make(map[string]struct{}, len(valid))
	for _, emp := range valid {
		in := r.engine.ParseEmployee(emp)
		score := r.engine.Calculate(in)
		cand := NewCandidate(emp, in)

		if _, dup := seen[cand.NormalizedURL]; !dup {
			seen[cand.NormalizedURL] = struct{}{}
			scraped = append(scraped, cand.NormalizedURL)
		}

		created, err := r.upsert(ctx, acct.ID, cand, score)
		if err != nil {
			return nil, err
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	if len(scraped) == 0 {
		log.Warn("decisor: no valid employees scraped, skipping stale decisor deletion")
		r.metrics.DeletionGuardSkipped()
	} else {
		stale, err := r.store.FindDecisorsForDeletion(ctx, acct.ID, scraped)
		if err != nil {
			return nil, eris.Wrapf(err, "decisor: find stale decisors for account %s", acct.ID)
		}
		n, err := r.deleteAll(ctx, stale)
		if err != nil {
			return nil, eris.Wrapf(err, "decisor: delete stale decisors for account %s", acct.ID)
		}
		result.Deleted += n
	}

	invalid, err := r.store.FindDecisorsWithInvalidURL(ctx, acct.ID)
	if err != nil {
		return nil, eris.Wrapf(err, "decisor: find invalid decisors for account %s", acct.ID)
	}
	n, err := r.deleteAll(ctx, invalid)
	if err != nil {
		return nil, eris.Wrapf(err, "decisor: delete invalid decisors for account %s", acct.ID)
	}
	result.Deleted += n

	elapsed := r.nowFunc().Sub(start)
	r.metrics.ObserveReconcile(*result, elapsed)
	log.Info("decisor: reconciliation complete",
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("deleted", result.Deleted),
		zap.Duration("elapsed", elapsed),
	)
	return result, nil
}

// upsert writes one candidate and reports whether it was newly created.
func (r *Reconciler) upsert(ctx context.Context, accountID string, cand Candidate, score scoring.ScoreResult) (bool, error) {
	existing, err := r.store.FindDecisorByNormalizedURL(ctx, accountID, cand.NormalizedURL)
	if err != nil {
		return false, eris.Wrapf(err, "decisor: look up %s", cand.NormalizedURL)
	}

	now := r.nowFunc().UTC()
	if existing != nil {
		if _, err := r.store.UpdateDecisor(ctx, existing.ID, MergeUpdate(*existing, cand, score, now)); err != nil {
			return false, eris.Wrapf(err, "decisor: update %s", existing.ID)
		}
		return false, nil
	}

	if _, err := r.store.CreateDecisor(ctx, cand.NewDecisor(accountID, score, now)); err != nil {
		return false, eris.Wrapf(err, "decisor: create %s", cand.NormalizedURL)
	}
	return true, nil
}

func (r *Reconciler) deleteAll(ctx context.Context, ds []model.Decisor) (int, error) {
	if len(ds) == 0 {
		return 0, nil
	}
	ids := make([]string, len(ds))
	for i, d := range ds {
		ids[i] = d.ID
	}
	return r.store.DeleteDecisors(ctx, ids)
}

// filterProfiles keeps records whose profile URL points at a person.
func filterProfiles(employees []model.EmployeeRecord) []model.EmployeeRecord {
	out := make([]model.EmployeeRecord, 0, len(employees))
	for _, emp := range employees {
		if emp.ProfileURL != "" && identity.IsProfileURL(emp.ProfileURL) {
			out = append(out, emp)
		}
	}
	return out
}
