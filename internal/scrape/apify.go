// Package scrape fetches company employees from the scraping provider.
package scrape

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/theneilagencia/glimora-sub000/internal/metrics"
	"github.com/theneilagencia/glimora-sub000/internal/model"
	"github.com/theneilagencia/glimora-sub000/internal/resilience"
	"github.com/theneilagencia/glimora-sub000/pkg/apify"
)

// DefaultActorID is the Apify actor that lists a company's employees.
const DefaultActorID = "harvestapi~linkedin-company-employees"

// Option configures an ApifyScraper.
type Option func(*ApifyScraper)

// WithActorID overrides DefaultActorID.
func WithActorID(id string) Option {
	return func(s *ApifyScraper) {
		if id != "" {
			s.actorID = id
		}
	}
}

// WithRetry sets the retry policy for starting runs and reading datasets.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(s *ApifyScraper) {
		s.retry = cfg
	}
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(s *ApifyScraper) {
		if cb != nil {
			s.breaker = cb
		}
	}
}

// WithPollOptions tunes how runs are polled.
func WithPollOptions(opts ...apify.PollOption) Option {
	return func(s *ApifyScraper) {
		s.pollOpts = append(s.pollOpts, opts...)
	}
}

// WithMetrics counts scrape failures on m.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *ApifyScraper) {
		s.metrics = m
	}
}

// ApifyScraper runs an employee-listing actor and maps its dataset to
// EmployeeRecords. All calls for one provider share a circuit breaker.
type ApifyScraper struct {
	client   apify.Client
	actorID  string
	retry    resilience.RetryConfig
	breaker  *resilience.CircuitBreaker
	pollOpts []apify.PollOption
	metrics  *metrics.Manager
}

// NewApifyScraper creates an ApifyScraper.
func NewApifyScraper(client apify.Client, opts ...Option) *ApifyScraper {
	s := &ApifyScraper{
		client:  client,
		actorID: DefaultActorID,
		retry:   resilience.DefaultRetryConfig(),
		breaker: resilience.NewCircuitBreaker("apify", resilience.DefaultCircuitBreakerConfig()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.retry.ShouldRetry = retryable
	return s
}

// ScrapeCompanyEmployees returns up to limit employees of the company page.
// A run that finishes with an empty dataset yields an empty slice.
func (s *ApifyScraper) ScrapeCompanyEmployees(ctx context.Context, companyURL string, limit int) ([]model.EmployeeRecord, error) {
	log := zap.L().With(zap.String("company_url", companyURL), zap.String("actor", s.actorID))

	records, err := resilience.ExecuteVal(ctx, s.breaker, func(ctx context.Context) ([]model.EmployeeRecord, error) {
		return s.scrape(ctx, companyURL, limit)
	})
	if err != nil {
		reason := failureReason(err)
		s.metrics.ScrapeFailed(reason)
		log.Warn("scrape: employee scrape failed", zap.String("reason", reason), zap.Error(err))
		return nil, eris.Wrapf(err, "scrape: employees of %s", companyURL)
	}

	log.Debug("scrape: employees fetched", zap.Int("count", len(records)))
	return records, nil
}

func (s *ApifyScraper) scrape(ctx context.Context, companyURL string, limit int) ([]model.EmployeeRecord, error) {
	input := apify.EmployeeInput{CompanyURLs: []string{companyURL}, MaxItems: limit}

	cfg := s.retry
	cfg.OnRetry = resilience.RetryLogger("apify", "start_run")
	run, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*apify.Run, error) {
		return s.client.StartRun(ctx, s.actorID, input)
	})
	if err != nil {
		return nil, err
	}

	if !run.Terminal() {
		run, err = apify.PollRun(ctx, s.client, run.ID, s.pollOpts...)
		if err != nil {
			return nil, err
		}
	} else if run.Status != apify.StatusSucceeded {
		return nil, eris.Errorf("apify: run %s ended with status %s", run.ID, run.Status)
	}

	cfg.OnRetry = resilience.RetryLogger("apify", "list_dataset_items")
	items, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]apify.EmployeeItem, error) {
		return s.client.ListDatasetItems(ctx, run.DefaultDatasetID, limit)
	})
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	records := make([]model.EmployeeRecord, 0, len(items))
	for _, it := range items {
		records = append(records, toEmployeeRecord(it))
	}
	return records, nil
}

// toEmployeeRecord picks the first populated alias of each field.
func toEmployeeRecord(it apify.EmployeeItem) model.EmployeeRecord {
	return model.EmployeeRecord{
		FullName:   firstNonEmpty(it.FullName, it.Name, strings.TrimSpace(it.FirstName+" "+it.LastName)),
		FirstName:  strings.TrimSpace(it.FirstName),
		LastName:   strings.TrimSpace(it.LastName),
		Title:      firstNonEmpty(it.Title, it.Headline),
		ProfileURL: firstNonEmpty(it.ProfileURL, it.LinkedIn, it.URL),
		AvatarURL:  firstNonEmpty(it.AvatarURL, it.Photo),
		Location:   strings.TrimSpace(it.Location),
		Tenure:     firstNonEmpty(it.Tenure, it.Duration),
		About:      firstNonEmpty(it.About, it.Summary),
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// retryable treats 408/429/5xx responses and network blips as transient.
func retryable(err error) bool {
	var apiErr *apify.APIError
	if errors.As(err, &apiErr) {
		return resilience.IsTransientHTTPStatus(apiErr.StatusCode)
	}
	return resilience.IsTransient(err)
}

func failureReason(err error) string {
	var apiErr *apify.APIError
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &apiErr):
		return "api_error"
	default:
		return "provider"
	}
}
