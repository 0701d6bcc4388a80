// Package apify is a small client for the Apify actor API: start an actor
// run, read its status and fetch the items of its default dataset.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.apify.com/v2"

// Run statuses reported by the API.
const (
	StatusReady     = "READY"
	StatusRunning   = "RUNNING"
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
	StatusTimingOut = "TIMING-OUT"
	StatusTimedOut  = "TIMED-OUT"
	StatusAborting  = "ABORTING"
	StatusAborted   = "ABORTED"
)

// Client defines the Apify operations used by the scraper.
type Client interface {
	StartRun(ctx context.Context, actorID string, input any) (*Run, error)
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListDatasetItems(ctx context.Context, datasetID string, limit int) ([]EmployeeItem, error)
}

// Run is the subset of an actor run object the scraper reads.
type Run struct {
	ID               string    `json:"id"`
	ActID            string    `json:"actId"`
	Status           string    `json:"status"`
	StatusMessage    string    `json:"statusMessage,omitempty"`
	DefaultDatasetID string    `json:"defaultDatasetId"`
	StartedAt        time.Time `json:"startedAt"`
	FinishedAt       time.Time `json:"finishedAt"`
}

// Terminal reports whether the run will not change status again.
func (r *Run) Terminal() bool {
	switch r.Status {
	case StatusSucceeded, StatusFailed, StatusTimedOut, StatusAborted:
		return true
	}
	return false
}

type runEnvelope struct {
	Data Run `json:"data"`
}

// EmployeeInput is the actor input for a company employee scrape.
type EmployeeInput struct {
	CompanyURLs []string `json:"companyUrls"`
	MaxItems    int      `json:"maxItems"`
}

// EmployeeItem is one dataset item of a company employee scrape. Actors
// disagree on field names, so the common aliases are all accepted.
type EmployeeItem struct {
	FullName   string `json:"fullName"`
	Name       string `json:"name"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Title      string `json:"title"`
	Headline   string `json:"headline"`
	ProfileURL string `json:"profileUrl"`
	URL        string `json:"url"`
	LinkedIn   string `json:"linkedinUrl"`
	AvatarURL  string `json:"pictureUrl"`
	Photo      string `json:"profilePicture"`
	Location   string `json:"location"`
	Tenure     string `json:"tenure"`
	Duration   string `json:"duration"`
	About      string `json:"about"`
	Summary    string `json:"summary"`
}

// APIError is returned when Apify responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("apify: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables the limit.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an Apify client authenticated with token. Requests are
// throttled to 5 per second by default.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(5, 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) StartRun(ctx context.Context, actorID string, input any) (*Run, error) {
	var env runEnvelope
	path := "/acts/" + url.PathEscape(actorID) + "/runs"
	if err := c.post(ctx, path, input, &env); err != nil {
		return nil, eris.Wrapf(err, "apify: start run of %s", actorID)
	}
	return &env.Data, nil
}

func (c *httpClient) GetRun(ctx context.Context, runID string) (*Run, error) {
	var env runEnvelope
	if err := c.get(ctx, "/actor-runs/"+url.PathEscape(runID), &env); err != nil {
		return nil, eris.Wrapf(err, "apify: get run %s", runID)
	}
	return &env.Data, nil
}

func (c *httpClient) ListDatasetItems(ctx context.Context, datasetID string, limit int) ([]EmployeeItem, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("clean", "true")
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var items []EmployeeItem
	path := "/datasets/" + url.PathEscape(datasetID) + "/items?" + q.Encode()
	if err := c.get(ctx, path, &items); err != nil {
		return nil, eris.Wrapf(err, "apify: list dataset items %s", datasetID)
	}
	return items, nil
}

func (c *httpClient) post(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	return c.do(req, out)
}

func (c *httpClient) do(req *http.Request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return eris.Wrap(err, "rate limit")
		}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode response")
	}
	return nil
}
