package apify

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultPollInitial = 2 * time.Second
	defaultPollCap     = 15 * time.Second
	defaultPollTimeout = 5 * time.Minute
)

// PollOption configures PollRun.
type PollOption func(*pollConfig)

type pollConfig struct {
	initial time.Duration
	cap     time.Duration
	timeout time.Duration
}

// WithPollInterval overrides the first poll interval.
func WithPollInterval(d time.Duration) PollOption {
	return func(c *pollConfig) {
		if d > 0 {
			c.initial = d
		}
	}
}

// WithPollCap overrides the maximum poll interval.
func WithPollCap(d time.Duration) PollOption {
	return func(c *pollConfig) {
		if d > 0 {
			c.cap = d
		}
	}
}

// WithPollTimeout overrides the total wait. It only applies when ctx has no
// deadline of its own.
func WithPollTimeout(d time.Duration) PollOption {
	return func(c *pollConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// PollRun polls GetRun until the run reaches a terminal status or ctx
// expires. The interval doubles after each poll up to the cap. Only a
// SUCCEEDED run is returned without error.
func PollRun(ctx context.Context, client Client, runID string, opts ...PollOption) (*Run, error) {
	cfg := pollConfig{
		initial: defaultPollInitial,
		cap:     defaultPollCap,
		timeout: defaultPollTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	interval := cfg.initial
	for {
		run, err := client.GetRun(ctx, runID)
		if err != nil {
			return nil, eris.Wrapf(err, "apify: poll run %s", runID)
		}
		if run.Terminal() {
			if run.Status != StatusSucceeded {
				return run, eris.Errorf("apify: run %s ended with status %s", runID, run.Status)
			}
			return run, nil
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, eris.Wrapf(ctx.Err(), "apify: poll run %s timed out", runID)
		case <-timer.C:
		}

		interval = min(interval*2, cfg.cap)
	}
}
