package apify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultPollInitial = 2 * time.Second
	defaultPollCap     = 15 * time.Second
	defaultPollTimeout = 5 * time.Minute
)

// PollOption configures polling behavior.
type PollOption func(*pollConfig)

type pollConfig struct {
	initial time.Duration
	cap     time.Duration
	timeout time.Duration
}

func defaultPollConfig() pollConfig {
	return pollConfig{
		initial: defaultPollInitial,
		cap:     defaultPollCap,
		timeout: defaultPollTimeout,
	}
}

// WithPollInterval overrides the initial poll interval.
func WithPollInterval(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.initial = d
	}
}

// WithPollCap overrides the maximum poll interval.
func WithPollCap(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.cap = d
	}
}

// WithPollTimeout overrides the default timeout. It applies only when the
// parent context has no deadline.
func WithPollTimeout(d time.Duration) PollOption {
	return func(c *pollConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// RunFailedError reports an actor run that finished without SUCCEEDED.
type RunFailedError struct {
	RunID  string
	Status string
}

func (e *RunFailedError) Error() string {
	return "apify: run " + e.RunID + " finished with status " + e.Status
}

// WaitForRun polls GetRun until the run reaches a terminal status or the
// context expires. Backoff doubles from the initial interval up to the cap.
func WaitForRun(ctx context.Context, client Client, run *Run, opts ...PollOption) (*Run, error) {
	cfg := defaultPollConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	interval := cfg.initial
	for !run.Terminal() {
		select {
		case <-ctx.Done():
			return nil, eris.Wrapf(ctx.Err(), "apify: poll run %s timed out", run.ID)
		case <-time.After(interval):
		}

		next, err := client.GetRun(ctx, run.ID)
		if err != nil {
			return nil, eris.Wrapf(err, "apify: poll run %s", run.ID)
		}
		run = next

		interval *= 2
		if interval > cfg.cap {
			interval = cfg.cap
		}
	}

	if run.Status != StatusSucceeded {
		return run, &RunFailedError{RunID: run.ID, Status: run.Status}
	}
	return run, nil
}

// RunActor starts an actor, waits for it to finish, and returns up to limit
// dataset items from its default dataset.
func RunActor(ctx context.Context, client Client, actorID string, input any, limit int, opts ...PollOption) ([]json.RawMessage, error) {
	run, err := client.StartRun(ctx, actorID, input)
	if err != nil {
		return nil, err
	}

	run, err = WaitForRun(ctx, client, run, opts...)
	if err != nil {
		return nil, err
	}

	return client.DatasetItems(ctx, run.DefaultDatasetID, limit)
}
