package jira

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	// MaxAttempts is the retry budget per logical request.
	MaxAttempts = 5

	// BackoffBase is the base delay for exponential backoff. Retryable
	// failures wait BackoffBase << n where n counts backoff waits so far.
	BackoffBase = time.Second

	// RateLimitCooldown is the fixed wait after a 429 response. Cooldown
	// waits count toward the attempt budget but not toward exponential
	// growth.
	RateLimitCooldown = 10 * time.Second
)

// SleepFunc blocks for d or until ctx is cancelled. Injected so tests can
// record waits instead of taking them.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Fetcher wraps a Client with bounded-attempt retry, exponential backoff,
// and rate-limit-aware delay. It is the sole point of resilience policy;
// callers never inspect status codes directly.
type Fetcher struct {
	client      *Client
	log         zerolog.Logger
	maxAttempts int
	backoffBase time.Duration
	cooldown    time.Duration
	sleep       SleepFunc
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithMaxAttempts overrides the retry budget.
func WithMaxAttempts(n int) FetcherOption {
	return func(f *Fetcher) {
		f.maxAttempts = n
	}
}

// WithBackoffBase overrides the exponential backoff base delay.
func WithBackoffBase(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.backoffBase = d
	}
}

// WithCooldown overrides the fixed rate-limit cooldown.
func WithCooldown(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.cooldown = d
	}
}

// WithSleep replaces the sleep function. Useful for testing.
func WithSleep(sleep SleepFunc) FetcherOption {
	return func(f *Fetcher) {
		f.sleep = sleep
	}
}

// NewFetcher creates a Fetcher around client.
func NewFetcher(client *Client, log zerolog.Logger, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:      client,
		log:         log,
		maxAttempts: MaxAttempts,
		backoffBase: BackoffBase,
		cooldown:    RateLimitCooldown,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// GetJSON fetches url into v, retrying per policy. Outcomes:
//
//   - nil: success
//   - a 404-class error (check with IsNotFound): the resource is missing;
//     skip it and continue, no retries were made
//   - ErrExhausted: the retry budget was consumed; skip and continue,
//     never fatal to the run
//   - ctx.Err(): the context was cancelled mid-wait
func (f *Fetcher) GetJSON(ctx context.Context, url string, v any) error {
	backoffIdx := 0

	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		err := f.client.GetJSON(ctx, url, v)

		switch {
		case err == nil:
			return nil

		case IsNotFound(err):
			f.log.Debug().Str("url", url).Msg("resource not found, skipping")
			return err

		case IsRateLimited(err):
			f.log.Warn().
				Str("url", url).
				Dur("cooldown", f.cooldown).
				Msg("rate limited, cooling down")
			if serr := f.sleep(ctx, f.cooldown); serr != nil {
				return serr
			}

		case IsRetryable(err):
			delay := f.backoffBase << backoffIdx
			backoffIdx++
			f.log.Debug().
				Err(err).
				Int("attempt", attempt+1).
				Dur("backoff", delay).
				Msg("retryable failure, backing off")
			if serr := f.sleep(ctx, delay); serr != nil {
				return serr
			}

		default:
			// Classification covers all outcomes; treat anything
			// unexpected as retryable too.
			delay := f.backoffBase << backoffIdx
			backoffIdx++
			f.log.Debug().Err(err).Dur("backoff", delay).Msg("unclassified failure, backing off")
			if serr := f.sleep(ctx, delay); serr != nil {
				return serr
			}
		}
	}

	f.log.Warn().Str("url", url).Int("attempts", f.maxAttempts).Msg("retry budget exhausted")
	return ErrExhausted
}

// SearchPage fetches one page of issues for a project starting at the
// given offset.
func (f *Fetcher) SearchPage(ctx context.Context, project string, startAt, pageSize int) (*SearchResult, error) {
	var result SearchResult
	url := SearchURL(f.client.BaseURL(), project, startAt, pageSize)
	if err := f.GetJSON(ctx, url, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Comments fetches the comment bodies for an issue.
func (f *Fetcher) Comments(ctx context.Context, issueKey string) ([]Comment, error) {
	var list CommentList
	url := CommentsURL(f.client.BaseURL(), issueKey)
	if err := f.GetJSON(ctx, url, &list); err != nil {
		return nil, err
	}
	return list.Comments, nil
}
