package llm

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ResilienceOptions configures the throttle and retry decorator.
type ResilienceOptions struct {
	// MaxRetries bounds additional attempts after a transient failure.
	MaxRetries int
	// RequestsPerMinute throttles calls client-side; 0 disables throttling.
	RequestsPerMinute float64
	InitialInterval   time.Duration
	MaxInterval       time.Duration
}

// resilientClient throttles calls and retries transient provider failures.
// Anything else, including context expiry, is returned after one attempt.
type resilientClient struct {
	next    Client
	opts    ResilienceOptions
	limiter *rate.Limiter
	logger  *zap.Logger
}

// WithResilience wraps next with throttling and retries. It returns next
// unchanged when both are disabled.
func WithResilience(next Client, opts ResilienceOptions, logger *zap.Logger) Client {
	if opts.MaxRetries <= 0 && opts.RequestsPerMinute <= 0 {
		return next
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = time.Second
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = 30 * time.Second
	}

	c := &resilientClient{next: next, opts: opts, logger: logger.Named("resilience")}
	if opts.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Duration(float64(time.Minute)/opts.RequestsPerMinute)), 1)
	}
	return c
}

func (c *resilientClient) Decide(ctx context.Context, req Request) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.InitialInterval
	b.MaxInterval = c.opts.MaxInterval
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(c.opts.MaxRetries, 0))), ctx)

	attempt := 0
	operation := func() (string, error) {
		attempt++
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return "", backoff.Permanent(err)
			}
		}
		text, err := c.next.Decide(ctx, req)
		if err != nil && !IsTransient(err) {
			return "", backoff.Permanent(err)
		}
		return text, err
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("Transient reasoning failure, retrying...",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
	}

	return backoff.RetryNotifyWithData(operation, policy, notify)
}
