package opendata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// BackoffConfig is the retry policy for feed requests.
// The delay doubles from InitialInterval after each failed attempt and never exceeds MaxInterval (when set).
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (b BackoffConfig) delay(attempt int) time.Duration {
	d := b.InitialInterval
	for i := 0; i < attempt; i++ {
		d *= 2
		if b.MaxInterval > 0 && d >= b.MaxInterval {
			return b.MaxInterval
		}
	}
	if b.MaxInterval > 0 && d > b.MaxInterval {
		return b.MaxInterval
	}
	return d
}

var (
	errFeedThrottled   = errors.New("feed throttled the request")
	errFeedUnavailable = errors.New("feed unavailable")
	errFeedStatus      = errors.New("feed answered with unexpected status")
	errBreakerOpen     = errors.New("feed circuit open")
	errMissingClient   = errors.New("no http client")
	errBadBackoff      = errors.New("invalid backoff policy")
)

// transport sends feed requests under a client-side rate limit, a circuit breaker and the backoff policy.
type transport struct {
	client  *http.Client
	backoff BackoffConfig
	limiter *rate.Limiter // nil means unlimited
	breaker *gobreaker.CircuitBreaker
}

// get returns the first 2xx response. newRequest is called once per attempt.
// An open breaker fails fast without consuming the remaining retries.
func (t *transport) get(ctx context.Context, newRequest func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	if t.client == nil {
		return nil, errMissingClient
	}
	if t.backoff.MaxRetries < 0 || t.backoff.InitialInterval <= 0 {
		return nil, errBadBackoff
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if t.limiter != nil {
			if err := t.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		req, err := newRequest(ctx)
		if err != nil {
			return nil, err
		}

		resp, err := t.send(req)
		switch {
		case err == nil:
			return resp, nil
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return nil, fmt.Errorf("%w: %v", errBreakerOpen, err)
		case attempt >= t.backoff.MaxRetries:
			return nil, err
		}

		if err := sleep(ctx, t.backoff.delay(attempt)); err != nil {
			return nil, err
		}
	}
}

// send performs one attempt through the breaker. Bodies of rejected responses are closed here.
func (t *transport) send(req *http.Request) (*http.Response, error) {
	out, err := t.breaker.Execute(func() (interface{}, error) {
		resp, err := t.client.Do(req)
		if err != nil {
			return nil, err
		}
		if err := checkStatus(resp.StatusCode); err != nil {
			resp.Body.Close()
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return out.(*http.Response), nil
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusTooManyRequests:
		return errFeedThrottled
	case code >= 500:
		return fmt.Errorf("%w: status %d", errFeedUnavailable, code)
	case code < 200 || code >= 300:
		return fmt.Errorf("%w: status %d", errFeedStatus, code)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
