package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"tc.com/price-api/pkg/metrics"
	"tc.com/price-api/pkg/version"
)

// StatusError reports a non-2xx upstream response. Retries for status
// errors back off linearly; everything else is treated as a transport
// failure and backs off exponentially.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d", e.Code)
}

// RetryPolicy controls the per-call retry state machine.
type RetryPolicy struct {
	Attempts int           // total attempts, including the first
	ExpBase  time.Duration // transport-failure backoff unit: ExpBase × 2^attempt
	LinStep  time.Duration // bad-status backoff unit: LinStep × (attempt+1)
}

// DefaultRetryPolicy returns the standard policy of 3 total attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 3,
		ExpBase:  time.Second,
		LinStep:  time.Second,
	}
}

// RetryPolicyFromConfig builds a policy from the source config map.
// "retries" is the number of retries after the first attempt.
func RetryPolicyFromConfig(config map[string]interface{}) RetryPolicy {
	policy := DefaultRetryPolicy()
	switch r := config["retries"].(type) {
	case int:
		if r >= 0 {
			policy.Attempts = r + 1
		}
	case float64:
		if r >= 0 {
			policy.Attempts = int(r) + 1
		}
	}
	return policy
}

// FetchFunc performs one fetch attempt under the given context.
type FetchFunc func(ctx context.Context) (*Quote, error)

// FetchWithRetries is the common retry logic used by all adapters.
// Each attempt runs under its own deadline scoped to that single call,
// so an expired attempt never aborts a sibling fan-out branch. Transport
// and validation failures back off exponentially, non-2xx responses
// linearly; the last attempt's error passes through to the caller.
func FetchWithRetries(ctx context.Context, base *BaseSource, policy RetryPolicy, fn FetchFunc) (*Quote, error) {
	if policy.Attempts < 1 {
		policy = DefaultRetryPolicy()
	}

	start := time.Now()
	var lastErr error

	for attempt := 0; attempt < policy.Attempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, base.Timeout())
		attemptStart := time.Now()
		quote, err := fn(attemptCtx)
		cancel()

		if err == nil {
			quote.Latency = time.Since(attemptStart)
			if quote.Timestamp.IsZero() {
				quote.Timestamp = time.Now()
			}
			metrics.RecordSourceFetch(base.Name(), "ok", time.Since(start))
			return quote, nil
		}

		lastErr = err
		if attempt == policy.Attempts-1 {
			break
		}

		var backoff time.Duration
		kind := "transport"
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			kind = "status"
			backoff = policy.LinStep * time.Duration(attempt+1)
		} else {
			// #nosec G115 -- attempt is bounded by policy.Attempts
			backoff = policy.ExpBase * time.Duration(1<<uint(attempt))
		}

		metrics.RecordSourceRetry(base.Name(), kind)
		base.Logger().Warn("Fetch attempt failed",
			"source", base.Name(),
			"attempt", attempt+1,
			"kind", kind,
			"backoff", backoff.String(),
			"error", err.Error(),
		)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			metrics.RecordSourceFetch(base.Name(), "canceled", time.Since(start))
			return nil, ctx.Err()
		}
	}

	metrics.RecordSourceFetch(base.Name(), "error", time.Since(start))
	return nil, lastErr
}

// GetJSON issues a GET request and decodes the JSON response into v.
// Non-2xx responses are returned as *StatusError.
func GetJSON(ctx context.Context, client *http.Client, url string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", version.AgentString())
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}
