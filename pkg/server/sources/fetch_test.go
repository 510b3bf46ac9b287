package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tc.com/price-api/pkg/logging"
)

// fastPolicy keeps test runs short.
func fastPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 3,
		ExpBase:  time.Millisecond,
		LinStep:  time.Millisecond,
	}
}

func testBase(timeout time.Duration) *BaseSource {
	return NewBaseSource("test", SourceTypeCEX, map[string]string{"bitcoin": "BTCUSD"}, timeout, logging.NewNoopLogger())
}

func TestFetchWithRetries_SucceedsFirstAttempt(t *testing.T) {
	base := testBase(time.Second)
	calls := 0

	quote, err := FetchWithRetries(context.Background(), base, fastPolicy(), func(_ context.Context) (*Quote, error) {
		calls++
		return &Quote{Source: "test:BTCUSD", Currency: "USD", Price: decimal.NewFromInt(50000)}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.False(t, quote.Timestamp.IsZero())
	assert.GreaterOrEqual(t, quote.Latency, time.Duration(0))
}

func TestFetchWithRetries_RetriesTransportFailure(t *testing.T) {
	base := testBase(time.Second)
	calls := 0

	quote, err := FetchWithRetries(context.Background(), base, fastPolicy(), func(_ context.Context) (*Quote, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection refused")
		}
		return &Quote{Source: "test:BTCUSD", Currency: "USD", Price: decimal.NewFromInt(50000)}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, quote.Price.Equal(decimal.NewFromInt(50000)))
}

func TestFetchWithRetries_ExhaustsAttemptsAndReturnsLastError(t *testing.T) {
	base := testBase(time.Second)
	calls := 0
	lastErr := errors.New("still broken")

	_, err := FetchWithRetries(context.Background(), base, fastPolicy(), func(_ context.Context) (*Quote, error) {
		calls++
		if calls == 3 {
			return nil, lastErr
		}
		return nil, errors.New("earlier failure")
	})

	require.ErrorIs(t, err, lastErr)
	assert.Equal(t, 3, calls)
}

func TestFetchWithRetries_StatusErrorRetried(t *testing.T) {
	base := testBase(time.Second)
	calls := 0

	_, err := FetchWithRetries(context.Background(), base, fastPolicy(), func(_ context.Context) (*Quote, error) {
		calls++
		return nil, &StatusError{Code: http.StatusBadGateway}
	})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)
	assert.Equal(t, 3, calls)
}

func TestFetchWithRetries_PerAttemptDeadline(t *testing.T) {
	base := testBase(10 * time.Millisecond)

	deadlines := make([]time.Time, 0, 3)
	_, err := FetchWithRetries(context.Background(), base, fastPolicy(), func(ctx context.Context) (*Quote, error) {
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		deadlines = append(deadlines, deadline)
		return nil, errors.New("fail")
	})

	require.Error(t, err)
	require.Len(t, deadlines, 3)
	// Each attempt gets a fresh deadline instead of sharing one budget.
	assert.True(t, deadlines[1].After(deadlines[0]))
	assert.True(t, deadlines[2].After(deadlines[1]))
}

func TestFetchWithRetries_ParentCancellationStopsBackoff(t *testing.T) {
	base := testBase(time.Second)
	policy := RetryPolicy{Attempts: 3, ExpBase: time.Hour, LinStep: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := FetchWithRetries(ctx, base, policy, func(_ context.Context) (*Quote, error) {
		return nil, errors.New("fail")
	})

	require.ErrorIs(t, err, context.Canceled)
}

func TestRetryPolicyFromConfig(t *testing.T) {
	assert.Equal(t, 3, RetryPolicyFromConfig(map[string]interface{}{}).Attempts)
	assert.Equal(t, 1, RetryPolicyFromConfig(map[string]interface{}{"retries": 0}).Attempts)
	assert.Equal(t, 5, RetryPolicyFromConfig(map[string]interface{}{"retries": 4}).Attempts)
	// YAML numbers arrive as float64
	assert.Equal(t, 3, RetryPolicyFromConfig(map[string]interface{}{"retries": float64(2)}).Attempts)
}

func TestGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "price-api")
		_, _ = w.Write([]byte(`{"value":42}`))
	}))
	defer server.Close()

	var data struct {
		Value int `json:"value"`
	}
	err := GetJSON(context.Background(), server.Client(), server.URL, &data)
	require.NoError(t, err)
	assert.Equal(t, 42, data.Value)
}

func TestGetJSON_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	err := GetJSON(context.Background(), server.Client(), server.URL, &struct{}{})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.Code)
}

func TestGetJSON_InvalidBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	err := GetJSON(context.Background(), server.Client(), server.URL, &struct{}{})
	require.ErrorIs(t, err, ErrInvalidResponse)
}
