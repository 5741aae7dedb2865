// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/venue-harvest/pkg/types"
)

// testPolicy uses tiny delays so tests finish quickly.
func testPolicy(maxRetries int) Policy {
	return Policy{MaxRetries: maxRetries, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}
}

func newRequest(t *testing.T, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	return req
}

func TestDoWithRetry_ImmediateSuccess(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	res, err := DoWithRetry(context.Background(), ts.Client(), newRequest(t, ts.URL), testPolicy(5))
	require.NoError(t, err)
	require.NotNil(t, res.Response)
	defer res.Response.Body.Close()

	assert.Equal(t, StateSucceeded, res.State)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDoWithRetry_RateLimitedThen200(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	res, err := DoWithRetry(context.Background(), ts.Client(), newRequest(t, ts.URL), testPolicy(5))
	require.NoError(t, err)
	defer res.Response.Body.Close()

	assert.Equal(t, StateSucceeded, res.State)
	assert.Equal(t, 3, res.Attempts)
}

func TestDoWithRetry_TransientThen200(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	res, err := DoWithRetry(context.Background(), ts.Client(), newRequest(t, ts.URL), testPolicy(5))
	require.NoError(t, err)
	defer res.Response.Body.Close()

	assert.Equal(t, StateSucceeded, res.State)
	assert.Equal(t, 2, res.Attempts)
}

func TestDoWithRetry_ExhaustsOnRateLimit(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	res, err := DoWithRetry(context.Background(), ts.Client(), newRequest(t, ts.URL), testPolicy(3))
	require.NoError(t, err)

	assert.Nil(t, res.Response)
	assert.Equal(t, StateExhausted, res.State)
	assert.Equal(t, OutcomeRateLimited, res.Last)
	assert.Equal(t, http.StatusTooManyRequests, res.StatusCode)
	// 1 initial + 3 retries = 4 total calls.
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestDoWithRetry_ExhaustsOnServerError(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	res, err := DoWithRetry(context.Background(), ts.Client(), newRequest(t, ts.URL), testPolicy(2))
	require.NoError(t, err)

	assert.Equal(t, StateExhausted, res.State)
	assert.Equal(t, OutcomeTransient, res.Last)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDoWithRetry_ClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Unrecognized venue"}`))
	}))
	defer ts.Close()

	res, err := DoWithRetry(context.Background(), ts.Client(), newRequest(t, ts.URL), testPolicy(5))
	require.NoError(t, err)

	assert.Equal(t, StateRejected, res.State)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Contains(t, res.Message, "Unrecognized venue")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDoWithRetry_NetworkErrorExhausts(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := ts.URL
	ts.Close()

	res, err := DoWithRetry(context.Background(), http.DefaultClient, newRequest(t, url), testPolicy(1))
	require.NoError(t, err)

	assert.Equal(t, StateExhausted, res.State)
	assert.Equal(t, OutcomeTransient, res.Last)
	assert.Equal(t, 0, res.StatusCode)
	assert.Equal(t, 2, res.Attempts)
	assert.NotEmpty(t, res.Message)
}

func TestDoWithRetry_ContextCancelled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	// A longer base delay so the context cancels during the wait.
	policy := Policy{MaxRetries: 5, BaseDelay: 500 * time.Millisecond, MaxDelay: time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := DoWithRetry(ctx, ts.Client(), newRequest(t, ts.URL), policy)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPolicyDelay(t *testing.T) {
	p := Policy{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: 10 * time.Second}

	tests := []struct {
		name       string
		retry      int
		retryAfter time.Duration
		want       time.Duration
	}{
		{"first retry", 0, 0, time.Second},
		{"doubles", 2, 0, 4 * time.Second},
		{"capped", 5, 0, 10 * time.Second},
		{"huge retry count capped", 200, 0, 10 * time.Second},
		{"retry-after raises delay", 0, 3 * time.Second, 3 * time.Second},
		{"retry-after capped", 0, time.Minute, 10 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Delay(tt.retry, tt.retryAfter))
		})
	}
}

func TestPolicyFromDefaults(t *testing.T) {
	p := PolicyFrom(types.RetryConfig{})
	assert.Equal(t, 5, p.MaxRetries)
	assert.Equal(t, time.Second, p.BaseDelay)
	assert.Equal(t, time.Minute, p.MaxDelay)

	p = PolicyFrom(types.RetryConfig{MaxRetries: 2, BaseDelay: 2 * time.Second, MaxDelay: time.Second})
	assert.Equal(t, 2, p.MaxRetries)
	assert.Equal(t, 2*time.Second, p.MaxDelay)
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 7*time.Second, parseRetryAfter("7", now))
	assert.Equal(t, time.Duration(0), parseRetryAfter("", now))
	assert.Equal(t, time.Duration(0), parseRetryAfter("-3", now))
	assert.Equal(t, time.Duration(0), parseRetryAfter("soon", now))
	assert.Equal(t, 30*time.Second, parseRetryAfter(now.Add(30*time.Second).Format(http.TimeFormat), now))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		status int
		want   Outcome
	}{
		{http.StatusOK, OutcomeSuccess},
		{http.StatusTooManyRequests, OutcomeRateLimited},
		{http.StatusServiceUnavailable, OutcomeTransient},
		{http.StatusNotFound, OutcomeRejected},
		{http.StatusBadRequest, OutcomeRejected},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(&http.Response{StatusCode: tt.status}, nil))
		})
	}
	assert.Equal(t, OutcomeTransient, Classify(nil, context.DeadlineExceeded))
}

func TestNewClient(t *testing.T) {
	c, err := NewClient(types.HTTPConfig{})
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, c.Timeout)

	_, err = NewClient(types.HTTPConfig{Proxy: "://bad"})
	assert.Error(t, err)
}
