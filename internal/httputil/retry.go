// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the shared HTTP client and the retry state
// machine every page request goes through.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/venue-harvest/pkg/logger"
	"github.com/pdiddy/venue-harvest/pkg/types"
)

const (
	defaultMaxRetries = 5
	defaultBaseDelay  = time.Second
	defaultMaxDelay   = 60 * time.Second

	// maxMessageBytes bounds how much of a rejected response body is kept.
	maxMessageBytes = 512
)

// Outcome classifies a single HTTP attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRateLimited
	OutcomeTransient
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeTransient:
		return "transient"
	case OutcomeRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// State is a state of the per-request retry machine.
type State int

const (
	StateRequesting State = iota
	StateBackoff
	StateSucceeded
	StateExhausted
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateRequesting:
		return "requesting"
	case StateBackoff:
		return "backoff"
	case StateSucceeded:
		return "succeeded"
	case StateExhausted:
		return "exhausted"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Classify maps a transport result onto an Outcome. Network errors and
// timeouts are transient; 429 is a rate limit; other 4xx are rejections;
// 5xx are transient.
func Classify(resp *http.Response, err error) Outcome {
	if err != nil {
		return OutcomeTransient
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return OutcomeRateLimited
	case resp.StatusCode >= 500:
		return OutcomeTransient
	case resp.StatusCode >= 400:
		return OutcomeRejected
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return OutcomeSuccess
	default:
		// 1xx/3xx that the client did not follow.
		return OutcomeRejected
	}
}

// Policy is the backoff policy shared by rate-limit and transient retries.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// PolicyFrom fills defaults for zero fields of cfg.
func PolicyFrom(cfg types.RetryConfig) Policy {
	p := Policy{MaxRetries: cfg.MaxRetries, BaseDelay: cfg.BaseDelay, MaxDelay: cfg.MaxDelay}
	if p.MaxRetries <= 0 {
		p.MaxRetries = defaultMaxRetries
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = defaultBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = defaultMaxDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	return p
}

// Delay returns the wait before retry number retry (0-based): BaseDelay
// doubled per consecutive retry, raised to retryAfter when the server asked
// for longer, and capped at MaxDelay.
func (p Policy) Delay(retry int, retryAfter time.Duration) time.Duration {
	d := p.MaxDelay
	if retry < 62 {
		if f := math.Pow(2, float64(retry)) * float64(p.BaseDelay); f < float64(p.MaxDelay) {
			d = time.Duration(f)
		}
	}
	if retryAfter > d {
		d = retryAfter
	}
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Result reports how the state machine ended for one request.
type Result struct {
	// Response is set only when State is StateSucceeded. The caller owns its
	// body.
	Response *http.Response

	// State is StateSucceeded, StateExhausted or StateRejected.
	State State

	// Last is the outcome of the final attempt.
	Last Outcome

	// StatusCode is the HTTP status of the final attempt, 0 on transport error.
	StatusCode int

	// Attempts counts requests sent, including the first.
	Attempts int

	// Message is the start of the final response body for failed requests,
	// or the transport error text.
	Message string
}

// DoWithRetry sends req and walks the retry state machine until the request
// succeeds, is rejected, or exhausts policy.MaxRetries retries. Rate limits
// (429) and transient failures (5xx, network errors) back off with
// exponential delays; other 4xx are rejected without retry. Every response
// body except the successful one is drained and closed.
//
// The only error returned is the context error when ctx is cancelled while
// waiting; every HTTP-level failure is reported through Result.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, policy Policy) (Result, error) {
	var (
		res        Result
		retry      int
		retryAfter time.Duration
		state      = StateRequesting
	)

	for {
		switch state {
		case StateRequesting:
			resp, err := client.Do(req.Clone(ctx))
			res.Attempts++
			if err != nil && ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Last = Classify(resp, err)
			res.StatusCode = 0
			res.Message = ""
			retryAfter = 0
			if err != nil {
				res.Message = err.Error()
			} else {
				res.StatusCode = resp.StatusCode
			}

			switch res.Last {
			case OutcomeSuccess:
				res.Response = resp
				state = StateSucceeded
				continue
			case OutcomeRejected:
				res.Message = drain(resp)
				state = StateRejected
				continue
			}

			if resp != nil {
				retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
				res.Message = drain(resp)
			}
			if retry >= policy.MaxRetries {
				state = StateExhausted
				continue
			}
			state = StateBackoff

		case StateBackoff:
			wait := policy.Delay(retry, retryAfter)
			retry++
			logger.Debug(ctx, "retrying request",
				zap.String("outcome", res.Last.String()),
				zap.Int("status", res.StatusCode),
				zap.Duration("backoff", wait),
				zap.Int("retry", retry),
				zap.Int("max_retries", policy.MaxRetries))

			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(wait):
			}
			state = StateRequesting

		case StateSucceeded, StateExhausted, StateRejected:
			res.State = state
			return res, nil
		}
	}
}

// drain reads a bounded prefix of the body for diagnostics, discards the
// rest and closes it so the connection can be reused.
func drain(resp *http.Response) string {
	if resp == nil || resp.Body == nil {
		return ""
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxMessageBytes))
	_, _ = io.Copy(io.Discard, resp.Body)
	return strings.TrimSpace(string(b))
}

// parseRetryAfter understands both delta-seconds and HTTP-date forms.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

