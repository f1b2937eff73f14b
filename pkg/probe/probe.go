package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy is the bounded, jittered retry budget shared by all probes.
// It only absorbs transient blips; exhausting the budget counts as the
// probed service failing, never as a fatal abort of the whole validation.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt
	MaxRetries uint64

	// InitialInterval is the first backoff delay; subsequent delays grow
	// exponentially with jitter
	InitialInterval time.Duration

	// MaxInterval caps the backoff delay
	MaxInterval time.Duration
}

// DefaultRetryPolicy returns the standard probe retry budget
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      2,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	return backoff.WithContext(backoff.WithMaxRetries(b, p.MaxRetries), ctx)
}

// Prober issues liveness and compliance probes against service endpoints
type Prober struct {
	client  *http.Client
	timeout time.Duration
	policy  RetryPolicy
}

// New creates a Prober with a per-attempt timeout and retry policy
func New(timeout time.Duration, policy RetryPolicy) *Prober {
	return &Prober{
		client:  &http.Client{},
		timeout: timeout,
		policy:  policy,
	}
}

// Liveness issues GET url. Status 200 with any body signals liveness; any
// other status or a timeout signals failure. Returns the latency of the
// final attempt.
func (p *Prober) Liveness(ctx context.Context, url string) (float64, error) {
	var latency float64

	operation := func() error {
		start := time.Now()
		err := p.get(ctx, url)
		latency = float64(time.Since(start)) / float64(time.Millisecond)
		return err
	}

	err := backoff.Retry(operation, p.policy.backOff(ctx))
	return latency, err
}

func (p *Prober) get(ctx context.Context, url string) error {
	attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return nil
}

// compliancePayload is the context sent with a validation request
type compliancePayload struct {
	Service     string `json:"service"`
	Environment string `json:"environment"`
}

// complianceResponse requires a well-formed compliance_score field. A
// pointer distinguishes an absent field from a literal zero.
type complianceResponse struct {
	Score *float64 `json:"compliance_score"`
}

// Compliance issues POST url with a context payload and reads the
// compliance_score field from the JSON response. Malformed responses and
// out-of-range scores are failures, not best-effort parses.
func (p *Prober) Compliance(ctx context.Context, url, service, environment string) (float64, float64, error) {
	var (
		score   float64
		latency float64
	)

	payload, err := json.Marshal(compliancePayload{Service: service, Environment: environment})
	if err != nil {
		return 0, 0, err
	}

	operation := func() error {
		start := time.Now()
		err := p.validate(ctx, url, payload, &score)
		latency = float64(time.Since(start)) / float64(time.Millisecond)
		return err
	}

	err = backoff.Retry(operation, p.policy.backOff(ctx))
	return score, latency, err
}

func (p *Prober) validate(ctx context.Context, url string, payload []byte, score *float64) error {
	attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var decoded complianceResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return backoff.Permanent(fmt.Errorf("malformed validation response: %w", err))
	}
	if decoded.Score == nil {
		return backoff.Permanent(fmt.Errorf("validation response missing compliance_score"))
	}
	if *decoded.Score < 0 || *decoded.Score > 1 {
		return backoff.Permanent(fmt.Errorf("compliance_score %f out of range [0,1]", *decoded.Score))
	}

	*score = *decoded.Score
	return nil
}
