// Package dispatch implements the outgoing side of the listener: draining
// the outgoing pool, grouping by destination, sending a batch with a short
// deadline, and requeuing or dropping failures per spec.md §4.3.
//
// The single-attempt short-timeout Sender below is adapted from the
// teacher's RetryHTTPClient (formerly internal/worker/retry_client.go): that
// client owned its own exponential-backoff retry loop inside Do. The
// listener's retry model is different — retries live in the outgoing pool
// itself (IncrementRetry/AppendWithRetry), driven by the dispatcher's
// control loop tick, not by blocking inside one HTTP call — so Sender keeps
// the teacher's deadline/body-reuse plumbing but drops the in-client retry
// loop entirely in favor of a single attempt per tick.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxResponseBodyBytes = 64 * 1024

// DefaultTimeout is the per-send deadline described in spec.md §4.3: short
// enough that one slow destination cannot stall an entire dispatcher tick.
const DefaultTimeout = 25 * time.Millisecond

// Sender issues a single HTTP POST per Post call. It intentionally
// does not retry: the dispatcher owns the retry/backoff policy.
type Sender struct {
	httpClient *http.Client
}

// NewSender builds a Sender with DefaultTimeout. Pass a custom client (e.g.
// one with a different Timeout) when DefaultTimeout does not fit a test.
func NewSender(httpClient *http.Client) *Sender {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Sender{httpClient: httpClient}
}

// Post sends body as a JSON POST to url and returns the decoded response
// status and a capped response body for diagnostics.
func (s *Sender) Post(ctx context.Context, url string, body interface{}) (*http.Response, []byte, error) {
	jsonBytes, err := json.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal dispatch payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("build dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, maxResponseBodyBytes+1)
	respBody, err := io.ReadAll(limited)
	if err != nil {
		return resp, nil, fmt.Errorf("read dispatch response: %w", err)
	}
	if len(respBody) > maxResponseBodyBytes {
		respBody = respBody[:maxResponseBodyBytes]
	}
	return resp, respBody, nil
}
