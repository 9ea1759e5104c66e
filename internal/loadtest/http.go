package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Outcome classifies one submission response.
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeAccepted
	OutcomeDuplicate
	// OutcomeRejected is a 429 backpressure answer.
	OutcomeRejected
)

var errNoRecords = errors.New("no records yet")

// HTTPClient wraps http.Client with JSON helpers.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.client.Do(req)
}

// Health checks GET /healthz.
func (c *HTTPClient) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("connect to service: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// Submit posts one placement.
func (c *HTTPClient) Submit(ctx context.Context, s *Submission) Outcome {
	resp, err := c.do(ctx, http.MethodPost, "/placements", s)
	if err != nil {
		return OutcomeFailed
	}
	defer resp.Body.Close()

	var ack Ack
	decodeErr := json.NewDecoder(resp.Body).Decode(&ack)
	switch resp.StatusCode {
	case http.StatusAccepted:
		return OutcomeAccepted
	case http.StatusOK:
		if decodeErr == nil && ack.Duplicate {
			return OutcomeDuplicate
		}
		return OutcomeFailed
	case http.StatusTooManyRequests:
		return OutcomeRejected
	default:
		return OutcomeFailed
	}
}

// Records returns how many rating records playerID has.
func (c *HTTPClient) Records(ctx context.Context, playerID string) (int, error) {
	resp, err := c.do(ctx, http.MethodGet, "/ratings/"+url.PathEscape(playerID), nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var recs []json.RawMessage
		if err := json.NewDecoder(resp.Body).Decode(&recs); err != nil {
			return 0, fmt.Errorf("decode ratings: %w", err)
		}
		return len(recs), nil
	case http.StatusNotFound:
		return 0, errNoRecords
	default:
		return 0, fmt.Errorf("ratings returned status %d", resp.StatusCode)
	}
}
