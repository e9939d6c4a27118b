// Package appsync fetches report posts from the facility's AppSync GraphQL API.
package appsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/couchcryptid/fishing-catch-etl/internal/domain"
)

// Client implements the ingester's fetcher over HTTP.
type Client struct {
	url         string
	apiKey      string
	httpClient  *http.Client
	maxAttempts int
	newBackOff  func() backoff.BackOff
	logger      *slog.Logger
}

// NewClient creates an AppSync client. Each attempt is bounded by timeout;
// a request is tried at most maxAttempts times.
func NewClient(url, apiKey string, timeout time.Duration, maxAttempts int, logger *slog.Logger) *Client {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Client{
		url:    url,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxAttempts: maxAttempts,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
		logger: logger,
	}
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type response struct {
	Data   map[string]*connection `json:"data"`
	Errors json.RawMessage        `json:"errors"`
}

type connection struct {
	Items *[]domain.Post `json:"items"`
}

// errMalformed marks a response without the expected data.<query>.items
// path. It is not retried.
var errMalformed = errors.New("malformed response")

// Fetch returns every post of kind for the facility and day, with the
// response body exactly as received. Failures after the last attempt are
// returned as *domain.UpstreamError.
func (c *Client) Fetch(ctx context.Context, kind domain.Kind, facility string, date time.Time) (domain.FetchResult, error) {
	op, ok := operations[kind]
	if !ok {
		return domain.FetchResult{}, &domain.UpstreamError{Kind: kind, Err: fmt.Errorf("unknown report kind %q", kind)}
	}

	body, err := json.Marshal(request{
		Query: op.query(),
		Variables: map[string]any{
			"facility": facility,
			"date":     map[string]string{"eq": domain.UpstreamDate(date)},
		},
	})
	if err != nil {
		return domain.FetchResult{}, &domain.UpstreamError{Kind: kind, Err: err}
	}

	var (
		result  domain.FetchResult
		attempt int
	)
	try := func() error {
		attempt++
		r, err := c.post(ctx, op, body)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, errMalformed) {
				return backoff.Permanent(err)
			}
			c.logger.Warn("appsync request failed",
				"kind", kind, "facility", facility, "attempt", attempt, "error", err)
			return err
		}
		result = r
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.maxAttempts-1)), ctx)
	if err := backoff.Retry(try, b); err != nil {
		return domain.FetchResult{}, &domain.UpstreamError{
			Kind: kind,
			Err:  fmt.Errorf("request failed after %d attempts: %w", attempt, err),
		}
	}
	return result, nil
}

func (c *Client) post(ctx context.Context, op operation, body []byte) (domain.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return domain.FetchResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.FetchResult{}, fmt.Errorf("%s request: %w", op.name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.FetchResult{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.FetchResult{}, fmt.Errorf("appsync API error: status %d: %s", resp.StatusCode, raw)
	}

	var parsed response
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&parsed); err != nil {
		return domain.FetchResult{}, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Errors) > 0 && string(parsed.Errors) != "null" {
		return domain.FetchResult{}, fmt.Errorf("graphql errors: %s", parsed.Errors)
	}

	conn := parsed.Data[op.field]
	if conn == nil || conn.Items == nil {
		return domain.FetchResult{}, fmt.Errorf("%w: missing data.%s.items", errMalformed, op.field)
	}
	return domain.FetchResult{Raw: raw, Posts: *conn.Items}, nil
}
