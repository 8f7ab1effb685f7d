// Package feed pulls recent results from a table results HTTP endpoint.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rewired-gh/roulettemon/internal/logger"
)

// Client provides access to a results feed.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	limit          int
	maxRetries     int
	retryDelayBase time.Duration
}

// ClientConfig tunes paging and retries.
type ClientConfig struct {
	Limit          int
	MaxRetries     int
	RetryDelayBase time.Duration
}

// Result is one spin as reported by the feed.
type Result struct {
	N  int   `json:"n"`
	TS int64 `json:"ts"` // unix milliseconds
}

// Time returns the result timestamp.
func (r Result) Time() time.Time {
	return time.UnixMilli(r.TS)
}

// NewClient creates a new feed client.
func NewClient(baseURL string, timeout time.Duration, cfg ClientConfig) *Client {
	if cfg.Limit <= 0 {
		cfg.Limit = 100
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelayBase <= 0 {
		cfg.RetryDelayBase = time.Second
	}
	return &Client{
		baseURL:        baseURL,
		httpClient:     &http.Client{Timeout: timeout},
		limit:          cfg.Limit,
		maxRetries:     cfg.MaxRetries,
		retryDelayBase: cfg.RetryDelayBase,
	}
}

// FetchResults returns results for tableID strictly newer than since,
// oldest first. Outcomes outside 0..36 are dropped.
func (c *Client) FetchResults(ctx context.Context, tableID string, since time.Time) ([]Result, error) {
	u, err := url.Parse(c.baseURL + "/tables/" + url.PathEscape(tableID) + "/results")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(c.limit))
	u.RawQuery = q.Encode()

	resp, err := c.doRequest(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch results: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var raw []Result
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode results: %w", err)
	}

	results := make([]Result, 0, len(raw))
	var dropped int
	for _, r := range raw {
		if r.N < 0 || r.N > 36 {
			dropped++
			continue
		}
		if !r.Time().After(since) {
			continue
		}
		results = append(results, r)
	}
	if dropped > 0 {
		logger.Warn("Dropped %d out-of-range results from feed for table %s", dropped, tableID)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].TS < results[j].TS
	})
	return results, nil
}

// doRequest performs HTTP request with retry logic
func (c *Client) doRequest(ctx context.Context, urlStr string) (*http.Response, error) {
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, "GET", urlStr, nil)
		if err != nil {
			return nil, err
		}

		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
		} else {
			return resp, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.retryDelayBase * time.Duration(i+1)):
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
