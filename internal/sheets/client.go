// Package sheets talks to the remote sheet service, the hosted
// spreadsheet behind the tracker. Tables are fetched and replaced whole;
// the service exposes no row-level primitives.
package sheets

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/breadwinner/stock-tracer/internal/config"
	"github.com/breadwinner/stock-tracer/internal/store"
)

// TablePayload is the wire shape of one table.
type TablePayload struct {
	Columns []string    `json:"columns"`
	Rows    []store.Row `json:"rows"`
}

// ClientInterface defines the interface for the sheet service client.
type ClientInterface interface {
	GetTable(ctx context.Context, name string) (*TablePayload, error)
	PutTable(ctx context.Context, name string, payload *TablePayload) error
}

// Client is a client for the sheet service REST API.
// It implements the ClientInterface.
type Client struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

// ensure Client implements the interface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new sheet service client.
func NewClient(cfg *config.Sheets, logger *zap.Logger) *Client {
	client := resty.New().SetBaseURL(cfg.BaseURL)
	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &Client{
		client:  client,
		logger:  logger,
		limiter: limiter,
	}
}

// GetTable fetches a table's full content. A missing table returns
// (nil, nil) rather than an error, so callers can treat it as empty.
func (c *Client) GetTable(ctx context.Context, name string) (*TablePayload, error) {
	var payload TablePayload

	req := c.client.R().
		SetResult(&payload).
		SetHeader("Accept", "application/json")

	resp, err := c.doRequest(ctx, "GET", "/v1/tables/"+name, req)
	if err != nil {
		c.logger.Error("Failed to get table", zap.String("table", name), zap.Error(err))
		return nil, fmt.Errorf("failed to get table %q: %w", name, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}

	return resp.Result().(*TablePayload), nil
}

// PutTable replaces a table's full content.
func (c *Client) PutTable(ctx context.Context, name string, payload *TablePayload) error {
	req := c.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(payload)

	if _, err := c.doRequest(ctx, "PUT", "/v1/tables/"+name, req); err != nil {
		c.logger.Error("Failed to put table", zap.String("table", name), zap.Error(err))
		return fmt.Errorf("failed to put table %q: %w", name, err)
	}
	return nil
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}
		if err == nil && method == http.MethodGet && resp.StatusCode() == http.StatusNotFound {
			return resp, nil // Absence is a valid answer on reads, GetTable decides
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				retryAfterHeader := resp.Header().Get("Retry-After")
				if seconds, err := strconv.Atoi(retryAfterHeader); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 { // Server errors
				shouldRetry = true
			}
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		// If we should retry, calculate wait time
		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}
