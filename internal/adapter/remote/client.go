package remote

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/colocaviz/cropmap-service/internal/observability"
)

// Client fetches one remote source over HTTP. It implements dataset.Fetcher.
type Client struct {
	name       string
	url        string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a fetcher for the given URL. The name labels logs and metrics.
func NewClient(name, url string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		name: name,
		url:  url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// Name returns the source label.
func (c *Client) Name() string { return c.name }

// URL returns the fetched URL.
func (c *Client) URL() string { return c.url }

// Fetch downloads the whole body. Any status other than 200 is an error.
func (c *Client) Fetch(ctx context.Context) ([]byte, error) {
	start := time.Now()
	body, err := c.doRequest(ctx)
	c.metrics.SourceFetchDuration.WithLabelValues(c.name).Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.SourceFetches.WithLabelValues(c.name, "error").Inc()
		return nil, err
	}
	c.metrics.SourceFetches.WithLabelValues(c.name, "success").Inc()
	c.logger.Debug("source fetched", "source", c.name, "bytes", len(body))
	return body, nil
}

func (c *Client) doRequest(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s fetch error: status %d: %s", c.name, resp.StatusCode, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s body: %w", c.name, err)
	}
	return body, nil
}
