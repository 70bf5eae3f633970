// HTTP implementation of [JobQueue]
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/webpq/internal/models"
	"github.com/desertthunder/webpq/internal/shared"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "http://127.0.0.1:8089"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 20.0
)

var _ JobQueue = (*QueueClient)(nil)

// QueueClient talks to the job queue backend over HTTP.
type QueueClient struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
	logger     *log.Logger
}

// QueueOption configures a [QueueClient].
type QueueOption func(*QueueClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) QueueOption {
	return func(c *QueueClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout. Non-positive values keep the default.
func WithTimeout(d time.Duration) QueueOption {
	return func(c *QueueClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit caps requests per second across all calls. Zero disables limiting.
func WithRateLimit(rps float64) QueueOption {
	return func(c *QueueClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		burst := int(math.Ceil(rps))
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *log.Logger) QueueOption {
	return func(c *QueueClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewQueueClient creates a client for the backend at baseURL.
func NewQueueClient(baseURL string, opts ...QueueOption) *QueueClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &QueueClient{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		timeout:    DefaultTimeout,
		logger:     shared.NopLogger(),
	}
	WithRateLimit(DefaultRateLimit)(c)

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Submit enqueues one job per item with the given priority.
//
// Calls POST /batch.
func (c *QueueClient) Submit(ctx context.Context, itemIDs []string, priority models.Priority) ([]models.JobID, error) {
	if len(itemIDs) == 0 {
		return nil, fmt.Errorf("%w: no items to submit", shared.ErrInvalidInput)
	}
	if priority == "" {
		priority = models.PriorityNormal
	}

	body, err := json.Marshal(SubmitRequest{ItemIDs: itemIDs, Priority: priority})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var resp SubmitResponse
	if err := c.do(ctx, "submit", http.MethodPost, "/batch", body, &resp); err != nil {
		return nil, err
	}

	if len(resp.JobIDs) == 0 {
		return nil, fmt.Errorf("%w: backend accepted %d items but returned no job ids", shared.ErrProtocolViolation, len(itemIDs))
	}

	ids := make([]models.JobID, len(resp.JobIDs))
	for i, id := range resp.JobIDs {
		if id == "" {
			return nil, fmt.Errorf("%w: empty job id at position %d", shared.ErrProtocolViolation, i)
		}
		ids[i] = models.JobID(id)
	}

	c.logger.Debug("batch submitted", "items", len(itemIDs), "jobs", len(ids), "priority", priority)
	return ids, nil
}

// GetStatus fetches one job's status. The result always carries the requested id.
//
// Calls GET /jobs/{id}.
func (c *QueueClient) GetStatus(ctx context.Context, id models.JobID) (*models.JobStatus, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty job id", shared.ErrInvalidArgument)
	}

	var resp StatusResponse
	if err := c.do(ctx, "get status", http.MethodGet, "/jobs/"+url.PathEscape(string(id)), nil, &resp); err != nil {
		return nil, err
	}

	status, err := resp.ToJobStatus(id)
	if err != nil {
		return nil, &shared.TransportError{Op: "get status", Err: err}
	}
	return status, nil
}

// CleanupOlderThan purges finished jobs older than age, rounded up to whole hours.
//
// Calls DELETE /jobs/cleanup?olderThanHours={n}.
func (c *QueueClient) CleanupOlderThan(ctx context.Context, age time.Duration) error {
	if age <= 0 {
		return fmt.Errorf("%w: cleanup age must be positive, got %v", shared.ErrInvalidArgument, age)
	}

	q := url.Values{}
	q.Set("olderThanHours", strconv.Itoa(CleanupHours(age)))

	return c.do(ctx, "cleanup", http.MethodDelete, "/jobs/cleanup?"+q.Encode(), nil, nil)
}

// QueueStats returns whole-queue counts.
//
// Calls GET /queue/stats.
func (c *QueueClient) QueueStats(ctx context.Context) (*models.QueueStats, error) {
	var stats models.QueueStats
	if err := c.do(ctx, "queue stats", http.MethodGet, "/queue/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// CleanupHours converts age to the whole number of hours sent to the backend, never less than one.
func CleanupHours(age time.Duration) int {
	return max(int(math.Ceil(age.Hours())), 1)
}

// do performs one request with its own timeout, decoding a 2xx body into result when non-nil.
func (c *QueueClient) do(ctx context.Context, op, method, path string, body []byte, result any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &shared.TransportError{Op: op, Err: fmt.Errorf("rate limiter: %w", err)}
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &shared.TransportError{Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", shared.ErrTimeout, err)
		}
		return &shared.TransportError{Op: op, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &shared.TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	c.logger.Debug("queue request", "op", op, "method", method, "path", path, "status", resp.StatusCode, "took", time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp errorResponse
		_ = json.Unmarshal(data, &errResp)
		return &shared.TransportError{Op: op, StatusCode: resp.StatusCode, Message: errResp.text()}
	}

	if result == nil || len(bytes.TrimSpace(data)) == 0 {
		if result != nil {
			return &shared.TransportError{Op: op, StatusCode: resp.StatusCode, Err: errors.New("empty response body")}
		}
		return nil
	}

	if err := json.Unmarshal(data, result); err != nil {
		return &shared.TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return nil
}
