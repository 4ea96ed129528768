package icloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/wesm/aliasvault/internal/alias"
)

const (
	// DefaultBaseURL is the Hide My Email web service host.
	DefaultBaseURL = "https://p68-maildomainws.icloud.com"

	// DefaultClientBuild is sent as clientBuildNumber when none is configured.
	DefaultClientBuild = "2420Hotfix12"

	maxRetries     = 6
	maxBackoff     = 60 // seconds
	throttleWindow = 30 * time.Second
	defaultTimeout = 30 * time.Second
	origin         = "https://www.icloud.com"
)

// Client implements API over HTTP.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	session     Session
	rateLimiter *RateLimiter
	logger      *slog.Logger
	backoff     func(attempt int) time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the logger for the client.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimiter sets a custom rate limiter.
func WithRateLimiter(rl *RateLimiter) ClientOption {
	return func(c *Client) {
		c.rateLimiter = rl
	}
}

// WithBaseURL points the client at another host.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client authenticated by session.
func NewClient(session Session, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    DefaultBaseURL,
		session:    session,
		logger:     slog.Default(),
	}
	c.backoff = calculateBackoff

	for _, opt := range opts {
		opt(c)
	}

	if c.rateLimiter == nil {
		c.rateLimiter = NewRateLimiter(DefaultQPS)
	}
	if c.session.ClientBuild == "" {
		c.session.ClientBuild = DefaultClientBuild
	}
	return c
}

// Close releases resources held by the client.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// envelope is the wrapper every Hide My Email response uses.
type envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    string `json:"errorCode"`
		Message string `json:"errorMessage"`
	} `json:"error"`
}

type hmeEmail struct {
	AnonymousID     string `json:"anonymousId"`
	Hme             string `json:"hme"`
	Label           string `json:"label"`
	Note            string `json:"note"`
	ForwardToEmail  string `json:"forwardToEmail"`
	IsActive        bool   `json:"isActive"`
	CreateTimestamp int64  `json:"createTimestamp"` // Unix milliseconds
}

type listResult struct {
	HmeEmails []hmeEmail `json:"hmeEmails"`
}

type mutateRequest struct {
	AnonymousID string `json:"anonymousId"`
}

func (c *Client) endpoint(path string) string {
	q := url.Values{}
	q.Set("clientBuildNumber", c.session.ClientBuild)
	q.Set("clientMasteringNumber", c.session.ClientBuild)
	if c.session.DSID != "" {
		q.Set("dsid", c.session.DSID)
	}
	return c.baseURL + path + "?" + q.Encode()
}

// request makes an HTTP request with rate limiting and retry logic and
// returns the unwrapped result of a successful envelope.
func (c *Client) request(ctx context.Context, op Operation, method, path string, bodyBytes []byte) (json.RawMessage, error) {
	reqURL := c.endpoint(path)

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.backoff(attempt)
			c.logger.Debug("retrying request", "attempt", attempt, "backoff", backoff, "op", op.String())

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		// Every attempt goes through the limiter so a throttle window
		// opened by a 429 holds back the retry too.
		if err := c.rateLimiter.Acquire(ctx, op); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, eris.Wrap(err, "rate limit")
		}

		var body io.Reader
		if bodyBytes != nil {
			body = bytes.NewReader(bodyBytes)
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
		if err != nil {
			return nil, eris.Wrap(err, "create request")
		}
		req.Header.Set("Cookie", c.session.Cookie)
		req.Header.Set("Origin", origin)
		req.Header.Set("Accept", "*/*")
		if bodyBytes != nil {
			req.Header.Set("Content-Type", "text/plain")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = eris.Wrap(err, "http request")
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = eris.Wrap(err, "read response")
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			c.rateLimiter.RecoverRate()
			return decodeEnvelope(respBody)

		case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode == http.StatusServiceUnavailable:
			c.logger.Debug("throttled by service", "status", resp.StatusCode, "attempt", attempt, "window", throttleWindow)
			c.rateLimiter.Throttle(throttleWindow)
			lastErr = eris.Errorf("throttled (%d)", resp.StatusCode)
			continue

		case resp.StatusCode >= 500:
			lastErr = eris.Errorf("server error (%d)", resp.StatusCode)
			continue

		case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == 421:
			return nil, eris.Wrapf(ErrSessionExpired, "status %d", resp.StatusCode)

		case resp.StatusCode == http.StatusNotFound:
			return nil, &NotFoundError{ID: anonymousID(bodyBytes)}

		default:
			return nil, eris.Errorf("request failed (%d): %s", resp.StatusCode, truncateBody(respBody))
		}
	}

	return nil, eris.Wrap(lastErr, "max retries exceeded")
}

func decodeEnvelope(data []byte) (json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, eris.Wrap(err, "parse response")
	}
	if !env.Success {
		se := &ServiceError{Code: "unknown"}
		if env.Error != nil {
			se.Code = env.Error.Code
			se.Message = env.Error.Message
		}
		return nil, se
	}
	return env.Result, nil
}

// calculateBackoff returns the backoff for a retry attempt: exponential
// with full jitter.
func calculateBackoff(attempt int) time.Duration {
	base := float64(uint(1) << uint(attempt))
	if base > maxBackoff {
		base = maxBackoff
	}
	return time.Duration(rand.Float64() * base * float64(time.Second))
}

func anonymousID(body []byte) string {
	var req mutateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return ""
	}
	return req.AnonymousID
}

func truncateBody(b []byte) string {
	const limit = 200
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}

// LoadRecords lists every alias on the account.
func (c *Client) LoadRecords(ctx context.Context) ([]alias.Record, error) {
	data, err := c.request(ctx, OpList, http.MethodGet, "/v2/hme/list", nil)
	if err != nil {
		return nil, err
	}

	var res listResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, eris.Wrap(err, "parse alias list")
	}

	recs := make([]alias.Record, 0, len(res.HmeEmails))
	for _, e := range res.HmeEmails {
		r := alias.Record{
			ID:        e.AnonymousID,
			Address:   e.Hme,
			Label:     e.Label,
			Note:      e.Note,
			ForwardTo: e.ForwardToEmail,
			Status:    alias.StatusInactive,
		}
		if e.IsActive {
			r.Status = alias.StatusActive
		}
		if e.CreateTimestamp > 0 {
			r.CreatedAt = time.UnixMilli(e.CreateTimestamp).UTC()
		}
		recs = append(recs, r)
	}
	return recs, nil
}

// Deactivate stops an alias from forwarding.
func (c *Client) Deactivate(ctx context.Context, r alias.Record) error {
	return c.mutate(ctx, OpDeactivate, "/v1/hme/deactivate", r)
}

// Delete permanently removes an inactive alias.
func (c *Client) Delete(ctx context.Context, r alias.Record) error {
	return c.mutate(ctx, OpDelete, "/v1/hme/delete", r)
}

func (c *Client) mutate(ctx context.Context, op Operation, path string, r alias.Record) error {
	if r.ID == "" {
		return eris.Errorf("%s %s: alias has no id", op, r.Address)
	}
	body, err := json.Marshal(mutateRequest{AnonymousID: r.ID})
	if err != nil {
		return eris.Wrap(err, "marshal body")
	}
	_, err = c.request(ctx, op, http.MethodPost, path, body)
	var nf *NotFoundError
	if errors.As(err, &nf) && nf.ID == "" {
		nf.ID = r.ID
	}
	return err
}

// Ensure Client implements API interface.
var _ API = (*Client)(nil)
