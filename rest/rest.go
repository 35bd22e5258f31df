package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/voc/session-api/config"
)

// maximum number of error body bytes kept in a StatusError
const maxErrorBody = 4096

// StatusError is returned for every non-2xx response.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return e.Status
	}
	return fmt.Sprintf("%s: %s", e.Status, e.Body)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var serr *StatusError
	return errors.As(err, &serr) && serr.StatusCode == code
}

// ObserveFunc is called once per request with its final result
// ("ok", "4xx", "5xx" or "error").
type ObserveFunc func(operation string, result string)

type Option func(*Client)

func WithObserver(observe ObserveFunc) Option {
	return func(c *Client) {
		c.observe = observe
	}
}

// Client talks JSON to one upstream service.
type Client struct {
	service  string
	baseURL  string
	token    string
	http     *http.Client
	attempts int
	interval time.Duration
	observe  ObserveFunc
	log      zerolog.Logger
}

func New(service string, conf config.UpstreamConfig, opts ...Option) (*Client, error) {
	u, err := url.Parse(conf.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid base url: %w", service, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%s: base url must be http or https, got %q", service, conf.BaseURL)
	}
	c := &Client{
		service:  service,
		baseURL:  strings.TrimRight(conf.BaseURL, "/"),
		token:    strings.TrimSpace(conf.Token),
		http:     &http.Client{Timeout: conf.Timeout},
		attempts: conf.MaxAttempts,
		interval: conf.RetryInterval,
		log:      log.With().Str("context", service).Logger(),
	}
	if c.attempts <= 0 {
		c.attempts = 1
	}
	if c.interval < 0 {
		c.interval = 0
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Post(ctx context.Context, operation string, path string, payload interface{}, dest interface{}) error {
	return c.Do(ctx, http.MethodPost, operation, path, payload, dest)
}

func (c *Client) Get(ctx context.Context, operation string, path string, dest interface{}) error {
	return c.Do(ctx, http.MethodGet, operation, path, nil, dest)
}

// Create posts a request that creates a resource. It is sent exactly once,
// a retry after a lost response could create the resource twice.
func (c *Client) Create(ctx context.Context, operation string, path string, payload interface{}, dest interface{}) error {
	return c.send(ctx, http.MethodPost, operation, path, payload, dest, 1)
}

// Do sends a request and decodes a 2xx response into dest if it is not nil.
// Transport errors, 5xx and 429 are retried with exponential backoff, other
// responses are returned right away.
func (c *Client) Do(ctx context.Context, method string, operation string, path string, payload interface{}, dest interface{}) error {
	return c.send(ctx, method, operation, path, payload, dest, c.attempts)
}

func (c *Client) send(ctx context.Context, method string, operation string, path string, payload interface{}, dest interface{}, attempts int) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	var lastErr error
	wait := c.interval
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = c.do(ctx, method, path, body, dest)
		if lastErr == nil || !retryable(ctx, lastErr) || attempt == attempts {
			break
		}
		c.log.Warn().Err(lastErr).
			Str("method", method).
			Str("path", path).
			Int("attempt", attempt).
			Msg("request failed, retrying")
		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
			c.report(operation, lastErr)
			return lastErr
		case <-time.After(wait):
		}
		wait *= 2
	}
	c.report(operation, lastErr)
	return lastErr
}

func (c *Client) do(ctx context.Context, method string, path string, body []byte, dest interface{}) error {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(data)),
		}
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &decodeError{err: err}
	}
	return nil
}

type decodeError struct {
	err error
}

func (e *decodeError) Error() string {
	return "decode response: " + e.err.Error()
}

func (e *decodeError) Unwrap() error {
	return e.err
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var serr *StatusError
	if errors.As(err, &serr) {
		return serr.StatusCode >= 500 || serr.StatusCode == http.StatusTooManyRequests
	}
	var derr *decodeError
	return !errors.As(err, &derr)
}

func (c *Client) report(operation string, err error) {
	if c.observe == nil {
		return
	}
	c.observe(operation, result(err))
}

func result(err error) string {
	if err == nil {
		return "ok"
	}
	var serr *StatusError
	if errors.As(err, &serr) {
		if serr.StatusCode >= 500 {
			return "5xx"
		}
		return "4xx"
	}
	return "error"
}
