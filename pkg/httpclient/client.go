package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cgast/apiprobe/pkg/logging"
	"github.com/cgast/apiprobe/pkg/probe"
)

// DefaultTimeout bounds a single request attempt when the probe does not
// set one.
const DefaultTimeout = 30 * time.Second

// maxBodySize caps how much of a response body is read.
const maxBodySize = 10 * 1024 * 1024

// Response is the materialized result of one HTTP exchange.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	// Elapsed is the wall time of the successful attempt, used for
	// response-time validation.
	Elapsed time.Duration
}

// ContentType returns the response Content-Type header, or empty.
func (r *Response) ContentType() string {
	return r.Headers.Get("Content-Type")
}

// Options control a single probe execution.
type Options struct {
	Timeout time.Duration
	Retry   *probe.RetryPolicy
	// Debug logs request and response detail without altering control
	// flow.
	Debug bool
	// OnRetry, when set, is called before each retry attempt with the
	// attempt number about to run.
	OnRetry func(attempt int)
}

// Client executes built requests with timeout and bounded retry.
type Client struct {
	httpClient *http.Client
}

// New creates a Client. The underlying http.Client is shared across
// probes; per-attempt deadlines come from the request context.
func New() *Client {
	return &Client{httpClient: &http.Client{}}
}

// Execute performs the request. Attempts run strictly sequentially,
// sleeping the retry delay between failures; the last attempt's error is
// returned once retries are exhausted.
func (c *Client) Execute(ctx context.Context, req *Request, opts Options) (*Response, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	attempts := 1
	var retryDelay time.Duration
	if opts.Retry != nil && opts.Retry.MaxAttempts > 1 {
		attempts = opts.Retry.MaxAttempts
		retryDelay = time.Duration(opts.Retry.DelaySeconds * float64(time.Second))
	}

	if opts.Debug {
		logging.Debug("http", "request",
			"method", req.Method,
			"url", req.URL,
			"headers", req.Headers,
			"body", preview(req.Body))
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if opts.OnRetry != nil {
				opts.OnRetry(attempt)
			}
			if opts.Debug {
				logging.Debug("http", "retrying", "url", req.URL, "attempt", attempt)
			}
			if retryDelay > 0 {
				timer := time.NewTimer(retryDelay)
				select {
				case <-ctx.Done():
					timer.Stop()
					return nil, fmt.Errorf("request %s %s cancelled during retry wait: %w",
						req.Method, req.URL, ctx.Err())
				case <-timer.C:
				}
			}
		}

		resp, err := c.attempt(ctx, req, timeout)
		if err != nil {
			lastErr = err
			continue
		}

		if opts.Debug {
			logging.Debug("http", "response",
				"url", req.URL,
				"status", resp.StatusCode,
				"headers", resp.Headers,
				"elapsed_ms", resp.Elapsed.Milliseconds(),
				"body", preview(resp.Body))
		}
		return resp, nil
	}

	return nil, fmt.Errorf("request %s %s failed after %d attempt(s): %w",
		req.Method, req.URL, attempts, lastErr)
}

func (c *Client) attempt(ctx context.Context, req *Request, timeout time.Duration) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var bodyReader io.Reader
	if req.Body != nil {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, req.Method, req.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header.Clone(),
		Body:       body,
		Elapsed:    time.Since(start),
	}, nil
}

// preview truncates a body for debug logs.
func preview(body []byte) string {
	const max = 512
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
