package calendly

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"calendly-mcp/internal/canonical"
	"calendly-mcp/internal/ratelimit"
	"calendly-mcp/internal/redact"
)

// DefaultTimeout bounds every upstream call.
const DefaultTimeout = 30 * time.Second

// Client issues exactly one HTTP call per Send and folds the outcome into a
// canonical.Result. It holds no per-call state and is safe for concurrent use.
type Client struct {
	baseURL  string
	token    string
	timeout  time.Duration
	http     *http.Client
	logger   *slog.Logger
	redactor *redact.Redactor
	limiter  *ratelimit.Limiter
}

type Options struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
	Redactor   *redact.Redactor

	// Limiter paces outbound calls. Nil means unlimited.
	Limiter *ratelimit.Limiter
}

func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, errors.New("calendly: api token is required")
	}
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	redactor := opts.Redactor
	if redactor == nil {
		redactor = redact.NewRedactor(opts.Token)
	}
	return &Client{
		baseURL:  base,
		token:    opts.Token,
		timeout:  timeout,
		http:     httpClient,
		logger:   logger.With("component", "upstream"),
		redactor: redactor,
		limiter:  opts.Limiter,
	}, nil
}

// BaseURL is the host resource URIs are synthesized under.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Send performs req against the API. Caller cancellation is not propagated:
// once issued, the call runs until it completes or the client timeout fires.
func (c *Client) Send(ctx context.Context, req *canonical.Request) canonical.Result {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		if isTimeout(err) {
			return canonical.TransportError(fmt.Sprintf("upstream request timed out after %s waiting for rate limit", c.timeout))
		}
		return canonical.TransportError("rate limited: " + err.Error())
	}

	fullURL := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return canonical.TransportError(fmt.Sprintf("encode request body: %v", err))
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, strings.ToUpper(req.Method), fullURL, body)
	if err != nil {
		return canonical.TransportError(fmt.Sprintf("build request: %v", err))
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Warn("request failed", "method", httpReq.Method, "path", req.Path, "error", c.redactor.Redact(err.Error()))
		if isTimeout(err) {
			return canonical.TransportError(fmt.Sprintf("upstream request timed out after %s", c.timeout))
		}
		return canonical.TransportError("upstream request failed: " + c.redactor.Redact(err.Error()))
	}
	c.logger.Debug("request completed", "method", httpReq.Method, "path", req.Path, "status", resp.StatusCode, "elapsed", time.Since(started))
	return normalizeResponse(resp)
}

func normalizeResponse(resp *http.Response) canonical.Result {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return canonical.TransportError(fmt.Sprintf("read response: %v", err))
	}

	if resp.StatusCode >= 400 {
		return canonical.UpstreamError(resp.StatusCode, string(data))
	}
	// Only 204 stands for "done, nothing to say". An empty body on any other
	// status is undecodable like any other malformed body.
	if resp.StatusCode == http.StatusNoContent {
		return canonical.Success(resp.StatusCode, map[string]any{"success": true})
	}

	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return canonical.TransportError(fmt.Sprintf("decode response: %v", err))
	}
	return canonical.Success(resp.StatusCode, parsed)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
