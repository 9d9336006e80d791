package checkfront

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/howstean/checkfront-widget/internal/observability/metrics"
	"github.com/howstean/checkfront-widget/pkg/logging"
)

const (
	defaultTimeout = 20 * time.Second

	// apiBasePath is appended to the configured host.
	apiBasePath = "/api/3.0/"

	// onBehalfHeader is the fixed delegation header Checkfront expects when
	// a partner key books on behalf of a customer.
	onBehalfHeader = "3"
)

// Client is a thin authenticated client for the Checkfront REST API.
// It performs no retries and no caching; every failure is surfaced to the
// caller as a typed *Error.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	logger     *logging.Logger
	metrics    *metrics.UpstreamMetrics
}

// NewClient creates a Checkfront API client. An empty host disables the
// client: every call fails with a not-configured error.
func NewClient(host, apiKey, apiSecret string, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	base := ""
	if h := strings.TrimRight(strings.TrimSpace(host), "/"); h != "" {
		base = h + apiBasePath
	}
	return &Client{
		baseURL:   base,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
}

// WithMetrics attaches upstream call instrumentation.
func (c *Client) WithMetrics(m *metrics.UpstreamMetrics) *Client {
	c.metrics = m
	return c
}

// WithTimeout overrides the default per-call HTTP timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	if d > 0 {
		c.httpClient.Timeout = d
	}
	return c
}

// Configured reports whether host, key and secret are all present.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.apiKey != "" && c.apiSecret != ""
}

// Get issues an authenticated GET against the API and decodes the JSON body.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (map[string]any, error) {
	if !c.Configured() {
		return nil, notConfigured()
	}

	u := c.baseURL + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, transportError(err)
	}
	return c.do(req, path)
}

// Post issues an authenticated form-encoded POST against the API and decodes
// the JSON body.
func (c *Client) Post(ctx context.Context, path string, body url.Values) (map[string]any, error) {
	if !c.Configured() {
		return nil, notConfigured()
	}

	u := c.baseURL + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(body.Encode()))
	if err != nil {
		return nil, transportError(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, path)
}

func (c *Client) do(req *http.Request, path string) (map[string]any, error) {
	req.Header.Set("Authorization", "Basic "+basicAuth(c.apiKey, c.apiSecret))
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-On-Behalf", onBehalfHeader)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveCall(path, "transport_error", time.Since(start).Seconds())
		c.logger.Error("checkfront call failed", "path", path, "error", err)
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.ObserveCall(path, "transport_error", time.Since(start).Seconds())
		return nil, transportError(err)
	}

	var data map[string]any
	decodeErr := json.Unmarshal(raw, &data)

	if resp.StatusCode >= http.StatusBadRequest {
		c.metrics.ObserveCall(path, "upstream_error", time.Since(start).Seconds())
		c.logger.Warn("checkfront returned error status",
			"path", path,
			"status", resp.StatusCode,
		)
		var body any
		if decodeErr == nil {
			body = data
		} else {
			body = string(raw)
		}
		return nil, upstreamError(resp.StatusCode, body)
	}
	if decodeErr != nil {
		c.metrics.ObserveCall(path, "bad_response", time.Since(start).Seconds())
		return nil, badResponse(string(raw))
	}

	c.metrics.ObserveCall(path, "ok", time.Since(start).Seconds())
	return data, nil
}

func basicAuth(key, secret string) string {
	return base64.StdEncoding.EncodeToString([]byte(key + ":" + secret))
}
