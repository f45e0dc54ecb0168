package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/kailas-cloud/knowwho/internal/version"
)

// Client talks to a KnowWho server.
type Client struct {
	baseURL string
	cfg     *clientConfig
	obs     *observer
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("knowwho: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("knowwho: base url %q must be absolute", baseURL)
	}

	cfg := defaultConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}
	return &Client{baseURL: u.String(), cfg: cfg, obs: obs}, nil
}

// Health returns the server health report. A degraded or failing server
// answers 503, which is still a valid report.
func (c *Client) Health(ctx context.Context) (_ HealthStatus, err error) {
	start := time.Now()
	defer func() { c.obs.observe("health", start, err) }()

	var h HealthStatus
	err = c.call(ctx, "health", http.MethodGet, "/health", nil, nil, &h, http.StatusServiceUnavailable)
	return h, err
}

// ListDatasets returns a summary of every stored dataset.
func (c *Client) ListDatasets(ctx context.Context) (_ []DatasetSummary, err error) {
	start := time.Now()
	defer func() { c.obs.observe("dataset.list", start, err) }()

	var out datasetList
	if err = c.call(ctx, "dataset.list", http.MethodGet, "/api/v1/datasets", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// GetDataset fetches a dataset by query id.
func (c *Client) GetDataset(ctx context.Context, queryID string) (_ *Dataset, err error) {
	start := time.Now()
	defer func() { c.obs.observe("dataset.get", start, err) }()

	var ds Dataset
	if err = c.call(ctx, "dataset.get", http.MethodGet, datasetPath(queryID), nil, nil, &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}

// PutDataset stores ds under its query id. created is true when the id was new.
func (c *Client) PutDataset(ctx context.Context, ds *Dataset) (created bool, err error) {
	start := time.Now()
	defer func() { c.obs.observe("dataset.put", start, err) }()

	if ds.Query.QueryID == "" {
		return false, fmt.Errorf("knowwho: dataset query id is empty: %w", ErrInvalidDataset)
	}
	var out putResult
	if err = c.call(ctx, "dataset.put", http.MethodPut, datasetPath(ds.Query.QueryID), nil, ds, &out); err != nil {
		return false, err
	}
	return out.Created, nil
}

// DeleteDataset removes a dataset.
func (c *Client) DeleteDataset(ctx context.Context, queryID string) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("dataset.delete", start, err) }()

	return c.call(ctx, "dataset.delete", http.MethodDelete, datasetPath(queryID), nil, nil, nil)
}

// Layout returns node positions. Zero width or height uses the saved canvas.
func (c *Client) Layout(ctx context.Context, queryID string, width, height float64) (_ Layout, err error) {
	start := time.Now()
	defer func() { c.obs.observe("layout", start, err) }()

	q := url.Values{}
	if width > 0 {
		q.Set("width", strconv.FormatFloat(width, 'f', -1, 64))
	}
	if height > 0 {
		q.Set("height", strconv.FormatFloat(height, 'f', -1, 64))
	}
	var l Layout
	err = c.call(ctx, "layout", http.MethodGet, datasetPath(queryID)+"/layout", q, nil, &l)
	return l, err
}

// Path finds the path from the center person to target.
func (c *Client) Path(ctx context.Context, queryID, target string, mode PathMode) (_ PathResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("path", start, err) }()

	q := url.Values{"target": {target}}
	if mode != "" {
		q.Set("mode", string(mode))
	}
	var res PathResult
	err = c.call(ctx, "path", http.MethodGet, datasetPath(queryID)+"/path", q, nil, &res)
	return res, err
}

// Ranking returns the fused candidate ranking.
func (c *Client) Ranking(ctx context.Context, queryID string) (_ []RankedNode, err error) {
	start := time.Now()
	defer func() { c.obs.observe("ranking", start, err) }()

	var out []RankedNode
	err = c.call(ctx, "ranking", http.MethodGet, datasetPath(queryID)+"/ranking", nil, nil, &out)
	return out, err
}

// View computes the render model for st.
func (c *Client) View(ctx context.Context, queryID string, st ViewState) (_ View, err error) {
	start := time.Now()
	defer func() { c.obs.observe("view", start, err) }()

	var v View
	err = c.call(ctx, "view", http.MethodPost, datasetPath(queryID)+"/view", nil, st, &v)
	return v, err
}

// Settings returns the saved settings.
func (c *Client) Settings(ctx context.Context) (_ Settings, err error) {
	start := time.Now()
	defer func() { c.obs.observe("settings.get", start, err) }()

	var st Settings
	err = c.call(ctx, "settings.get", http.MethodGet, "/api/v1/settings", nil, nil, &st)
	return st, err
}

// SaveSettings replaces the saved settings and returns what was stored.
func (c *Client) SaveSettings(ctx context.Context, st Settings) (_ Settings, err error) {
	start := time.Now()
	defer func() { c.obs.observe("settings.put", start, err) }()

	var saved Settings
	err = c.call(ctx, "settings.put", http.MethodPut, "/api/v1/settings", nil, st, &saved)
	return saved, err
}

// Events subscribes to the change feed. The stream lives until ctx is done
// or Close is called.
func (c *Client) Events(ctx context.Context) (_ *Stream, err error) {
	start := time.Now()
	defer func() { c.obs.observe("events", start, err) }()

	return c.openStream(ctx, "events", http.MethodGet, "/api/v1/events", nil)
}

// Brief opens the brief stream for one person. See CollectBrief.
func (c *Client) Brief(ctx context.Context, queryID, nodeID string, opts BriefOptions) (_ *Stream, err error) {
	start := time.Now()
	defer func() { c.obs.observe("brief", start, err) }()

	p := datasetPath(queryID) + "/nodes/" + url.PathEscape(nodeID) + "/brief"
	return c.openStream(ctx, "brief", http.MethodPost, p, opts)
}

func datasetPath(queryID string) string {
	return "/api/v1/datasets/" + url.PathEscape(queryID)
}

// call performs a JSON request with retries. Statuses in also are decoded
// into out like a 2xx.
func (c *Client) call(
	ctx context.Context, op, method, p string, q url.Values, in, out any, also ...int,
) error {
	body, err := encodeBody(in)
	if err != nil {
		return err
	}

	return c.retry(ctx, op, func() error {
		attemptCtx := ctx
		if c.cfg.timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, c.cfg.timeout)
			defer cancel()
		}

		resp, err := c.send(attemptCtx, method, p, q, body, "application/json")
		if err != nil {
			return transportError(ctx, err)
		}
		defer resp.Body.Close()

		if !ok(resp.StatusCode, also) {
			return errorFrom(resp)
		}
		if out == nil || resp.StatusCode == http.StatusNoContent {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("knowwho: decode %s response: %w", op, err))
		}
		return nil
	})
}

// openStream connects an event stream with retries. Once connected the
// stream is never retried.
func (c *Client) openStream(ctx context.Context, op, method, p string, in any) (*Stream, error) {
	body, err := encodeBody(in)
	if err != nil {
		return nil, err
	}

	var stream *Stream
	err = c.retry(ctx, op, func() error {
		resp, err := c.send(ctx, method, p, nil, body, "text/event-stream")
		if err != nil {
			return transportError(ctx, err)
		}
		if resp.StatusCode != http.StatusOK {
			defer resp.Body.Close()
			return errorFrom(resp)
		}
		stream = NewStream(resp.Body)
		return nil
	})
	return stream, err
}

func (c *Client) retry(ctx context.Context, op string, attempt func() error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.cfg.initialInterval
	eb.MaxInterval = c.cfg.maxInterval
	eb.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.cfg.maxAttempts-1)), ctx)
	notify := func(err error, wait time.Duration) { c.obs.retry(op, err, wait) }
	return backoff.RetryNotify(attempt, b, notify)
}

// send builds and performs one attempt.
func (c *Client) send(
	ctx context.Context, method, p string, q url.Values, body []byte, accept string,
) (*http.Response, error) {
	target := c.baseURL + p
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	var rdr io.Reader = http.NoBody
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("knowwho: build request: %w", err))
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", version.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.apiKey)
	}

	resp, err := c.cfg.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("knowwho: %s %s: %w", method, p, err)
	}
	return resp, nil
}

// transportError keeps transport failures retryable, including an attempt
// timeout, unless the caller's own context is done.
func transportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return backoff.Permanent(err)
	}
	return err
}

func encodeBody(in any) ([]byte, error) {
	if in == nil {
		return nil, nil
	}
	b, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("knowwho: encode request: %w", err)
	}
	return b, nil
}

func ok(status int, also []int) bool {
	if status >= 200 && status < 300 {
		return true
	}
	for _, s := range also {
		if status == s {
			return true
		}
	}
	return false
}

// errorFrom turns a failed response into an *APIError, permanent unless
// the status is retryable.
func errorFrom(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = "http_error"
		apiErr.Message = strings.TrimSpace(string(data))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	if retryable(resp.StatusCode) {
		return apiErr
	}
	return backoff.Permanent(apiErr)
}
