package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"stringshare/internal/logging"
	"stringshare/internal/metrics"
	"stringshare/internal/session"
)

// Navigator is asked to present the sign-in surface after an authorization
// failure. The view layer implements it.
type Navigator interface {
	ShowSignIn()
}

// Options tunes a Client.
type Options struct {
	Endpoint    string
	Timeout     time.Duration
	RPS         float64
	Burst       int
	MaxAttempts int
	BaseBackoff time.Duration
}

// Client issues every request the engine makes. It decorates requests with the
// current session token, rate-limits and retries them, and reacts to
// authorization failures exactly once per signed-in session.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	limiter     *rate.Limiter
	session     *session.Store
	nav         Navigator
	maxAttempts int
	baseBackoff time.Duration

	tokenMu sync.Mutex
	token   string

	// expireMu serializes 401 handling so concurrent failures clear and
	// redirect once.
	expireMu sync.Mutex
}

func NewClient(opts Options, sess *session.Store, nav Navigator) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	baseBackoff := opts.BaseBackoff
	if baseBackoff <= 0 {
		baseBackoff = 500 * time.Millisecond
	}
	c := &Client{
		baseURL:     strings.TrimRight(opts.Endpoint, "/"),
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     newLimiter(opts.RPS, opts.Burst),
		session:     sess,
		nav:         nav,
		maxAttempts: maxAttempts,
		baseBackoff: baseBackoff,
		token:       sess.Token(),
	}
	sess.Subscribe(func(token string) {
		c.tokenMu.Lock()
		c.token = token
		c.tokenMu.Unlock()
	})
	return c
}

// SetHTTPClient swaps the underlying http.Client; tests use it.
func (c *Client) SetHTTPClient(h *http.Client) { c.httpClient = h }

func (c *Client) currentToken() string {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	return c.token
}

// GetJSON issues a GET and decodes the response body into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, "", nil, out)
}

// PostJSON issues a POST with a JSON body.
func (c *Client) PostJSON(ctx context.Context, path string, body any, out any) error {
	var b []byte
	if body != nil {
		var err error
		b, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}
	return c.do(ctx, http.MethodPost, path, "application/json", b, out)
}

// PostForm issues a POST with a form-encoded body.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values, out any) error {
	return c.do(ctx, http.MethodPost, path, "application/x-www-form-urlencoded", []byte(form.Encode()), out)
}

// PostMultipart issues a POST with a single file field.
func (c *Client) PostMultipart(ctx context.Context, path, field, filename string, file io.Reader, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(field, filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, file); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, w.FormDataContentType(), buf.Bytes(), out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte, out any) error {
	rid := uuid.NewString()[:8]
	start := time.Now()
	authed := c.currentToken() != ""
	logging.Info("request_start", map[string]any{"rid": rid, "method": method, "path": path})

	if err := c.limiter.Wait(ctx); err != nil {
		metrics.IncRequest("network_error")
		return &NetworkError{Err: err}
	}
	resp, err := c.doWithRetry(ctx, method, path, contentType, body, rid)
	if err != nil {
		metrics.IncRequest("network_error")
		logging.Error("request_failed", map[string]any{"rid": rid, "path": path, "error": err.Error()})
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()
	metrics.ObserveRequestDuration(start)
	logging.Info("request_done", map[string]any{
		"rid": rid, "path": path, "status": resp.StatusCode,
		"ms": time.Since(start).Milliseconds(),
	})

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if !authed {
			// A 401 on an unauthenticated call (bad credentials on /token)
			// is not session expiry.
			metrics.IncRequest("client_error")
			return &APIError{Status: resp.StatusCode, Detail: readDetail(resp.Body)}
		}
		c.handleUnauthorized(ctx)
		metrics.IncRequest("auth_expired")
		return ErrAuthExpired
	case resp.StatusCode == http.StatusNotFound:
		metrics.IncRequest("not_found")
		return ErrNotFound
	case resp.StatusCode >= 500:
		metrics.IncRequest("server_error")
		return &ServerError{Status: resp.StatusCode}
	case resp.StatusCode >= 400:
		metrics.IncRequest("client_error")
		return &APIError{Status: resp.StatusCode, Detail: readDetail(resp.Body)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			metrics.IncRequest("network_error")
			return &NetworkError{Err: fmt.Errorf("decode %s: %w", path, err)}
		}
	}
	metrics.IncRequest("ok")
	return nil
}

// handleUnauthorized clears the session and asks for the sign-in surface. The
// expireMu plus the empty-token check make this happen once even when several
// in-flight requests fail together. Clearing touches only local storage, so no
// further request is issued from here.
func (c *Client) handleUnauthorized(ctx context.Context) {
	c.expireMu.Lock()
	defer c.expireMu.Unlock()
	if c.currentToken() == "" {
		return
	}
	if err := c.session.Clear(ctx); err != nil {
		logging.Error("session_clear_failed", map[string]any{"error": err.Error()})
	}
	metrics.AuthExpirations.Inc()
	logging.Warn("auth_expired", nil)
	if c.nav != nil {
		c.nav.ShowSignIn()
	}
}

func (c *Client) newRequest(ctx context.Context, method, path, contentType, rid string, body []byte) (*http.Request, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", rid)
	if token := c.currentToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) doWithRetry(ctx context.Context, method, path, contentType string, body []byte, rid string) (*http.Response, error) {
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		req, err := c.newRequest(ctx, method, path, contentType, rid, body)
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req)
		if err == nil {
			retryable := resp.StatusCode == http.StatusTooManyRequests ||
				(resp.StatusCode >= 500 && resp.StatusCode <= 599)
			if !retryable || attempt == c.maxAttempts {
				return resp, nil
			}
			ra := resp.Header.Get("Retry-After")
			_ = resp.Body.Close()
			metrics.IncAPIRetry(path)
			wait := backoff
			if ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil {
					wait = time.Duration(secs) * time.Second
				} else if t, err := http.ParseTime(ra); err == nil {
					if d := time.Until(t); d > 0 {
						wait = d
					}
				}
			}
			// jitter +/-20%
			jitter := time.Duration(float64(wait) * 0.2)
			if jitter > 0 {
				wait = wait - jitter + time.Duration(time.Now().UnixNano()%int64(2*jitter))
			}
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
			continue
		}
		lastErr = err
		if attempt == c.maxAttempts {
			break
		}
		metrics.IncAPIRetry(path)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("request failed after %d attempts: %v", c.maxAttempts, lastErr)
}

func readDetail(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 1<<10))
	return strings.TrimSpace(string(b))
}
