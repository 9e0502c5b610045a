// Package httd implements the REST side of the runtime: route compilation,
// per-bucket rate-limit admission, and the retrying HTTP client built on
// top of both. The shape (Client/Config/ErrREST) continues the upstream
// disgord package's own internal/httd idiom; the algorithms behind it are
// the platform-accurate rate-limit and retry semantics.
package httd

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/net/http2"

	json "github.com/nyxcord/nyxcord/internal/json"
	"github.com/nyxcord/nyxcord/internal/nyxerr"
)

const (
	DefaultBaseURL = "https://discord.com/api/v10"

	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"
)

// Logger is the minimal pluggable logging seam every subsystem accepts.
type Logger interface {
	Debug(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debug(...interface{}) {}
func (noopLogger) Warn(...interface{})  {}
func (noopLogger) Error(...interface{}) {}

// RetryPolicy governs the HTTP client's backoff.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 10, BaseDelay: 250 * time.Millisecond, MaxDelay: 10 * time.Second}
}

// Backoff computes base*2^(attempt-1), capped at MaxDelay. attempt is 1-indexed.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	exp := attempt - 1
	if exp > 20 {
		exp = 20
	}
	d := time.Duration(float64(p.BaseDelay) * math.Pow(2, float64(exp)))
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Config configures a Client.
type Config struct {
	BaseURL    string
	BotToken   string
	HTTPClient *http.Client
	UserAgent  string
	Timeout    time.Duration
	Retry      RetryPolicy
	Logger     Logger
}

// ErrREST is the Discord-specific REST error shape, decoded best-effort
// from a non-2xx body; it also carries enough information to construct the
// unified *nyxerr.Err the rest of the runtime expects.
type ErrREST struct {
	Code     int64  `json:"code"`
	Message  string `json:"message"`
	HTTPCode int    `json:"-"`
	Body     []byte `json:"-"`
}

func (e *ErrREST) Error() string {
	return fmt.Sprintf("httd: status %d: %s", e.HTTPCode, e.Message)
}

// ToErr converts the Discord-shaped REST error into the unified taxonomy.
func (e *ErrREST) ToErr() *nyxerr.Err {
	var code *int64
	if e.Code != 0 {
		code = &e.Code
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Body)
	}
	return nyxerr.FromApi(&nyxerr.ApiError{Status: e.HTTPCode, Code: code, Message: msg})
}

// inFlight tracks live requests so Shutdown can drain before returning.
type inFlight struct {
	count  atomic.Int64
	closed atomic.Bool
	done   chan struct{}
}

func newInFlight() *inFlight {
	return &inFlight{done: make(chan struct{})}
}

func (f *inFlight) enter() bool {
	if f.closed.Load() {
		return false
	}
	f.count.Inc()
	return true
}

func (f *inFlight) leave() {
	if f.count.Dec() == 0 && f.closed.Load() {
		select {
		case <-f.done:
		default:
			close(f.done)
		}
	}
}

func (f *inFlight) shutdown(ctx context.Context) error {
	f.closed.Store(true)
	if f.count.Load() == 0 {
		return nil
	}
	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Client is the runtime's REST client: route compilation, rate-limit
// admission, and retries, wired around net/http.
type Client struct {
	cfg      Config
	limiter  *RateLimiter
	logger   Logger
	inFlight *inFlight
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "DiscordBot (https://github.com/nyxcord/nyxcord, 1.0)"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.Retry == (RetryPolicy{}) {
		cfg.Retry = DefaultRetryPolicy()
	}
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}
	if cfg.HTTPClient == nil {
		transport := &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          500,
			MaxIdleConnsPerHost:   100,
			MaxConnsPerHost:       200,
			IdleConnTimeout:       120 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			ForceAttemptHTTP2:     true,
			TLSClientConfig:       &tls.Config{},
		}
		_ = http2.ConfigureTransport(transport)
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout, Transport: transport}
	}

	return &Client{
		cfg:      cfg,
		limiter:  NewRateLimiter(),
		logger:   cfg.Logger,
		inFlight: newInFlight(),
	}, nil
}

// Shutdown marks the client closed and waits for in-flight requests to
// drain, or for ctx to be done.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.inFlight.shutdown(ctx)
}

// RequestJSON issues a request, decoding a JSON response body into a value
// of type Resp. A 204 response yields the zero value. It is a free function
// rather than a method because Go methods cannot introduce new type
// parameters.
func RequestJSON[Resp any](ctx context.Context, c *Client, endpoint Endpoint, query *QueryValues, params map[string]string, body interface{}) (Resp, error) {
	var out Resp
	respBody, status, err := c.do(ctx, endpoint, query, params, body)
	if err != nil {
		return out, err
	}
	if status == http.StatusNoContent || len(respBody) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return out, nyxerr.FromProtocol(nyxerr.NewJsonError(err))
	}
	return out, nil
}

// RequestUnit issues a request and discards the response body.
func (c *Client) RequestUnit(ctx context.Context, endpoint Endpoint, query *QueryValues, params map[string]string, body interface{}) error {
	_, _, err := c.do(ctx, endpoint, query, params, body)
	return err
}

func (c *Client) do(ctx context.Context, endpoint Endpoint, query *QueryValues, params map[string]string, body interface{}) ([]byte, int, error) {
	compiled, err := Compile(endpoint, query, params)
	if err != nil {
		return nil, 0, err
	}

	if !c.inFlight.enter() {
		return nil, 0, nyxerr.FromState(nyxerr.NewClosed())
	}
	defer c.inFlight.leave()

	var bodyBytes []byte
	if body != nil {
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, 0, nyxerr.FromProtocol(nyxerr.NewJsonError(err))
		}
	}

	for attempt := 1; ; attempt++ {
		lease, err := c.limiter.Acquire(ctx, compiled)
		if err != nil {
			return nil, 0, err
		}

		req, reqErr := http.NewRequestWithContext(ctx, compiled.Method.String(), c.cfg.BaseURL+compiled.URL, bytes.NewReader(bodyBytes))
		if reqErr != nil {
			lease.Release()
			return nil, 0, nyxerr.FromTransport(&nyxerr.TransportError{Kind: nyxerr.TransportOther, Message: "build request", Cause: reqErr})
		}
		req.Header.Set("User-Agent", c.cfg.UserAgent)
		req.Header.Set("Accept", contentTypeJSON)
		if compiled.Auth.RequiresBot() {
			if c.cfg.BotToken == "" {
				lease.Release()
				return nil, 0, nyxerr.FromState(nyxerr.NewMissing("bot_token"))
			}
			req.Header.Set("Authorization", "Bot "+c.cfg.BotToken)
		}
		if bodyBytes != nil {
			req.Header.Set(headerContentType, contentTypeJSON)
		}

		c.logger.Debug("httd: attempt", attempt, compiled.Method, compiled.URL)
		resp, doErr := c.cfg.HTTPClient.Do(req)
		if doErr != nil {
			_ = c.limiter.Update(lease, nil)
			lease.Release()
			if attempt > c.cfg.Retry.MaxRetries {
				return nil, 0, nyxerr.FromTransport(&nyxerr.TransportError{Kind: nyxerr.TransportIO, Message: "request failed", Cause: doErr})
			}
			if sleepErr := sleepUntil(ctx, time.Now().Add(c.cfg.Retry.Backoff(attempt))); sleepErr != nil {
				return nil, 0, sleepErr
			}
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		rlErr := c.limiter.Update(lease, resp)
		lease.Release()

		if readErr != nil {
			return nil, 0, nyxerr.FromTransport(&nyxerr.TransportError{Kind: nyxerr.TransportIO, Message: "read body", Cause: readErr})
		}

		if rlErr != nil {
			if attempt > c.cfg.Retry.MaxRetries {
				return nil, 0, rlErr
			}
			wait := rlErr.RateLimit.RetryAfter
			backoff := c.cfg.Retry.Backoff(attempt)
			if backoff > wait {
				wait = backoff
			}
			if sleepErr := sleepUntil(ctx, time.Now().Add(wait)); sleepErr != nil {
				return nil, 0, sleepErr
			}
			continue
		}

		if resp.StatusCode == http.StatusNotModified || (resp.StatusCode >= 200 && resp.StatusCode < 300) {
			return respBody, resp.StatusCode, nil
		}

		apiErr := &ErrREST{HTTPCode: resp.StatusCode, Body: respBody}
		if len(respBody) > 0 {
			_ = json.Unmarshal(respBody, apiErr)
		}
		return nil, resp.StatusCode, apiErr.ToErr()
	}
}
