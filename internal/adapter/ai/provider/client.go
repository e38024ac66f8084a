package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/specvital/codedoc/internal/adapter/ai/reliability"
	"github.com/specvital/codedoc/internal/domain/docgen"
)

const (
	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 8 << 20

	maxErrorBodyLen = 256
)

// SDKTransport sends Gemini-family requests through a vendor SDK and returns the
// response serialized as JSON.
type SDKTransport interface {
	Send(ctx context.Context, model docgen.ModelDescriptor, endpoint string, req *GeminiRequest) ([]byte, error)
}

// CallObserver is notified once per finished model call.
type CallObserver interface {
	ObserveCall(model string, family Family, provenance docgen.Provenance, duration time.Duration)
}

// Limiter throttles outbound calls.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for JSON-over-HTTP families.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithGeminiTransport sets the transport used for the Gemini family.
func WithGeminiTransport(t SDKTransport) Option {
	return func(c *Client) {
		c.gemini = t
	}
}

// WithLimiter throttles every call through l.
func WithLimiter(l Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithObserver registers a call observer, e.g. a metrics recorder.
func WithObserver(o CallObserver) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// Client calls model endpoints. It implements docgen.ModelCaller: every failure is
// converted into an error result and no call ever panics to its caller.
type Client struct {
	gemini     SDKTransport
	httpClient *http.Client
	limiter    Limiter
	observer   CallObserver
}

var _ docgen.ModelCaller = (*Client)(nil)

// NewClient creates a client with a pooled HTTP transport.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 16,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ErrorText is the text of a result whose call failed.
func ErrorText(modelName string) string {
	return docgen.CallErrorText(modelName)
}

// Generate resolves the endpoint, builds the payload and performs the call.
func (c *Client) Generate(ctx context.Context, m docgen.ModelDescriptor, userPrompt string) (result docgen.GenerationResult) {
	start := time.Now()
	family := Classify(m)
	defer func() {
		if r := recover(); r != nil {
			result = c.fail(ctx, m, family, start, fmt.Errorf("panic while preparing request: %v", r))
		}
	}()

	endpoint, err := ResolveEndpoint(m)
	if err != nil {
		return c.fail(ctx, m, family, start, err)
	}
	payload, err := BuildRequest(m, userPrompt)
	if err != nil {
		return c.fail(ctx, m, family, start, err)
	}
	return c.Call(ctx, m, endpoint, payload)
}

// Call sends payload to endpoint, bounded by the model's timeout.
func (c *Client) Call(ctx context.Context, m docgen.ModelDescriptor, endpoint string, payload any) (result docgen.GenerationResult) {
	start := time.Now()
	family := Classify(m)
	defer func() {
		if r := recover(); r != nil {
			result = c.fail(ctx, m, family, start, fmt.Errorf("panic during call: %v", r))
		}
	}()

	slog.DebugContext(ctx, "model call started",
		"model", m.Name,
		"family", family,
		"endpoint", endpoint,
	)

	callCtx := ctx
	if m.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(callCtx); err != nil {
			return c.fail(ctx, m, family, start, err)
		}
	}

	var (
		body []byte
		err  error
	)
	if family == FamilyGemini {
		body, err = c.sendGemini(callCtx, m, endpoint, payload)
	} else {
		body, err = c.post(callCtx, m, family, endpoint, payload)
	}
	if err != nil {
		return c.fail(ctx, m, family, start, err)
	}

	text := ParseResponse(string(body), m)
	duration := time.Since(start)

	slog.DebugContext(ctx, "model call succeeded",
		"model", m.Name,
		"family", family,
		"duration_ms", duration.Milliseconds(),
		"chars", len(text),
	)
	c.observe(m.Name, family, docgen.ProvenanceSuccess, duration)

	return docgen.GenerationResult{
		Duration:   duration,
		Model:      m.Name,
		Provenance: docgen.ProvenanceSuccess,
		Text:       text,
	}
}

func (c *Client) sendGemini(ctx context.Context, m docgen.ModelDescriptor, endpoint string, payload any) ([]byte, error) {
	if c.gemini == nil {
		return nil, &ConfigError{Model: m.Name, Message: "gemini transport not configured"}
	}
	req, ok := payload.(*GeminiRequest)
	if !ok {
		return nil, fmt.Errorf("%w: gemini payload has type %T", docgen.ErrConfiguration, payload)
	}
	return c.gemini.Send(ctx, m, endpoint, req)
}

func (c *Client) post(ctx context.Context, m docgen.ModelDescriptor, family Family, endpoint string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if family != FamilyLocal && strings.TrimSpace(m.APIKey) != "" {
		req.Header.Set("Authorization", "Bearer "+m.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", docgen.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", docgen.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if reliability.IsTimeoutStatusCode(resp.StatusCode) {
			return nil, fmt.Errorf("%w: status %d", docgen.ErrTimeout, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: status %d: %s", docgen.ErrUnexpectedBody, resp.StatusCode, truncate(string(body), maxErrorBodyLen))
	}
	return body, nil
}

func (c *Client) fail(ctx context.Context, m docgen.ModelDescriptor, family Family, start time.Time, err error) docgen.GenerationResult {
	duration := time.Since(start)
	provenance := reliability.Classify(err)

	msg := "model call failed"
	if provenance == docgen.ProvenanceTimedOut {
		msg = "model call timed out"
	}
	slog.WarnContext(ctx, msg,
		"model", m.Name,
		"family", family,
		"duration_ms", duration.Milliseconds(),
		"error", err,
	)
	c.observe(m.Name, family, provenance, duration)

	return docgen.GenerationResult{
		Duration:   duration,
		Model:      m.Name,
		Provenance: provenance,
		Text:       ErrorText(m.Name),
	}
}

func (c *Client) observe(model string, family Family, provenance docgen.Provenance, d time.Duration) {
	if c.observer == nil {
		return
	}
	defer func() {
		// a broken observer must not turn a result into a panic
		_ = recover()
	}()
	c.observer.ObserveCall(model, family, provenance, d)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
