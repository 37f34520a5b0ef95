// File: internal/network/executor.go
package network

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/raccoon-cli/api/schemas"
)

// httpDoer is the slice of *http.Client the executor needs. Satisfied by
// *Client and by bare http.Clients in tests.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ExecutorConfig configures request execution against one target.
type ExecutorConfig struct {
	// BaseURL is the target every relative action path resolves against.
	BaseURL string
	// RequestsPerSecond enables a client-side rate limit when positive.
	// Zero means unlimited.
	RequestsPerSecond float64
	// Headers are applied to every outgoing request before the action's own
	// headers, so actions can still override them.
	Headers map[string]string
}

// Executor turns proposed request actions into real HTTP calls against the
// configured target and normalizes the replies. It is safe for concurrent
// use.
type Executor struct {
	base    *url.URL
	client  httpDoer
	limiter *rate.Limiter
	extra   map[string]string
	logger  *zap.Logger
}

// NewExecutor builds an executor bound to the configured base URL.
func NewExecutor(cfg ExecutorConfig, client httpDoer, logger *zap.Logger) (*Executor, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must include a scheme and host", cfg.BaseURL)
	}
	if client == nil {
		client = NewClient(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Executor{
		base:    base,
		client:  client,
		limiter: limiter,
		extra:   cfg.Headers,
		logger:  logger.Named("executor"),
	}, nil
}

// Execute performs one proposed request and returns the normalized response.
// Transport failures (refused connections, TLS errors, timeouts) are returned
// as errors; the caller decides how they surface.
func (e *Executor) Execute(ctx context.Context, req *schemas.Request) (*schemas.Response, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter interrupted: %w", err)
		}
	}

	target, err := e.resolveURL(req)
	if err != nil {
		return nil, err
	}

	body, contentType := prepareBody(req.Body)

	httpReq, err := http.NewRequestWithContext(ctx, strings.ToUpper(req.Method), target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request %s %s: %w", req.Method, req.Path, err)
	}

	for name, value := range e.extra {
		httpReq.Header.Set(name, value)
	}
	// Action headers last, so a proposed header wins over a configured one.
	// Duplicate names within the action follow map semantics: last write wins.
	for _, h := range req.Headers {
		httpReq.Header.Set(h.Name, h.Value)
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	httpResp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &schemas.Response{
		StatusCode: httpResp.StatusCode,
		Headers:    flattenHeaders(httpResp.Header),
		Body:       strings.TrimSpace(string(respBody)),
	}, nil
}

// resolveURL resolves the action path against the base URL and appends the
// action's query parameters in list order. Absolute URLs pass through
// untouched except for the parameters.
func (e *Executor) resolveURL(req *schemas.Request) (string, error) {
	ref, err := url.Parse(req.Path)
	if err != nil {
		return "", fmt.Errorf("invalid request path %q: %w", req.Path, err)
	}
	resolved := e.base.ResolveReference(ref)

	if len(req.URLParams) > 0 {
		query := resolved.Query()
		for _, p := range req.URLParams {
			query.Add(p.Name, p.Value)
		}
		resolved.RawQuery = query.Encode()
	}

	return resolved.String(), nil
}

// prepareBody implements the body dispatch rule: a body that decodes as JSON
// is re-encoded compactly and sent as a JSON payload; anything else is sent
// verbatim with no forced content type. A decode failure is not an error.
func prepareBody(body string) (io.Reader, string) {
	if body == "" {
		return nil, ""
	}

	var decoded interface{}
	if err := json.UnmarshalFromString(body, &decoded); err == nil {
		if encoded, err := json.MarshalToString(decoded); err == nil {
			return strings.NewReader(encoded), "application/json"
		}
	}

	return strings.NewReader(body), ""
}

// flattenHeaders produces one entry per header key, sorted for determinism,
// with multi-valued headers comma-joined.
func flattenHeaders(h http.Header) []schemas.Header {
	if len(h) == 0 {
		return nil
	}
	keys := make([]string, 0, len(h))
	for key := range h {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]schemas.Header, 0, len(keys))
	for _, key := range keys {
		out = append(out, schemas.Header{
			Name:  key,
			Value: strings.Join(h.Values(key), ", "),
		})
	}
	return out
}
