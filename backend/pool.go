// Package backend provides HTTP clients for the upstream systems the metadata
// service aggregates: the Umami analytics backend, the fediverse instance that
// hosts linked notes, and the site's published post index.
package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/ddevcap/blog-metadata/config"
)

// maxResponseBytes caps how much of an upstream body is read into memory.
const maxResponseBytes = 8 << 20

// Pool owns the shared HTTP client used for every upstream call and hands out
// the per-upstream clients. A single Pool is created at startup.
type Pool struct {
	cfg        config.Config
	jsonClient *http.Client
}

func NewPool(cfg config.Config) *Pool {
	timeout := cfg.UpstreamTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: timeout,
		MaxIdleConnsPerHost:   10,
	}
	return &Pool{
		cfg: cfg,
		jsonClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}
}

// Analytics returns a client for the configured Umami instance.
func (p *Pool) Analytics() *UmamiClient {
	return &UmamiClient{baseURL: trimBase(p.cfg.UmamiURL), pool: p}
}

// Social returns a client for the configured fediverse instance.
func (p *Pool) Social() *FediverseClient {
	return &FediverseClient{baseURL: trimBase(p.cfg.FediverseURL), pool: p}
}

// Index returns a client for the site's published post index.
func (p *Pool) Index() *IndexClient {
	return &IndexClient{baseURL: trimBase(p.cfg.IndexURL), pool: p}
}

// request describes one JSON round trip to an upstream.
type request struct {
	method string
	url    string
	query  url.Values
	token  string
	body   any
}

// doJSON performs the request and decodes a 2xx JSON body into out (which may
// be nil to discard it). Non-2xx statuses are returned as ErrTransport wrapped
// in a statusError so callers can classify them with statusOf.
func (p *Pool) doJSON(ctx context.Context, r request, out any) error {
	var reqBody io.Reader
	if r.body != nil {
		raw, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	u := r.url
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, reqBody)
	if err != nil {
		return fmt.Errorf("%w: building request: %v", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	slog.Debug("upstream request", "method", r.method, "url", r.url)

	resp, err := p.jsonClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrTransport, r.method, r.url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: reading response from %s: %v", ErrTransport, r.url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &statusError{
			status: resp.StatusCode,
			err:    fmt.Errorf("%w: %s %s returned %d", ErrTransport, r.method, r.url, resp.StatusCode),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decoding response from %s: %v", ErrDecode, r.url, err)
	}
	return nil
}

func trimBase(raw string) string {
	return strings.TrimRight(raw, "/")
}
