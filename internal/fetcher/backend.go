// Package fetcher implements the page drivers: Backend issues plain HTTP
// requests and parses the response, Frontend renders pages in Chrome.
package fetcher

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/html/charset"

	"news-extractor/internal/config"
	"news-extractor/internal/dom"
	"news-extractor/internal/observability"
)

// errBodyTooLarge fails a response that exceeds http.max_body_bytes; a
// truncated document would read as missing fields.
var errBodyTooLarge = errors.New("response body too large")

// Backend fetches pages over HTTP with retries, per-host rate limiting and
// an optional robots.txt check. It is safe for concurrent use.
type Backend struct {
	client      *http.Client
	cfg         *config.Config
	logger      *observability.Logger
	robotsCache *RobotsCache
	rateLimiter *RateLimiter
}

// Response is a raw HTTP response with its body already read and
// decompressed.
type Response struct {
	StatusCode int
	Body       []byte
	URL        string
	Headers    http.Header
}

func NewBackend(cfg *config.Config, logger *observability.Logger) (*Backend, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.GetConnectTimeout(),
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: cfg.GetConnectTimeout(),
		MaxIdleConns:        cfg.HTTP.MaxIdleConnections,
		MaxIdleConnsPerHost: cfg.HTTP.MaxIdleConnectionsPerHost,
		IdleConnTimeout:     cfg.GetIdleConnectionTimeout(),
	}
	if cfg.HTTP.Proxy != "" {
		proxyURL, err := url.Parse(cfg.HTTP.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid http.proxy: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	client := &http.Client{
		Timeout:   cfg.GetTotalTimeout(),
		Transport: otelhttp.NewTransport(transport),
	}

	b := &Backend{
		client:      client,
		cfg:         cfg,
		logger:      logger,
		rateLimiter: NewRateLimiter(cfg.RateLimit.MaxConcurrentPerHost, cfg.RateLimit.RPM),
	}
	if cfg.Robots.Enabled {
		agent := cfg.Robots.UserAgent
		if agent == "" {
			agent = cfg.HTTP.UserAgent
		}
		b.robotsCache = NewRobotsCache(cfg.GetRobotsCacheTTL(), agent, client, logger)
	}
	return b, nil
}

// Navigate fetches urlStr and parses it into a static document. Redirects
// are followed; the document URL is the final one.
func (b *Backend) Navigate(ctx context.Context, urlStr string) (dom.Page, error) {
	resp, err := b.Get(ctx, urlStr)
	if err != nil {
		return nil, err
	}

	reader, err := charset.NewReader(bytes.NewReader(resp.Body), resp.Headers.Get("Content-Type"))
	if err != nil {
		return nil, &FetchError{Kind: Unreachable, URL: urlStr, Err: fmt.Errorf("decode body: %w", err)}
	}

	doc, err := dom.Parse(reader, resp.URL)
	if err != nil {
		return nil, &FetchError{Kind: Unreachable, URL: urlStr, Err: fmt.Errorf("parse html: %w", err)}
	}
	return doc, nil
}

// GetBody returns the body of a successful response.
func (b *Backend) GetBody(ctx context.Context, urlStr string) ([]byte, error) {
	resp, err := b.Get(ctx, urlStr)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Admit applies the robots.txt check and takes a per-host rate limit slot
// for urlStr. The caller must call release once the request is done. The
// frontend goes through the same gate so both drivers share one budget.
func (b *Backend) Admit(ctx context.Context, urlStr string) (release func(), err error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil || parsedURL.Host == "" {
		if err == nil {
			err = fmt.Errorf("missing host")
		}
		return nil, &FetchError{Kind: Unreachable, URL: urlStr, Err: fmt.Errorf("invalid URL: %w", err)}
	}

	host := parsedURL.Host

	if b.robotsCache != nil && !b.robotsCache.IsAllowed(ctx, parsedURL.Scheme, host, parsedURL.RequestURI()) {
		return nil, &FetchError{Kind: Disallowed, URL: urlStr}
	}

	release, err = b.rateLimiter.Acquire(ctx, host)
	if err != nil {
		return nil, classify(urlStr, fmt.Errorf("rate limit: %w", err))
	}
	return release, nil
}

// Get fetches urlStr. Transport failures, 5xx and 429 are retried with
// exponential backoff; any status >= 400 left after retries is a
// *FetchError of kind HTTPStatus.
func (b *Backend) Get(ctx context.Context, urlStr string) (*Response, error) {
	release, err := b.Admit(ctx, urlStr)
	if err != nil {
		return nil, err
	}
	defer release()

	var lastErr error
	for attempt := 0; attempt <= b.cfg.HTTP.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := b.calculateBackoff(attempt)
			b.logger.Debug("Retrying request",
				"url", urlStr,
				"attempt", attempt,
				"backoff", backoff.String(),
				"error", lastErr.Error(),
			)
			timer := time.NewTimer(backoff)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, classify(urlStr, ctx.Err())
			}
		}

		resp, err := b.fetchOnce(ctx, urlStr)
		if errors.Is(err, errBodyTooLarge) {
			return nil, err
		}
		if err != nil {
			lastErr = classify(urlStr, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}

		// Retry on 5xx or 429
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			lastErr = statusError(urlStr, resp.StatusCode)
			continue
		}
		if resp.StatusCode >= 400 {
			return nil, statusError(urlStr, resp.StatusCode)
		}

		return resp, nil
	}

	return nil, lastErr
}

func (b *Backend) fetchOnce(ctx context.Context, urlStr string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", b.cfg.HTTP.UserAgent)
	if b.cfg.HTTP.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", b.cfg.HTTP.AcceptLanguage)
	}
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			b.logger.Warn("Failed to close response body", "url", urlStr, "error", err.Error())
		}
	}()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer func() { _ = gzipReader.Close() }()
		reader = gzipReader
	}
	if b.cfg.HTTP.MaxBodyBytes > 0 {
		reader = io.LimitReader(reader, b.cfg.HTTP.MaxBodyBytes+1)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if limit := b.cfg.HTTP.MaxBodyBytes; limit > 0 && int64(len(body)) > limit {
		return nil, &FetchError{
			Kind: Unreachable,
			URL:  urlStr,
			Err:  fmt.Errorf("%w: more than %d bytes", errBodyTooLarge, limit),
		}
	}

	b.logger.Debug("Response received",
		"url", urlStr,
		"status", resp.StatusCode,
		"content_encoding", resp.Header.Get("Content-Encoding"),
		"content_type", resp.Header.Get("Content-Type"),
		"body_bytes", len(body),
	)

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		URL:        resp.Request.URL.String(),
		Headers:    resp.Header,
	}, nil
}

func (b *Backend) calculateBackoff(attempt int) time.Duration {
	minMS := b.cfg.Backoff.MinMS
	maxMS := b.cfg.Backoff.MaxMS
	jitterPct := b.cfg.Backoff.JitterPct

	// Exponential backoff: min * 2^(attempt-1)
	exponential := minMS
	for i := 1; i < attempt && exponential < maxMS; i++ {
		exponential *= 2
	}
	if exponential > maxMS {
		exponential = maxMS
	}

	// Apply jitter: ±jitterPct%
	jitterRange := float64(exponential) * float64(jitterPct) / 100
	jitter := (rand.Float64() - 0.5) * 2 * jitterRange
	finalMS := float64(exponential) + jitter

	if finalMS < float64(minMS) {
		finalMS = float64(minMS)
	}

	return time.Duration(math.Max(finalMS, 0)) * time.Millisecond
}

// Close drops idle connections.
func (b *Backend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}
