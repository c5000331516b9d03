package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"news-extractor/internal/observability"
)

// RobotsCache fetches and caches robots.txt per scheme and host. Missing or
// unreadable files allow everything.
type RobotsCache struct {
	cache     map[string]*robotsEntry
	ttl       time.Duration
	userAgent string
	client    *http.Client
	mu        sync.RWMutex
	logger    *observability.Logger
}

type robotsEntry struct {
	data      *robotstxt.RobotsData
	expiresAt time.Time
}

func NewRobotsCache(ttl time.Duration, userAgent string, client *http.Client, logger *observability.Logger) *RobotsCache {
	return &RobotsCache{
		cache:     make(map[string]*robotsEntry),
		ttl:       ttl,
		userAgent: userAgent,
		client:    client,
		logger:    logger,
	}
}

// IsAllowed reports whether path on scheme://host may be fetched.
func (rc *RobotsCache) IsAllowed(ctx context.Context, scheme, host, path string) bool {
	key := scheme + "://" + host

	rc.mu.RLock()
	cached, exists := rc.cache[key]
	rc.mu.RUnlock()

	if !exists || time.Now().After(cached.expiresAt) {
		cached = &robotsEntry{data: rc.fetch(ctx, key), expiresAt: time.Now().Add(rc.ttl)}
		rc.mu.Lock()
		rc.cache[key] = cached
		rc.mu.Unlock()
	}

	if cached.data == nil {
		return true
	}
	return cached.data.TestAgent(path, rc.userAgent)
}

func (rc *RobotsCache) fetch(ctx context.Context, origin string) *robotstxt.RobotsData {
	robotsURL := fmt.Sprintf("%s/robots.txt", origin)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", rc.userAgent)

	resp, err := rc.client.Do(req)
	if err != nil {
		rc.logger.Debug("robots.txt unavailable, allowing all", "url", robotsURL, "error", err.Error())
		return nil
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			rc.logger.Warn("Failed to close response body", "error", err.Error())
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512<<10))
	if err != nil {
		return nil
	}

	// FromStatusAndBytes allows everything on 4xx and disallows on 5xx.
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		rc.logger.Debug("robots.txt unparsable, allowing all", "url", robotsURL, "error", err.Error())
		return nil
	}
	return data
}
