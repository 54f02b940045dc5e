package politeness

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"

	"github.com/knowledge-engine/bookmarks/internal/config"
)

// RobotsPolicy answers whether a URL may be fetched according to the
// site's robots.txt. Results are cached per host.
type RobotsPolicy struct {
	userAgent string
	cacheTTL  time.Duration
	client    *http.Client
	logger    *logrus.Entry

	mu    sync.RWMutex
	cache map[string]*robotsEntry
}

// robotsEntry caches robots.txt data; robots is nil when the site has none
type robotsEntry struct {
	robots    *robotstxt.RobotsData
	fetchTime time.Time
}

// NewRobotsPolicy creates a robots.txt checker
func NewRobotsPolicy(cfg config.FetcherConfig, logger *logrus.Entry) *RobotsPolicy {
	if logger == nil {
		logger = logrus.WithField("component", "robots_policy")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RobotsPolicy{
		userAgent: cfg.UserAgent,
		cacheTTL:  cfg.RobotsCacheTTL,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
		cache:     make(map[string]*robotsEntry),
	}
}

// Allowed checks if URL is allowed according to robots.txt
func (p *RobotsPolicy) Allowed(ctx context.Context, rawURL string) (bool, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Host == "" {
		return false, fmt.Errorf("URL must have a host")
	}

	robotsData, err := p.getRobotsData(ctx, parsedURL)
	if err != nil {
		return false, err
	}
	if robotsData == nil {
		return true, nil // No robots.txt found, allow request
	}

	group := robotsData.FindGroup(p.userAgent)
	if group == nil {
		return true, nil // No specific rules for our user agent
	}

	path := parsedURL.EscapedPath()
	if path == "" {
		path = "/"
	}
	return group.Test(path), nil
}

// CacheSize returns the number of cached hosts.
// This is primarily intended for monitoring and testing.
func (p *RobotsPolicy) CacheSize() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.cache)
}

// getRobotsData fetches and caches robots.txt data
func (p *RobotsPolicy) getRobotsData(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	host := target.Host

	p.mu.RLock()
	entry, exists := p.cache[host]
	p.mu.RUnlock()

	if exists && time.Since(entry.fetchTime) < p.cacheTTL {
		return entry.robots, nil
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", target.Scheme, host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create robots.txt request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	var robotsData *robotstxt.RobotsData
	if resp.StatusCode == http.StatusOK {
		robotsData, err = robotstxt.FromResponse(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to parse robots.txt: %w", err)
		}
	}

	// Cache the result (even if nil for 404s)
	p.mu.Lock()
	p.cache[host] = &robotsEntry{
		robots:    robotsData,
		fetchTime: time.Now(),
	}
	p.mu.Unlock()

	p.logger.WithFields(logrus.Fields{
		"host":   host,
		"status": resp.StatusCode,
	}).Debug("Cached robots.txt")

	return robotsData, nil
}
