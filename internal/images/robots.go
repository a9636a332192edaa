package images

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
)

// robotsEntry caches robots.txt data for one host
type robotsEntry struct {
	robots    *robotstxt.RobotsData
	fetchTime time.Time
}

// RobotsChecker answers robots.txt questions for image hosts, caching each
// host's rules for cacheDuration.
type RobotsChecker struct {
	client        *http.Client
	userAgent     string
	cacheDuration time.Duration
	logger        *logrus.Entry

	mu    sync.RWMutex
	cache map[string]*robotsEntry
}

func NewRobotsChecker(client *http.Client, userAgent string, cacheDuration time.Duration, logger *logrus.Entry) *RobotsChecker {
	return &RobotsChecker{
		client:        client,
		userAgent:     userAgent,
		cacheDuration: cacheDuration,
		logger:        logger,
		cache:         make(map[string]*robotsEntry),
	}
}

// Allowed checks if rawURL may be fetched according to its host's robots.txt.
// Hosts whose robots.txt cannot be fetched are allowed.
func (rc *RobotsChecker) Allowed(ctx context.Context, rawURL string) bool {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	robotsData, err := rc.getRobotsData(ctx, parsedURL.Scheme, parsedURL.Host)
	if err != nil {
		rc.logger.WithError(err).WithField("host", parsedURL.Host).Warn("Failed to get robots.txt, allowing request")
		return true
	}
	if robotsData == nil {
		return true
	}

	group := robotsData.FindGroup(rc.userAgent)
	if group == nil {
		return true
	}
	return group.Test(parsedURL.Path)
}

// getRobotsData fetches and caches robots.txt data
func (rc *RobotsChecker) getRobotsData(ctx context.Context, scheme, host string) (*robotstxt.RobotsData, error) {
	rc.mu.RLock()
	entry, exists := rc.cache[host]
	rc.mu.RUnlock()

	if exists && time.Since(entry.fetchTime) < rc.cacheDuration {
		return entry.robots, nil
	}

	if scheme == "" {
		scheme = "https"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s://%s/robots.txt", scheme, host), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create robots.txt request: %w", err)
	}
	req.Header.Set("User-Agent", rc.userAgent)

	resp, err := rc.client.Do(req)
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
	rc.mu.Lock()
	rc.cache[host] = &robotsEntry{robots: robotsData, fetchTime: time.Now()}
	rc.mu.Unlock()

	return robotsData, nil
}
