package images

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/beauty-engine/backend/internal/config"
)

// maxImageBytes caps a single download.
const maxImageBytes = 10 << 20

var (
	ErrDisallowed = errors.New("blocked by robots.txt")
	ErrTooSmall   = errors.New("image too small")
)

// fetchResult is what a successful download yields.
type fetchResult struct {
	data        []byte
	contentType string
}

// Fetcher downloads images politely: one rate limiter per host, an optional
// robots.txt check and a circuit breaker shared by all hosts.
type Fetcher struct {
	client    *http.Client
	userAgent string
	minBytes  int
	hostRate  rate.Limit
	hostBurst int
	robots    *RobotsChecker
	breaker   *gobreaker.CircuitBreaker[fetchResult]
	logger    *logrus.Entry

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewFetcher(cfg config.ImagesConfig, logger *logrus.Entry) *Fetcher {
	if logger == nil {
		logger = logrus.WithField("component", "image_fetcher")
	}

	client := &http.Client{
		Timeout: cfg.FetchTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	f := &Fetcher{
		client:    client,
		userAgent: cfg.UserAgent,
		minBytes:  cfg.MinImageBytes,
		hostRate:  rate.Limit(cfg.HostRate),
		hostBurst: max(1, cfg.HostBurst),
		logger:    logger,
		limiters:  make(map[string]*rate.Limiter),
	}
	if cfg.HostRate <= 0 {
		f.hostRate = rate.Inf
	}
	if cfg.EnableRobotsCheck {
		f.robots = NewRobotsChecker(client, cfg.UserAgent, cfg.RobotsCacheDuration, logger)
	}

	f.breaker = gobreaker.NewCircuitBreaker[fetchResult](gobreaker.Settings{
		Name:        "image-fetcher",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Image fetch circuit breaker changed state")
		},
	})
	return f
}

// Fetch returns the bytes and MIME type of an image URL or local file path.
func (f *Fetcher) Fetch(ctx context.Context, src string) ([]byte, string, error) {
	src = strings.TrimSpace(src)
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read image file: %w", err)
		}
		if len(data) < f.minBytes {
			return nil, "", ErrTooSmall
		}
		return data, guessMIME(src, ""), nil
	}

	u, err := url.Parse(src)
	if err != nil {
		return nil, "", fmt.Errorf("invalid image url: %w", err)
	}
	if f.robots != nil && !f.robots.Allowed(ctx, src) {
		return nil, "", ErrDisallowed
	}
	if err := f.limiter(u.Host).Wait(ctx); err != nil {
		return nil, "", fmt.Errorf("rate limit wait: %w", err)
	}

	res, err := f.breaker.Execute(func() (fetchResult, error) {
		return f.download(ctx, src)
	})
	if err != nil {
		return nil, "", err
	}
	if len(res.data) < f.minBytes {
		return nil, "", ErrTooSmall
	}
	return res.data, guessMIME(u.Path, res.contentType), nil
}

// DataURI fetches src and encodes it as a base64 data URI.
func (f *Fetcher) DataURI(ctx context.Context, src string) (string, error) {
	data, mimeType, err := f.Fetch(ctx, src)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data)), nil
}

func (f *Fetcher) download(ctx context.Context, src string) (fetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return fetchResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return fetchResult{}, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fetchResult{}, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return fetchResult{}, fmt.Errorf("failed to read image: %w", err)
	}
	return fetchResult{data: data, contentType: resp.Header.Get("Content-Type")}, nil
}

func (f *Fetcher) limiter(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, ok := f.limiters[host]
	if !ok {
		l = rate.NewLimiter(f.hostRate, f.hostBurst)
		f.limiters[host] = l
	}
	return l
}

// BreakerState reports the circuit breaker state for status pages.
func (f *Fetcher) BreakerState() string {
	return f.breaker.State().String()
}

// guessMIME prefers an image Content-Type header, then the file extension.
func guessMIME(name, contentType string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && strings.HasPrefix(mt, "image/") {
		return mt
	}
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}
