package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/net/html/charset"

	"github.com/marcelmurilo1-jpg/saas-milhas/internal/ports"
)

const maxPageBytes = 8 << 20

// ErrDisallowed is returned when robots.txt forbids a page.
var ErrDisallowed = errors.New("fetch: disallowed by robots.txt")

// Options configures a Client.
type Options struct {
	UserAgent    string
	Referer      string
	Timeout      time.Duration
	RateInterval time.Duration
	CacheTTL     time.Duration
	IgnoreRobots bool
}

// Client downloads pages politely: one request per host per interval,
// robots.txt honoured, bodies decoded to UTF-8 and kept in a short-lived cache.
type Client struct {
	http    *http.Client
	opts    Options
	limiter *HostLimiter
	robots  *RobotsChecker
	cache   *gocache.Cache
	logger  *slog.Logger
}

var _ ports.PageFetcher = (*Client)(nil)

// NewClient wires an HTTP client; a nil client gets one with opts.Timeout.
func NewClient(client *http.Client, opts Options, logger *slog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		http:    client,
		opts:    opts,
		limiter: NewHostLimiter(opts.RateInterval),
		logger:  logger,
	}
	if !opts.IgnoreRobots {
		c.robots = NewRobotsChecker(client, opts.UserAgent)
	}
	if opts.CacheTTL > 0 {
		c.cache = gocache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	return c
}

// Fetch returns the UTF-8 body of pageURL.
func (c *Client) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	if c.cache != nil {
		if cached, ok := c.cache.Get(pageURL); ok {
			c.logger.Debug("page cache hit", "url", pageURL)
			return cached.([]byte), nil
		}
	}

	if c.robots != nil {
		allowed, err := c.robots.Allowed(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %s", ErrDisallowed, pageURL)
		}
	}

	if err := c.limiter.Wait(ctx, pageURL); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	body, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.SetDefault(pageURL, body)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}
	if c.opts.Referer != "" {
		req.Header.Set("Referer", c.opts.Referer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s", pageURL, resp.Status)
	}

	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		reader = resp.Body
	}

	body, err := io.ReadAll(io.LimitReader(reader, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", pageURL, err)
	}
	return body, nil
}
