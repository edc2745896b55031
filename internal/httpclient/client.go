package httpclient

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/monokrome/foiacquire-sub003/internal/browserpool"
	"github.com/monokrome/foiacquire-sub003/internal/config"
	"github.com/monokrome/foiacquire-sub003/internal/crawlstore"
	"github.com/monokrome/foiacquire-sub003/internal/ratelimit"
)

// Client performs HTTP requests for document acquisition: via-rewrite aware,
// rate-limited per domain, and request-logging. It never interprets
// response bodies; it only returns bytes and metadata, in the same spirit
// as the teacher's HtmlFetcher.
type Client struct {
	http         *http.Client
	rateLimiter  *ratelimit.RateLimiter
	store        crawlstore.Store
	browserPool  *browserpool.Pool
	sourceID     string
	userAgent    string
	referer      string
	viaMappings  map[string]string
	viaMode      config.ViaMode
	requestDelay time.Duration
	log          *slog.Logger
}

type Config struct {
	SourceID     string
	UserAgent    string
	Referer      string
	PrivacyMode  config.PrivacyMode
	ProxyURL     string
	ViaMappings  map[string]string
	ViaMode      config.ViaMode
	Timeout      time.Duration
	RequestDelay time.Duration
	BrowserPool  *browserpool.Pool
	Log          *slog.Logger
}

func New(cfg Config, rateLimiter *ratelimit.RateLimiter, store crawlstore.Store) (*Client, *ClientError) {
	transport, err := buildTransport(cfg.PrivacyMode, cfg.ProxyURL)
	if err != nil {
		return nil, &ClientError{Message: err.Error(), Cause: ErrCauseInvalidPrivacyConfig, Retryable: false}
	}

	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		http:         &http.Client{Transport: transport, Timeout: cfg.Timeout},
		rateLimiter:  rateLimiter,
		store:        store,
		browserPool:  cfg.BrowserPool,
		sourceID:     cfg.SourceID,
		userAgent:    ResolveUserAgent(cfg.UserAgent),
		referer:      cfg.Referer,
		viaMappings:  cfg.ViaMappings,
		viaMode:      cfg.ViaMode,
		requestDelay: cfg.RequestDelay,
		log:          log,
	}, nil
}

// applyViaRewrite rewrites rawURL to its caching-proxy equivalent if a via
// mapping prefix matches, returning the rewritten URL and whether a
// rewrite happened.
func (c *Client) applyViaRewrite(rawURL string) (string, bool) {
	for from, to := range c.viaMappings {
		if strings.HasPrefix(rawURL, from) {
			return to + rawURL[len(from):], true
		}
	}
	return rawURL, false
}

// resolveFetchURL decides which URL to fetch first and whether a retry
// against the alternate URL is warranted on a definite rate limit, per the
// via_mode retry matrix.
func (c *Client) resolveFetchURL(rawURL string) (fetchURL string, canRetry bool, alternate string) {
	viaURL, hasVia := c.applyViaRewrite(rawURL)

	switch c.viaMode {
	case config.ViaStrict:
		return rawURL, false, ""
	case config.ViaPriority:
		if hasVia {
			return viaURL, true, rawURL
		}
		return rawURL, false, ""
	default: // config.ViaFallback
		return rawURL, hasVia, viaURL
	}
}

// Get performs a conditional GET, retrying once against the via-rewrite
// alternate URL if the via_mode allows it and the first response is a
// definite rate limit.
func (c *Client) Get(ctx context.Context, rawURL, etag, lastModified string) (Response, *ClientError) {
	fetchURL, canRetry, alternate := c.resolveFetchURL(rawURL)

	resp, err := c.doGet(ctx, fetchURL, rawURL, etag, lastModified)
	if err != nil {
		return Response{}, err
	}

	if canRetry && ratelimit.IsDefiniteRateLimit(resp.StatusCode) {
		c.log.Info("via mode retrying with alternate URL", "mode", c.viaMode, "original", rawURL, "alternate", alternate)
		c.sleepRequestDelay(ctx)
		return c.doGet(ctx, alternate, rawURL, etag, lastModified)
	}

	return resp, nil
}

func (c *Client) doGet(ctx context.Context, fetchURL, originalURL, etag, lastModified string) (Response, *ClientError) {
	domain, _ := c.rateLimiter.Acquire(ctx, originalURL)

	// Conditional headers only ever apply to the direct path: the browser
	// pool stand-in always renders fresh, so a pooled fetch is only
	// attempted when there is nothing to compare against.
	if c.browserPool != nil && etag == "" && lastModified == "" {
		if resp, ok := c.tryBrowserPool(ctx, fetchURL, originalURL, domain); ok {
			return resp, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return Response{}, &ClientError{Message: err.Error(), Cause: ErrCauseRequestBuildFailed, Retryable: false}
	}
	c.applyCommonHeaders(req)
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastModified != "" {
		req.Header.Set("If-Modified-Since", lastModified)
	}

	return c.send(ctx, req, originalURL, domain)
}

// tryBrowserPool attempts a stealth-profile fetch through the browser
// pool, reporting its status to the rate limiter and request log exactly
// like the direct path. Any pool error falls back to the direct HTTP
// path silently, per spec.md §4.4.1.
func (c *Client) tryBrowserPool(ctx context.Context, fetchURL, originalURL, domain string) (Response, bool) {
	target, err := url.Parse(fetchURL)
	if err != nil {
		return Response{}, false
	}

	start := time.Now()
	poolResp, err := c.browserPool.Fetch(ctx, *target)
	if err != nil {
		c.log.Debug("browser pool fetch failed, falling back to direct", "url", originalURL, "error", err.Error())
		return Response{}, false
	}

	header := http.Header(poolResp.Header)
	if header == nil {
		header = http.Header{}
	}
	c.finalize(ctx, originalURL, domain, poolResp.StatusCode, header.Get("Retry-After") != "", time.Since(start))
	return Response{StatusCode: poolResp.StatusCode, Header: header, Bytes: poolResp.Bytes}, true
}

// Head performs a conditional HEAD request, used to check for changes
// without downloading the body.
func (c *Client) Head(ctx context.Context, rawURL, etag, lastModified string) (HeadResponse, *ClientError) {
	fetchURL, _ := c.applyViaRewrite(rawURL)
	domain, _ := c.rateLimiter.Acquire(ctx, rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, fetchURL, nil)
	if err != nil {
		return HeadResponse{}, &ClientError{Message: err.Error(), Cause: ErrCauseRequestBuildFailed, Retryable: false}
	}
	c.applyCommonHeaders(req)
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastModified != "" {
		req.Header.Set("If-Modified-Since", lastModified)
	}

	start := time.Now()
	httpResp, err := c.http.Do(req)
	if err != nil {
		return HeadResponse{}, &ClientError{Message: err.Error(), Cause: ErrCauseTransportFailure, Retryable: true}
	}
	defer httpResp.Body.Close()
	_, _ = io.Copy(io.Discard, httpResp.Body)

	hasRetryAfter := httpResp.Header.Get("Retry-After") != ""
	c.finalize(ctx, rawURL, domain, httpResp.StatusCode, hasRetryAfter, time.Since(start))
	return HeadResponse{StatusCode: httpResp.StatusCode, Header: httpResp.Header}, nil
}

// PostJSON performs a POST with a JSON body. Via rewriting applies; the
// pool is never used for POST requests, matching the original client's
// behavior.
func (c *Client) PostJSON(ctx context.Context, rawURL string, body io.Reader) (Response, *ClientError) {
	fetchURL, _ := c.applyViaRewrite(rawURL)
	domain, _ := c.rateLimiter.Acquire(ctx, rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fetchURL, body)
	if err != nil {
		return Response{}, &ClientError{Message: err.Error(), Cause: ErrCauseRequestBuildFailed, Retryable: false}
	}
	c.applyCommonHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	return c.send(ctx, req, rawURL, domain)
}

func (c *Client) applyCommonHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("Connection", "keep-alive")
	if c.referer != "" {
		req.Header.Set("Referer", c.referer)
	}
}

func (c *Client) send(ctx context.Context, req *http.Request, originalURL, domain string) (Response, *ClientError) {
	start := time.Now()
	httpResp, err := c.http.Do(req)
	if err != nil {
		return Response{}, &ClientError{Message: err.Error(), Cause: ErrCauseTransportFailure, Retryable: true}
	}

	hasRetryAfter := httpResp.Header.Get("Retry-After") != ""

	resp, readErr := newResponse(httpResp)
	if readErr != nil {
		return Response{}, &ClientError{Message: readErr.Error(), Cause: ErrCauseTransportFailure, Retryable: true}
	}

	c.finalize(ctx, originalURL, domain, resp.StatusCode, hasRetryAfter, time.Since(start))
	return resp, nil
}

// finalize logs the request and reports the observed status to the rate
// limiter, then sleeps the politeness delay before returning control to
// the caller. Logging and rate-limit bookkeeping failures are swallowed:
// neither should block the pipeline.
func (c *Client) finalize(ctx context.Context, originalURL, domain string, statusCode int, hasRetryAfter bool, duration time.Duration) {
	if c.store != nil {
		if err := c.store.LogRequest(ctx, crawlstore.RequestLogEntry{
			URL:        originalURL,
			StatusCode: statusCode,
			OccurredAt: time.Now(),
		}); err != nil {
			c.log.Warn("failed to log request", "url", originalURL, "error", err.Error())
		}
	}

	if domain != "" {
		if err := c.rateLimiter.ReportResponseStatus(ctx, domain, statusCode, originalURL, hasRetryAfter); err != nil {
			c.log.Warn("failed to report response status", "domain", domain, "error", err.Error())
		}
	}

	c.log.Debug("request completed", "url", originalURL, "status", statusCode, "duration", duration)
	c.sleepRequestDelay(ctx)
}

func (c *Client) sleepRequestDelay(ctx context.Context) {
	if c.requestDelay <= 0 {
		return
	}
	timer := time.NewTimer(c.requestDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
