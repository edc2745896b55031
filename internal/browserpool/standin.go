package browserpool

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPStandInFetcher fills the Fetcher capability with a direct HTTP GET
// carrying a distinct stealth-profile header set, since no headless-browser
// library is available in the example pack to drive a real one. It reports
// status 200 whenever a response body is received at all, matching
// spec.md's "response wrapped identically... status 200 if content
// received" contract for this capability — a real browser-automation
// Fetcher would report the rendered page's actual status instead.
type HTTPStandInFetcher struct {
	http      *http.Client
	userAgent string
}

func NewHTTPStandInFetcher(timeout time.Duration, userAgent string) *HTTPStandInFetcher {
	return &HTTPStandInFetcher{
		http:      &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

func (f *HTTPStandInFetcher) Fetch(ctx context.Context, target url.URL) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Dest", "document")

	resp, err := f.http.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, err
	}

	return Response{StatusCode: http.StatusOK, Header: resp.Header, Bytes: body}, nil
}
