// Package htmlcrawl extracts same-host links from an already-fetched HTML
// page, for HTML-crawl discovery strategies to hand onto a
// discovery.Channel. It is a supplemental collaborator, not part of the
// core's contract (spec.md §1 lists "HTML crawls" as a discovery source
// the core must support URLs from; the strategy producing them is
// external). Grounded in other_examples/pevans-newsfed's
// extractArticleURLs/resolveURL (goquery selector + href resolution
// against a base URL) and the teacher's now-retired internal/extractor.
package htmlcrawl

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractLinks parses html and returns the absolute URLs of every "a[href]"
// matching selector, resolved against base. Links to other hosts are
// dropped; selector "" matches every anchor on the page.
func ExtractLinks(html []byte, base *url.URL, selector string) ([]url.URL, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	if err != nil {
		return nil, err
	}

	query := "a[href]"
	if selector != "" {
		query = selector
	}

	var links []url.URL
	doc.Find(query).Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists {
			return
		}
		resolved, err := resolve(base, href)
		if err != nil || resolved.Host != base.Host {
			return
		}
		links = append(links, *resolved)
	})
	return links, nil
}

func resolve(base *url.URL, href string) (*url.URL, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return nil, err
	}
	return base.ResolveReference(ref), nil
}
