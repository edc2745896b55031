package htmlcrawl_test

import (
	"net/url"
	"testing"

	"github.com/monokrome/foiacquire-sub003/internal/discovery/htmlcrawl"
)

func TestExtractLinks_ResolvesRelativeSameHostLinks(t *testing.T) {
	base, _ := url.Parse("https://agency.gov/foia/index.html")
	html := []byte(`
		<html><body>
			<a href="/foia/report-1.pdf">Report 1</a>
			<a href="report-2.pdf">Report 2</a>
			<a href="https://other.example.com/x.pdf">External</a>
		</body></html>
	`)

	links, err := htmlcrawl.ExtractLinks(html, base, "")
	if err != nil {
		t.Fatalf("ExtractLinks: %v", err)
	}
	if len(links) != 2 {
		t.Fatalf("len(links) = %d, want 2 (external host dropped): %v", len(links), links)
	}
	if links[0].Path != "/foia/report-1.pdf" {
		t.Errorf("links[0].Path = %q, want /foia/report-1.pdf", links[0].Path)
	}
	if links[1].Path != "/foia/report-2.pdf" {
		t.Errorf("links[1].Path = %q, want /foia/report-2.pdf", links[1].Path)
	}
}

func TestExtractLinks_CustomSelector(t *testing.T) {
	base, _ := url.Parse("https://agency.gov/")
	html := []byte(`
		<html><body>
			<a class="doc" href="/a.pdf">A</a>
			<a href="/b.pdf">B</a>
		</body></html>
	`)

	links, err := htmlcrawl.ExtractLinks(html, base, "a.doc[href]")
	if err != nil {
		t.Fatalf("ExtractLinks: %v", err)
	}
	if len(links) != 1 || links[0].Path != "/a.pdf" {
		t.Errorf("links = %v, want just /a.pdf", links)
	}
}

func TestExtractLinks_NoLinksReturnsEmpty(t *testing.T) {
	base, _ := url.Parse("https://agency.gov/")
	links, err := htmlcrawl.ExtractLinks([]byte(`<html></html>`), base, "")
	if err != nil {
		t.Fatalf("ExtractLinks: %v", err)
	}
	if len(links) != 0 {
		t.Errorf("len(links) = %d, want 0", len(links))
	}
}
