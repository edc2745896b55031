package httpclient

import "math/rand"

// DefaultUserAgent identifies this client to servers that don't mind
// honest bot traffic.
const DefaultUserAgent = "foiacquire/1.0 (+https://github.com/monokrome/foiacquire-sub003)"

// ImpersonateSentinel, when passed as the configured user agent, selects a
// random real-browser user agent from impersonateUserAgents instead.
const ImpersonateSentinel = "impersonate"

// impersonateUserAgents lists recent desktop browser user agent strings,
// used only when a source explicitly asks to impersonate a browser.
var impersonateUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
}

// ResolveUserAgent maps a configured user agent string to the one actually
// sent: "" falls back to DefaultUserAgent, ImpersonateSentinel picks a
// random browser string, anything else is used verbatim.
func ResolveUserAgent(configured string) string {
	switch configured {
	case "":
		return DefaultUserAgent
	case ImpersonateSentinel:
		return impersonateUserAgents[rand.Intn(len(impersonateUserAgents))]
	default:
		return configured
	}
}
