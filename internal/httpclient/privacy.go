package httpclient

import (
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/proxy"

	"github.com/monokrome/foiacquire-sub003/internal/config"
)

// buildTransport configures an *http.Transport's dialer according to mode.
// Tor modes are fail-closed: if no socks5:// or socks5h:// proxy URL is
// configured, construction returns an error rather than silently issuing a
// direct connection. Whether the proxy is reachable is not checked at
// construction; a dead proxy surfaces as a transport error per request. This
// mirrors the original implementation's reqwest client builder, which
// refuses to fall back to a direct connection when Tor was requested.
func buildTransport(mode config.PrivacyMode, proxyURL string) (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	switch mode {
	case config.PrivacyDirect:
		return transport, nil

	case config.PrivacyExternalProxy:
		dialer, err := socks5Dialer(proxyURL)
		if err != nil {
			return nil, err
		}
		transport.DialContext = nil
		transport.Dial = dialer.Dial
		return transport, nil

	case config.PrivacyTorObfuscated, config.PrivacyTorDirect:
		// No embedded Tor client is wired into this module: Tor must be
		// reachable via an external SOCKS endpoint, same as
		// config.PrivacyExternalProxy. Construction fails closed if one
		// isn't configured.
		if proxyURL == "" {
			return nil, fmt.Errorf("tor mode requested but no SOCKS proxy configured; " +
				"set a proxy URL or use direct mode to disable privacy routing (not recommended)")
		}
		dialer, err := socks5Dialer(proxyURL)
		if err != nil {
			return nil, err
		}
		transport.DialContext = nil
		transport.Dial = dialer.Dial
		return transport, nil

	default:
		return nil, fmt.Errorf("unknown privacy mode: %v", mode)
	}
}

func socks5Dialer(proxyURL string) (proxy.Dialer, error) {
	if !strings.HasPrefix(proxyURL, "socks5://") && !strings.HasPrefix(proxyURL, "socks5h://") {
		return nil, fmt.Errorf("invalid SOCKS proxy URL %q: must start with socks5:// or socks5h://", proxyURL)
	}

	addr := strings.TrimPrefix(strings.TrimPrefix(proxyURL, "socks5h://"), "socks5://")
	dialer, err := proxy.SOCKS5("tcp", addr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("invalid SOCKS proxy URL %q: %w", proxyURL, err)
	}
	return dialer, nil
}
