package hass

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// NormalizeEndpoint turns a user-supplied server address into a canonical
// base URL.
//
// Addresses entered without a scheme get one inferred from the host:
// private and local addresses (loopback, RFC1918 ranges, .local mDNS
// names, IPv6 link-local) default to http, anything else to https.
// Trailing slashes are stripped so paths can be appended verbatim.
//
// Parameters:
//   - raw: Server address as entered, e.g. "homeassistant.local:8123"
//
// Returns:
//   - string: Canonical base URL, e.g. "http://homeassistant.local:8123"
//   - error: ErrInvalidEndpoint if the address cannot be normalised
func NormalizeEndpoint(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty address", ErrInvalidEndpoint)
	}

	if !strings.Contains(trimmed, "://") {
		trimmed = inferScheme(trimmed) + "://" + trimmed
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}

	switch u.Scheme {
	case "http", "https":
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidEndpoint, u.Scheme)
	}

	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidEndpoint)
	}

	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""

	return u.String(), nil
}

// inferScheme picks http or https for a bare host[:port] address.
// Local network destinations rarely carry certificates, so they
// default to plain http; everything else defaults to https.
func inferScheme(hostport string) string {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")

	lower := strings.ToLower(host)
	if lower == "localhost" || strings.HasSuffix(lower, ".local") {
		return "http"
	}

	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() {
			return "http"
		}
	}

	return "https"
}

// websocketURL converts a normalised base URL into the WebSocket API
// endpoint, e.g. "http://host:8123" becomes "ws://host:8123/api/websocket".
func websocketURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/api/websocket"
}
