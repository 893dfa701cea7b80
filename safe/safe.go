// Package safe provides the guard rails around the translation endpoint:
// URL validation (the engine refuses to ship page text to a non-local
// host) and bounded I/O helpers for HTTP response bodies.
package safe

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
)

// MaxResponseBody is the default cap for HTTP response body reads (1 MiB).
const MaxResponseBody int64 = 1 << 20

// ErrRemoteEndpoint is returned when a URL targets a public address.
// Selected page text is user data; it only ever goes to a local model.
var ErrRemoteEndpoint = errors.New("safe: endpoint is not a local address")

// ErrUnsafeScheme is returned when a URL uses a non-HTTP(S) scheme.
var ErrUnsafeScheme = errors.New("safe: only http and https schemes are allowed")

// ErrResponseTooLarge is returned by LimitedReadAll when the reader exceeds
// the byte limit.
var ErrResponseTooLarge = errors.New("safe: response body exceeds limit")

// ValidateLocalURL checks that rawURL uses http/https, has a hostname, and
// resolves only to loopback or private addresses. "localhost" is accepted
// without resolution.
func ValidateLocalURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("safe: invalid URL: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ErrUnsafeScheme
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("safe: URL has no host")
	}
	if strings.EqualFold(host, "localhost") {
		return nil
	}

	if ip := net.ParseIP(host); ip != nil {
		if !isLocalIP(ip) {
			return ErrRemoteEndpoint
		}
		return nil
	}

	addrs, err := net.LookupHost(host)
	if err != nil {
		// Unresolvable host: refuse. The whole point of the guard is to
		// never leak selections, so an unknown destination is treated as
		// remote rather than waved through.
		return fmt.Errorf("safe: cannot resolve %q: %w", host, ErrRemoteEndpoint)
	}
	for _, a := range addrs {
		ip := net.ParseIP(a)
		if ip == nil || !isLocalIP(ip) {
			return ErrRemoteEndpoint
		}
	}
	return nil
}

func isLocalIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
}

// LimitedReadAll reads at most maxBytes from r. Returns ErrResponseTooLarge
// if the limit is exceeded.
func LimitedReadAll(r io.Reader, maxBytes int64) ([]byte, error) {
	lr := io.LimitReader(r, maxBytes+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrResponseTooLarge
	}
	return data, nil
}
