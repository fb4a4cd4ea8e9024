// Package security decides which URLs a captured preview may load.
package security

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// lookupIP resolves host names. Tests replace it.
var lookupIP = net.DefaultResolver.LookupIP

// blockedHosts are names that reach the capture host or cloud metadata
// without going through an address check.
var blockedHosts = map[string]bool{
	"localhost":                true,
	"localhost.localdomain":    true,
	"metadata.google.internal": true,
	"metadata":                 true,
}

// ValidateHTTPURL rejects URLs that could reach the machine running the
// capture browser or its private network: non-http(s) schemes, localhost,
// and hosts that are or resolve to loopback, private, link-local, multicast
// or unspecified addresses (cloud metadata endpoints included).
func ValidateHTTPURL(ctx context.Context, rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", parsed.Scheme)
	}

	host := strings.TrimSuffix(strings.ToLower(parsed.Hostname()), ".")
	if host == "" {
		return fmt.Errorf("URL must have a host")
	}
	if blockedHosts[host] || strings.HasSuffix(host, ".localhost") {
		return fmt.Errorf("requests to %s are not allowed", host)
	}

	if ip := net.ParseIP(host); ip != nil {
		return checkIP(ip)
	}

	ips, err := lookupIP(ctx, "ip", host)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", host, err)
	}
	if len(ips) == 0 {
		return fmt.Errorf("resolve %s: no addresses", host)
	}
	for _, ip := range ips {
		if err := checkIP(ip); err != nil {
			return fmt.Errorf("%s: %w", host, err)
		}
	}
	return nil
}

func checkIP(ip net.IP) error {
	switch {
	case ip.IsLoopback():
		return fmt.Errorf("requests to loopback addresses are not allowed")
	case ip.IsPrivate():
		return fmt.Errorf("requests to private network addresses are not allowed")
	case ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast():
		return fmt.Errorf("requests to link-local addresses are not allowed")
	case ip.IsUnspecified():
		return fmt.Errorf("requests to unspecified addresses are not allowed")
	case ip.IsMulticast(), ip.IsInterfaceLocalMulticast():
		return fmt.Errorf("requests to multicast addresses are not allowed")
	}
	return nil
}
