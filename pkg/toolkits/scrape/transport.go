package scrape

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"time"
)

// internal reports whether addr points into the host or its local
// networks: loopback, RFC 1918 and ULA ranges, link-local and unspecified.
func internal(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() || addr.IsUnspecified()
}

// publicOnlyTransport resolves each host itself and dials the first
// address only if none of the answers is internal. Pinning the dial to the
// checked address keeps a second DNS answer from slipping through.
func publicOnlyTransport() *http.Transport {
	dialer := &net.Dialer{Timeout: 15 * time.Second, KeepAlive: 30 * time.Second}

	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSHandshakeTimeout: 10 * time.Second,
		DialContext: func(ctx context.Context, network, hostport string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(hostport)
			if err != nil {
				return nil, fmt.Errorf("scrape: bad address %q: %w", hostport, err)
			}

			addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
			if err != nil {
				return nil, fmt.Errorf("scrape: resolve %s: %w", host, err)
			}
			if len(addrs) == 0 {
				return nil, fmt.Errorf("scrape: %s has no addresses", host)
			}

			for _, a := range addrs {
				if internal(a) {
					return nil, fmt.Errorf("scrape: %s resolves to private address %s", host, a)
				}
			}

			return dialer.DialContext(ctx, network, net.JoinHostPort(addrs[0].Unmap().String(), port))
		},
	}
}
