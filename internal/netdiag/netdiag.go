package netdiag

import (
	"context"
	"fmt"
	"net"
	"sort"
	"time"
)

// DefaultTimeout bounds a single reachability check.
const DefaultTimeout = 10 * time.Second

// HostPort completes host with the default HTTPS port when none is given.
// IPv6 literals come back bracketed.
func HostPort(host string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, "443")
}

// Resolve looks up the addresses for host, which may carry a port. The
// result is sorted so repeated runs print the same thing.
func Resolve(ctx context.Context, host string) ([]string, error) {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	addrs, err := net.DefaultResolver.LookupHost(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", host, err)
	}
	sort.Strings(addrs)
	return addrs, nil
}

// CheckTCP dials hostPort once and immediately closes the connection. An
// error here means the probe would fail for reasons below TLS.
func CheckTCP(ctx context.Context, hostPort string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dialer := &net.Dialer{Timeout: timeout}

	conn, err := dialer.DialContext(ctx, "tcp", hostPort)
	if err != nil {
		return fmt.Errorf("tcp connect to %s failed: %w", hostPort, err)
	}
	return conn.Close()
}
