// Package dns resolves relay hostnames, falling back to public resolvers
// when the system resolver fails (captive portals, broken VPN configs).
package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	localTimeout  = time.Second
	remoteTimeout = 2 * time.Second
)

var publicResolvers = []string{
	"1.1.1.1",
	"1.0.0.1",
	"8.8.8.8",
	"8.8.4.4",
	"9.9.9.9",
	"[2606:4700:4700::1111]",
	"[2001:4860:4860::8888]",
}

// DialContext dials addr after resolving its host with Lookup. It matches
// the signature of net.Dialer.DialContext.
func DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	ip, err := Lookup(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("dns lookup failed: %w", err)
	}

	var d net.Dialer
	return d.DialContext(ctx, network, net.JoinHostPort(ip, port))
}

// Lookup returns one address for host, preferring IPv4. IP literals and
// localhost are returned without a query.
func Lookup(ctx context.Context, host string) (string, error) {
	if _, err := netip.ParseAddr(host); err == nil {
		return host, nil
	}
	if host == "localhost" {
		return "127.0.0.1", nil
	}

	ip, err := lookupWith(ctx, &net.Resolver{}, host, localTimeout)
	if err == nil {
		return ip, nil
	}

	log.Debug().Str("module", "dns").Str("host", host).Err(err).Msg("system lookup failed, racing public resolvers")
	return raceResolvers(ctx, host)
}

func raceResolvers(ctx context.Context, host string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, remoteTimeout)
	defer cancel()

	type result struct {
		ip  string
		err error
	}
	results := make(chan result, len(publicResolvers))

	for _, server := range publicResolvers {
		go func(server string) {
			ip, err := lookupWith(ctx, resolverFor(server), host, remoteTimeout)
			results <- result{ip: ip, err: err}
		}(server)
	}

	var errs []error
	for range publicResolvers {
		select {
		case res := <-results:
			if res.err == nil {
				return res.ip, nil
			}
			errs = append(errs, res.err)
		case <-ctx.Done():
			return "", fmt.Errorf("resolve %s: %w", host, ctx.Err())
		}
	}
	return "", fmt.Errorf("resolve %s: %w", host, errors.Join(errs...))
}

func resolverFor(server string) *net.Resolver {
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(trimBrackets(server), "53"))
		},
	}
}

func lookupWith(ctx context.Context, r *net.Resolver, host string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ips, err := r.LookupHost(ctx, host)
	if err != nil {
		return "", err
	}
	return preferIPv4(ips)
}

func preferIPv4(ips []string) (string, error) {
	if len(ips) == 0 {
		return "", errors.New("no addresses found")
	}
	for _, ip := range ips {
		if addr, err := netip.ParseAddr(ip); err == nil && addr.Is4() {
			return ip, nil
		}
	}
	return ips[0], nil
}

func trimBrackets(s string) string {
	if len(s) > 1 && s[0] == '[' && s[len(s)-1] == ']' {
		return s[1 : len(s)-1]
	}
	return s
}
