package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// validation errors returned by Validator.Validate
var (
	ErrInvalidScheme  = errors.New("only http and https URLs are allowed")
	ErrNoHost         = errors.New("URL has no hostname")
	ErrBlockedAddress = errors.New("URL resolves to a blocked address")
)

// Resolver looks up all IP addresses for a hostname. *net.Resolver satisfies it;
// tests substitute a stub to avoid real DNS.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Validator rejects URLs that point at internal network targets. The blocked
// range list is built once at construction and never mutated, so a single
// Validator is safe for concurrent use.
type Validator struct {
	resolver    Resolver
	blockedNets []*net.IPNet
}

// blocked ranges: loopback, RFC1918, link-local, multicast, IPv6 unique-local
var blockedCIDRs = []string{
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"169.254.0.0/16",
	"224.0.0.0/4",
	"::1/128",
	"fe80::/10",
	"fc00::/7",
	"ff00::/8",
}

// NewValidator creates a validator with the default blocked ranges. A nil
// resolver falls back to the system resolver.
func NewValidator(resolver Resolver) *Validator {
	v, err := NewValidatorWithCIDRs(resolver, blockedCIDRs)
	if err != nil {
		// the default list is a compile-time constant, a bad entry is a programming error
		panic(fmt.Sprintf("fetch: invalid default blocked CIDR: %v", err))
	}
	return v
}

// NewValidatorWithCIDRs creates a validator blocking exactly the given ranges,
// for deployments that need to extend or relax the default list.
func NewValidatorWithCIDRs(resolver Resolver, cidrs []string) (*Validator, error) {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid blocked CIDR %q: %w", cidr, err)
		}
		nets = append(nets, ipNet)
	}
	return &Validator{resolver: resolver, blockedNets: nets}, nil
}

// Validate checks that the URL is an http(s) URL whose hostname resolves only
// to public addresses. It must be called for every outbound request, including
// each redirect hop and every image URL, otherwise a redirect to an internal
// address bypasses the check entirely.
func (v *Validator) Validate(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w, got %q", ErrInvalidScheme, u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return ErrNoHost
	}

	// literal IPs skip DNS but still go through the range check
	if ip := net.ParseIP(host); ip != nil {
		if v.blocked(ip) {
			return fmt.Errorf("%w: %s", ErrBlockedAddress, ip)
		}
		return nil
	}

	addrs, err := v.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return fmt.Errorf("failed to resolve %q: %w", host, err)
	}
	if len(addrs) == 0 {
		return fmt.Errorf("failed to resolve %q: no addresses", host)
	}

	// every resolved address must be public, one internal A/AAAA record is enough to block
	for _, addr := range addrs {
		if v.blocked(addr.IP) {
			return fmt.Errorf("%w: %s resolves to %s", ErrBlockedAddress, host, addr.IP)
		}
	}
	return nil
}

func (v *Validator) blocked(ip net.IP) bool {
	for _, ipNet := range v.blockedNets {
		if ipNet.Contains(ip) {
			return true
		}
	}
	return false
}
