// Package ipfilter restricts partner APIs to allowlisted client IPs taken
// from the X-Forwarded-For chain built by the hosting platform's proxies.
package ipfilter

import (
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
)

// DefaultDepth selects the second entry from the right of X-Forwarded-For.
// The platform router appends the last entry, so the one before it is the
// address that connected to the router.
const DefaultDepth = 2

var (
	// ErrMissingForwardedFor is returned when the chain is absent or too short
	ErrMissingForwardedFor = errors.New("x-forwarded-for chain too short")

	// ErrInvalidAddress is returned when the selected entry is not an IP
	ErrInvalidAddress = errors.New("invalid client address")

	// ErrNotAllowed is returned when the client IP is not allowlisted
	ErrNotAllowed = errors.New("client address not allowlisted")
)

// Filter checks proxied client IPs against an allowlist of IPs and CIDR ranges
type Filter struct {
	prefixes []netip.Prefix
	depth    int
}

// New parses allowlist entries ("1.2.3.4", "10.0.0.0/8", "2001:db8::/32").
// An empty allowlist rejects every request.
func New(allowlist []string, depth int) (*Filter, error) {
	if depth <= 0 {
		depth = DefaultDepth
	}

	f := &Filter{depth: depth}
	for _, entry := range allowlist {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid allowlist range %q: %w", entry, err)
			}
			// client addresses are unmapped before matching, so mapped ranges must be too
			if p.Addr().Is4In6() {
				if p.Bits() < 96 {
					return nil, fmt.Errorf("invalid allowlist range %q: IPv4-mapped prefix shorter than /96", entry)
				}
				p = netip.PrefixFrom(p.Addr().Unmap(), p.Bits()-96)
			}
			f.prefixes = append(f.prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid allowlist address %q: %w", entry, err)
		}
		addr = addr.Unmap()
		f.prefixes = append(f.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return f, nil
}

// ClientIP returns the address selected from the X-Forwarded-For chain
func (f *Filter) ClientIP(r *http.Request) (netip.Addr, error) {
	var chain []string
	for _, header := range r.Header.Values("X-Forwarded-For") {
		for _, part := range strings.Split(header, ",") {
			if part = strings.TrimSpace(part); part != "" {
				chain = append(chain, part)
			}
		}
	}

	if len(chain) < f.depth {
		return netip.Addr{}, ErrMissingForwardedFor
	}

	addr, err := netip.ParseAddr(chain[len(chain)-f.depth])
	if err != nil {
		return netip.Addr{}, fmt.Errorf("%w: %q", ErrInvalidAddress, chain[len(chain)-f.depth])
	}
	return addr.Unmap(), nil
}

// Check returns nil when the request's client IP is allowlisted
func (f *Filter) Check(r *http.Request) (netip.Addr, error) {
	addr, err := f.ClientIP(r)
	if err != nil {
		return netip.Addr{}, err
	}
	if !f.Allowed(addr) {
		return addr, fmt.Errorf("%w: %s", ErrNotAllowed, addr)
	}
	return addr, nil
}

// Allowed reports whether addr falls inside the allowlist
func (f *Filter) Allowed(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range f.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
