// Package privnet tells whether a host name points into a private network.
package privnet

import (
	"context"
	"fmt"
	"net"

	"github.com/mycok/spiderank/crawler"
)

var _ crawler.PrivateNetworkDetector = (*Detector)(nil)

var defaultPrivateCIDRs = []string{
	// Loopback.
	"127.0.0.0/8",
	"::1/128",
	// RFC1918 private networks.
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	// Link-local, including cloud metadata endpoints.
	"169.254.0.0/16",
	"fe80::/10",
	// Carrier-grade NAT.
	"100.64.0.0/10",
	// This host and broadcast.
	"0.0.0.0/8",
	"255.255.255.255/32",
	// IPv6 unique local.
	"fc00::/7",
}

// Resolver looks up the addresses of a host. *net.Resolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Detector reports hosts that resolve to at least one address inside its
// private blocks.
type Detector struct {
	blocks   []*net.IPNet
	resolver Resolver
}

// NewDetector returns a Detector for the loopback, RFC1918, link-local and
// unique local ranges.
func NewDetector() (*Detector, error) {
	return NewDetectorFromCIDRs(defaultPrivateCIDRs...)
}

// NewDetectorFromCIDRs returns a Detector that treats the given CIDR blocks
// as private.
func NewDetectorFromCIDRs(cidrs ...string) (*Detector, error) {
	blocks := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, block, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("privnet: %w", err)
		}
		blocks = append(blocks, block)
	}

	return &Detector{blocks: blocks, resolver: net.DefaultResolver}, nil
}

// WithResolver returns a copy of d that resolves host names through r.
func (d *Detector) WithResolver(r Resolver) *Detector {
	return &Detector{blocks: d.blocks, resolver: r}
}

// IsNetworkPrivate resolves host and reports whether any of its addresses
// is private. IP literals are checked without a lookup.
func (d *Detector) IsNetworkPrivate(ctx context.Context, host string) (bool, error) {
	if ip := net.ParseIP(host); ip != nil {
		return d.isPrivate(ip), nil
	}

	addrs, err := d.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return false, fmt.Errorf("resolve %s: %w", host, err)
	}
	if len(addrs) == 0 {
		return false, fmt.Errorf("resolve %s: no addresses", host)
	}

	for _, addr := range addrs {
		if d.isPrivate(addr.IP) {
			return true, nil
		}
	}

	return false, nil
}

func (d *Detector) isPrivate(ip net.IP) bool {
	for _, block := range d.blocks {
		if block.Contains(ip) {
			return true
		}
	}

	return false
}
