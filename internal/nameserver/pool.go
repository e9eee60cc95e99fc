// Package nameserver discovers and holds the DNS servers a scan spreads its
// queries across.
package nameserver

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Port is the destination port queries are sent to.
const Port = "53"

// ErrNoServers is returned when none of the configured or discovered name
// servers resolves to a usable address.
var ErrNoServers = errors.New("no name server resolves to a usable address")

// lookuper is the slice of net.Resolver the pool needs.
type lookuper interface {
	LookupNS(ctx context.Context, name string) ([]*net.NS, error)
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Pool is an immutable set of name server addresses in host:port form.
// Pick spreads load across them at random, so a single slow or broken
// authoritative server does not stall a whole scan.
type Pool struct {
	log   *zap.Logger
	addrs []string
}

// New builds a pool for domain. When overrides is non-empty those entries are
// used verbatim instead of the domain's NS records; each entry may be a host
// name or a literal IP. Entries that fail to resolve are logged and skipped,
// and the pool only fails when nothing at all resolves.
func New(ctx context.Context, log *zap.Logger, domain string, overrides []string) (*Pool, error) {
	return newPool(ctx, log, net.DefaultResolver, domain, overrides)
}

func newPool(ctx context.Context, log *zap.Logger, r lookuper, domain string, overrides []string) (*Pool, error) {
	if log == nil {
		log = zap.NewNop()
	}

	names := overrides
	if len(names) == 0 {
		nss, err := r.LookupNS(ctx, domain)
		if err != nil {
			return nil, fmt.Errorf("looking up NS records for %s: %w", domain, err)
		}
		for _, ns := range nss {
			names = append(names, strings.TrimSuffix(ns.Host, "."))
		}
	}

	var (
		addrs []string
		errs  error
	)
	for _, name := range names {
		if ip := net.ParseIP(name); ip != nil {
			addrs = append(addrs, net.JoinHostPort(name, Port))
			continue
		}
		hosts, err := r.LookupHost(ctx, name)
		if err == nil && len(hosts) == 0 {
			err = errors.New("no addresses")
		}
		if err != nil {
			log.Error("nameserver_skipped",
				zap.String("host", name),
				zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("resolving %s: %w", name, err))
			continue
		}
		addr := net.JoinHostPort(pickHost(hosts), Port)
		log.Debug("nameserver_resolved",
			zap.String("host", name),
			zap.String("addr", addr))
		addrs = append(addrs, addr)
	}
	if len(addrs) == 0 {
		return nil, multierr.Append(ErrNoServers, errs)
	}
	return &Pool{log: log, addrs: addrs}, nil
}

// pickHost prefers an IPv4 address when one is present, since the scan issues
// A queries and v4 transport is the common case for authoritative servers.
func pickHost(hosts []string) string {
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil && ip.To4() != nil {
			return h
		}
	}
	return hosts[0]
}

// Pick returns one server address chosen uniformly at random.
func (p *Pool) Pick() string {
	return p.addrs[rand.Intn(len(p.addrs))]
}

// Addrs returns a copy of every address in the pool.
func (p *Pool) Addrs() []string {
	out := make([]string, len(p.addrs))
	copy(out, p.addrs)
	return out
}

// Size reports how many servers the pool holds.
func (p *Pool) Size() int { return len(p.addrs) }
