package nameserver

import (
	"context"
	"errors"
	"net"
	"testing"

	"go.uber.org/zap"
)

type fakeLookuper struct {
	ns          []*net.NS
	nsErr       error
	hosts       map[string][]string
	hostLookups int
}

func (f *fakeLookuper) LookupNS(ctx context.Context, name string) ([]*net.NS, error) {
	return f.ns, f.nsErr
}

func (f *fakeLookuper) LookupHost(ctx context.Context, host string) ([]string, error) {
	f.hostLookups++
	hosts, ok := f.hosts[host]
	if !ok {
		return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	}
	return hosts, nil
}

func TestNewDiscoversNSRecords(t *testing.T) {
	r := &fakeLookuper{
		ns: []*net.NS{{Host: "ns1.example.test."}, {Host: "ns2.example.test."}},
		hosts: map[string][]string{
			"ns1.example.test": {"192.0.2.1"},
			"ns2.example.test": {"192.0.2.2"},
		},
	}
	p, err := newPool(context.Background(), zap.NewNop(), r, "example.test", nil)
	if err != nil {
		t.Fatalf("newPool: %v", err)
	}
	got := p.Addrs()
	want := []string{"192.0.2.1:53", "192.0.2.2:53"}
	if len(got) != len(want) {
		t.Fatalf("addrs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("addrs[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNewLiteralIPOverridesSkipLookups(t *testing.T) {
	r := &fakeLookuper{}
	p, err := newPool(context.Background(), zap.NewNop(), r, "example.test", []string{"192.0.2.7", "2001:db8::1"})
	if err != nil {
		t.Fatalf("newPool: %v", err)
	}
	if r.hostLookups != 0 {
		t.Fatalf("literal IPs triggered %d host lookups", r.hostLookups)
	}
	got := p.Addrs()
	if got[0] != "192.0.2.7:53" || got[1] != "[2001:db8::1]:53" {
		t.Fatalf("addrs = %v", got)
	}
}

func TestNewSkipsUnresolvableEntries(t *testing.T) {
	r := &fakeLookuper{
		hosts: map[string][]string{"good.example.test": {"192.0.2.9"}},
	}
	p, err := newPool(context.Background(), zap.NewNop(), r, "example.test",
		[]string{"bad.example.test", "good.example.test"})
	if err != nil {
		t.Fatalf("newPool: %v", err)
	}
	if p.Size() != 1 {
		t.Fatalf("size = %d, want 1", p.Size())
	}
	if p.Pick() != "192.0.2.9:53" {
		t.Fatalf("pick = %q", p.Pick())
	}
}

func TestNewFailsWhenNothingResolves(t *testing.T) {
	r := &fakeLookuper{}
	_, err := newPool(context.Background(), zap.NewNop(), r, "example.test",
		[]string{"bad1.example.test", "bad2.example.test"})
	if !errors.Is(err, ErrNoServers) {
		t.Fatalf("err = %v, want ErrNoServers", err)
	}
}

func TestNewPropagatesNSLookupFailure(t *testing.T) {
	r := &fakeLookuper{nsErr: errors.New("servfail")}
	_, err := newPool(context.Background(), zap.NewNop(), r, "example.test", nil)
	if err == nil {
		t.Fatal("expected error when NS discovery fails")
	}
}

func TestPickHostPrefersIPv4(t *testing.T) {
	r := &fakeLookuper{
		hosts: map[string][]string{
			"ns.example.test": {"2001:db8::1", "192.0.2.4"},
		},
	}
	p, err := newPool(context.Background(), zap.NewNop(), r, "example.test", []string{"ns.example.test"})
	if err != nil {
		t.Fatalf("newPool: %v", err)
	}
	if p.Pick() != "192.0.2.4:53" {
		t.Fatalf("pick = %q, want the IPv4 address", p.Pick())
	}
}

func TestPickStaysInsidePool(t *testing.T) {
	p := &Pool{log: zap.NewNop(), addrs: []string{"192.0.2.1:53", "192.0.2.2:53", "192.0.2.3:53"}}
	members := map[string]bool{}
	for _, a := range p.addrs {
		members[a] = true
	}
	for i := 0; i < 50; i++ {
		if a := p.Pick(); !members[a] {
			t.Fatalf("pick returned %q, not a pool member", a)
		}
	}
}
