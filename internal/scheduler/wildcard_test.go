package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/hamed0406/subprober/internal/probe"
)

// scriptedProber hands out canned results in call order, whatever the name.
type scriptedProber struct {
	mu    sync.Mutex
	queue []probe.Result
	calls int
	fqdns []string
}

func (p *scriptedProber) Resolve(ctx context.Context, fqdn, server string) probe.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	res := probe.Result{Outcome: probe.OutcomeNegative}
	if p.calls < len(p.queue) {
		res = p.queue[p.calls]
	}
	p.calls++
	p.fqdns = append(p.fqdns, fqdn)
	return res
}

func repeatResult(r probe.Result, n int) []probe.Result {
	out := make([]probe.Result, n)
	for i := range out {
		out[i] = r
	}
	return out
}

func TestCheckWildcardTripsWhenAllAnswer(t *testing.T) {
	pr := &scriptedProber{
		queue: repeatResult(probe.Result{Outcome: probe.OutcomeAnswered, Records: []string{"198.51.100.1"}}, wildcardProbes),
	}
	err := CheckWildcard(context.Background(), zap.NewNop(), "example.test", fakePicker{addr: "192.0.2.1:53"}, pr)
	if !errors.Is(err, ErrWildcardDNS) {
		t.Fatalf("err = %v, want ErrWildcardDNS", err)
	}
	if pr.calls != wildcardProbes {
		t.Fatalf("launched %d probes, want %d", pr.calls, wildcardProbes)
	}
}

func TestCheckWildcardPassesWhenOneMisses(t *testing.T) {
	queue := repeatResult(probe.Result{Outcome: probe.OutcomeAnswered, Records: []string{"198.51.100.1"}}, wildcardProbes-1)
	queue = append(queue, probe.Result{Outcome: probe.OutcomeNegative})
	pr := &scriptedProber{queue: queue}
	if err := CheckWildcard(context.Background(), zap.NewNop(), "example.test", fakePicker{}, pr); err != nil {
		t.Fatalf("err = %v, want nil when one random name misses", err)
	}
}

func TestCheckWildcardTimeoutsDoNotCount(t *testing.T) {
	queue := repeatResult(probe.Result{Outcome: probe.OutcomeAnswered, Records: []string{"198.51.100.1"}}, wildcardProbes-2)
	queue = append(queue,
		probe.Result{Outcome: probe.OutcomeTimeout, Err: errors.New("read timeout")},
		probe.Result{Outcome: probe.OutcomeTimeout, Err: errors.New("read timeout")},
	)
	pr := &scriptedProber{queue: queue}
	if err := CheckWildcard(context.Background(), zap.NewNop(), "example.test", fakePicker{}, pr); err != nil {
		t.Fatalf("err = %v, want nil when timeouts keep the count short", err)
	}
}

func TestCheckWildcardProbesRandomNamesUnderDomain(t *testing.T) {
	pr := &scriptedProber{}
	if err := CheckWildcard(context.Background(), zap.NewNop(), "example.test", fakePicker{}, pr); err != nil {
		t.Fatalf("err = %v", err)
	}
	if len(pr.fqdns) != wildcardProbes {
		t.Fatalf("probed %d names, want %d", len(pr.fqdns), wildcardProbes)
	}
	seen := map[string]bool{}
	for _, fqdn := range pr.fqdns {
		label, ok := strings.CutSuffix(fqdn, ".example.test")
		if !ok {
			t.Fatalf("probed %q, not under the scan domain", fqdn)
		}
		if len(label) != wildcardLabelLen {
			t.Fatalf("random label %q has length %d, want %d", label, len(label), wildcardLabelLen)
		}
		seen[label] = true
	}
	if len(seen) < 2 {
		t.Fatalf("random labels look constant: %v", pr.fqdns)
	}
}
