package probe

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// MockProber simulates probing without touching the network: it pauses for a
// random short interval (|N(0.5, 0.5)| of Unit) and answers 127.0.0.1 about
// 30% of the time. It never times out, so simulated runs produce an empty
// error sink.
type MockProber struct {
	// Unit scales the random pause; one Unit is the mean. Zero disables
	// the pause entirely, which tests rely on.
	Unit time.Duration
}

func NewMockProber() *MockProber {
	return &MockProber{Unit: time.Second}
}

func (p *MockProber) Resolve(ctx context.Context, fqdn, server string) Result {
	if d := p.pause(); d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return Result{Outcome: OutcomeNegative, Err: ctx.Err()}
		}
	}
	if rand.Float64() > 0.7 {
		return Result{Outcome: OutcomeAnswered, Records: []string{"127.0.0.1"}}
	}
	return Result{Outcome: OutcomeNegative}
}

func (p *MockProber) pause() time.Duration {
	if p.Unit <= 0 {
		return 0
	}
	return time.Duration(math.Abs(rand.NormFloat64()*0.5+0.5) * float64(p.Unit))
}
