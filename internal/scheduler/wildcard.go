package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hamed0406/subprober/internal/candidates"
	"github.com/hamed0406/subprober/internal/probe"
)

const (
	// wildcardProbes is how many random names are tried; the check only
	// trips when every single one answers.
	wildcardProbes = 5

	// wildcardLabelLen is the length of each random label. Long enough
	// that a real zone almost certainly does not define it.
	wildcardLabelLen = 6
)

// ErrWildcardDNS reports that the zone answers arbitrary names, which would
// make every candidate look like a hit.
var ErrWildcardDNS = errors.New("random subdomains all resolve; this looks like a wildcard DNS zone")

// CheckWildcard probes a handful of random labels under domain before a scan
// starts. All of them answering means the zone is a wildcard and scanning it
// would only produce noise, so the caller should stop. Individual probe
// timeouts are logged and otherwise ignored.
func CheckWildcard(ctx context.Context, log *zap.Logger, domain string, pool Picker, prober probe.Prober) error {
	if log == nil {
		log = zap.NewNop()
	}

	type outcome struct {
		fqdn string
		res  probe.Result
	}
	outcomes := make(chan outcome, wildcardProbes)

	var wg sync.WaitGroup
	for i := 0; i < wildcardProbes; i++ {
		fqdn := candidates.RandomLabel(wildcardLabelLen) + "." + domain
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes <- outcome{fqdn: fqdn, res: prober.Resolve(ctx, fqdn, pool.Pick())}
		}()
	}
	wg.Wait()
	close(outcomes)

	answered := 0
	for o := range outcomes {
		switch o.res.Outcome {
		case probe.OutcomeAnswered:
			answered++
			log.Debug("wildcard_probe_answered",
				zap.String("target", o.fqdn),
				zap.Strings("records", o.res.Records))
		case probe.OutcomeTimeout:
			log.Warn("wildcard_probe_timeout",
				zap.String("target", o.fqdn),
				zap.Error(o.res.Err))
		}
	}

	if answered == wildcardProbes {
		return fmt.Errorf("%d of %d: %w", answered, wildcardProbes, ErrWildcardDNS)
	}
	return nil
}
