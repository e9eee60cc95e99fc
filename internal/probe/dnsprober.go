package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// DNSProber resolves names over the wire with a plain A query. The timeout
// given at construction bounds the whole exchange: dial, write and read.
type DNSProber struct {
	udp *dns.Client
	tcp *dns.Client
}

func NewDNSProber(timeout time.Duration) *DNSProber {
	return &DNSProber{
		udp: &dns.Client{Timeout: timeout},
		tcp: &dns.Client{Net: "tcp", Timeout: timeout},
	}
}

func (p *DNSProber) Resolve(ctx context.Context, fqdn, server string) Result {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(fqdn), dns.TypeA)
	m.RecursionDesired = true

	in, _, err := p.udp.ExchangeContext(ctx, m, server)
	if err == nil && in.Truncated {
		in, _, err = p.tcp.ExchangeContext(ctx, m, server)
	}
	return classify(in, err)
}

// classify maps a raw exchange outcome onto the three-way probe taxonomy.
func classify(in *dns.Msg, err error) Result {
	if err != nil {
		if isTimeout(err) {
			return Result{Outcome: OutcomeTimeout, Err: err}
		}
		return Result{Outcome: OutcomeNegative, Err: err}
	}
	if in.Rcode != dns.RcodeSuccess {
		return Result{Outcome: OutcomeNegative, Err: fmt.Errorf("rcode %s", dns.RcodeToString[in.Rcode])}
	}

	var records []string
	for _, rr := range in.Answer {
		switch a := rr.(type) {
		case *dns.A:
			records = append(records, a.A.String())
		case *dns.AAAA:
			records = append(records, a.AAAA.String())
		case *dns.CNAME:
			records = append(records, strings.TrimSuffix(a.Target, "."))
		}
	}
	if len(records) == 0 {
		// NOERROR with nothing usable in the answer section
		return Result{Outcome: OutcomeNegative}
	}
	return Result{Outcome: OutcomeAnswered, Records: records}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}
