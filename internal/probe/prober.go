package probe

import "context"

// Outcome is the terminal classification of a single probe.
//
// Answered and Timeout are the only outcomes a scan records; everything else
// a name server can say (NXDOMAIN, REFUSED, an empty NOERROR, a transport
// error that is not a timeout) is Negative and only surfaces at debug level.
type Outcome int

const (
	// OutcomeAnswered: the server returned at least one usable answer record.
	OutcomeAnswered Outcome = iota
	// OutcomeTimeout: the query exceeded the configured timeout.
	OutcomeTimeout
	// OutcomeNegative: any other negative result, suppressed at normal verbosity.
	OutcomeNegative
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAnswered:
		return "answered"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "negative"
	}
}

// Result is the unified result of one resolution attempt.
// Records is non-empty exactly when Outcome is OutcomeAnswered.
type Result struct {
	Outcome Outcome
	Records []string
	Err     error
}

// Prober performs a single resolution attempt for a fully-qualified name
// against one server address. Implementations must be safe for concurrent
// use; the scheduler shares one Prober across all in-flight workers.
type Prober interface {
	Resolve(ctx context.Context, fqdn, server string) Result
}
