package notify

import (
	"fmt"
	"strings"
	"time"
)

// ScanReport summarizes one finished run for notification channels.
type ScanReport struct {
	Domain   string
	Done     uint64
	Total    uint64
	Found    uint64
	TimedOut int
	Elapsed  time.Duration
	Output   string
	Stopped  bool // interrupted before the candidate source ran dry
}

func (r ScanReport) Title() string {
	if r.Stopped {
		return fmt.Sprintf("subprober: %s (stopped early)", r.Domain)
	}
	return fmt.Sprintf("subprober: %s", r.Domain)
}

func (r ScanReport) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "probed %d of %d candidates in %s\n",
		r.Done, r.Total, r.Elapsed.Round(time.Second))
	if r.Output != "" {
		fmt.Fprintf(&b, "found %d records, saved to %s\n", r.Found, r.Output)
	} else {
		fmt.Fprintf(&b, "found %d records\n", r.Found)
	}
	if r.TimedOut > 0 {
		fmt.Fprintf(&b, "%d queries timed out\n", r.TimedOut)
	}
	return strings.TrimRight(b.String(), "\n")
}
