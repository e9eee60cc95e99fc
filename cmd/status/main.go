// Queries a running scan's status API (subprober -status-addr) and prints a
// one-line summary, optionally polling until the scan finishes.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hamed0406/subprober/internal/scheduler"
	"github.com/hamed0406/subprober/internal/sink"
)

func main() {
	api := flag.String("api", "", "status API base `url` (default $SUBPROBER_API or http://localhost:8035)")
	follow := flag.Bool("follow", false, "poll once a second until the scan finishes")
	showResults := flag.Bool("results", false, "also print the most recent findings")
	flag.Parse()

	base := *api
	if base == "" {
		base = os.Getenv("SUBPROBER_API")
	}
	if base == "" {
		base = "http://localhost:8035"
	}
	base = strings.TrimRight(base, "/")

	client := &http.Client{Timeout: 5 * time.Second}

	for {
		p, err := fetchProgress(client, base)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error contacting status API:", err)
			os.Exit(1)
		}
		fmt.Printf("%d/%d done, %d in flight, %d found, %d timeouts, interval %s\n",
			p.Done, p.Total, p.InFlight, p.Found, p.Errored, p.Interval)
		if !*follow || (p.Total > 0 && p.Done >= p.Total) {
			break
		}
		time.Sleep(time.Second)
	}

	if *showResults {
		written, recent, err := fetchResults(client, base)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error contacting status API:", err)
			os.Exit(1)
		}
		fmt.Printf("written: %d\n", written)
		for _, r := range recent {
			fmt.Println(r.Line())
		}
	}
}

func fetchProgress(c *http.Client, base string) (scheduler.Progress, error) {
	var p scheduler.Progress
	resp, err := c.Get(base + "/api/progress")
	if err != nil {
		return p, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return p, fmt.Errorf("unexpected status %s", resp.Status)
	}
	err = json.NewDecoder(resp.Body).Decode(&p)
	return p, err
}

func fetchResults(c *http.Client, base string) (uint64, []sink.Record, error) {
	var out struct {
		Written uint64        `json:"written"`
		Recent  []sink.Record `json:"recent"`
	}
	resp, err := c.Get(base + "/api/results")
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, nil, err
	}
	return out.Written, out.Recent, nil
}
