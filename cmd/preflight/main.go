// cmd/preflight/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/subprober/internal/candidates"
	"github.com/hamed0406/subprober/internal/config"
	"github.com/hamed0406/subprober/internal/nameserver"
	"github.com/hamed0406/subprober/internal/sink"
)

// Takes the same arguments as subprober and checks everything a scan needs
// before any query is sent.
func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fail(err.Error())
	}
	if err := cfg.Validate(); err != nil {
		fail(err.Error())
	}
	ok("config valid for " + cfg.Domain)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if cfg.Wordlist != "" {
		src, err := candidates.NewListSource(cfg.Wordlist)
		if err != nil {
			fail("wordlist: " + err.Error())
		}
		ok(fmt.Sprintf("wordlist %s: %d candidates", cfg.Wordlist, src.Total()))
		src.Close()
	} else {
		total := candidates.PermutationCount(len(candidates.Alphabet), cfg.MaxLabelLen)
		if total > 100_000_000 {
			warn(fmt.Sprintf("brute force up to length %d means %d candidates; this will take very long", cfg.MaxLabelLen, total))
		} else {
			ok(fmt.Sprintf("brute force up to length %d: %d candidates", cfg.MaxLabelLen, total))
		}
	}

	pool, err := nameserver.New(ctx, zap.NewNop(), cfg.Domain, cfg.NameServers)
	if err != nil {
		fail("name servers: " + err.Error())
	}
	ok("name servers: " + strings.Join(pool.Addrs(), ", "))

	if cfg.OutputPath == "" {
		warn("no output file; findings will only be logged")
	} else {
		dir := filepath.Dir(cfg.OutputPath)
		probe := filepath.Join(dir, ".subprober-preflight")
		f, err := os.Create(probe)
		if err != nil {
			fail("output directory not writable: " + err.Error())
		}
		f.Close()
		os.Remove(probe)
		ok("output destination writable")
	}

	if cfg.DatabaseURL == "" {
		warn("DATABASE_URL empty — results will not be mirrored to postgres.")
	} else {
		st, err := sink.NewPostgresStore(ctx, cfg.DatabaseURL, zap.NewNop())
		if err != nil {
			fail("database: " + err.Error())
		}
		st.Close()
		ok("database reachable, schema ready")
	}

	if cfg.SlackWebhook == "" {
		warn("SLACK_WEBHOOK_URL empty — no completion notification.")
	} else {
		ok("SLACK_WEBHOOK_URL present")
	}

	ok("preflight passed")
}
