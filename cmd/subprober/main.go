package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hamed0406/subprober/internal/candidates"
	"github.com/hamed0406/subprober/internal/config"
	"github.com/hamed0406/subprober/internal/httpapi"
	"github.com/hamed0406/subprober/internal/logging"
	"github.com/hamed0406/subprober/internal/nameserver"
	"github.com/hamed0406/subprober/internal/notify"
	"github.com/hamed0406/subprober/internal/probe"
	"github.com/hamed0406/subprober/internal/scheduler"
	"github.com/hamed0406/subprober/internal/sink"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		color.Red("[!] %v", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.LogDir, cfg.Debug)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigc
		color.Cyan("\n[+] DNS probing stopped.")
		color.Yellow("[+] Waiting for in-flight probes to finish...")
		cancel()
	}()
	color.Cyan("[+] Press CTRL-C to gracefully stop...")

	var prober probe.Prober
	if cfg.Simulate {
		color.Red("[*] SIMULATION IN PROGRESS")
		prober = probe.NewMockProber()
	} else {
		prober = probe.NewDNSProber(cfg.Timeout)
	}

	if len(cfg.NameServers) > 0 {
		color.Cyan("[+] Using user-supplied name servers...")
	} else {
		color.Cyan("[+] Finding authoritative name servers for domain...")
	}
	pool, err := nameserver.New(ctx, logger, cfg.Domain, cfg.NameServers)
	if err != nil {
		return err
	}
	color.Cyan("[+] Using name servers: %s", strings.Join(pool.Addrs(), ", "))

	if !cfg.SkipWildcard {
		color.Green("[+] Checking wildcard DNS...")
		if err := scheduler.CheckWildcard(ctx, logger, cfg.Domain, pool, prober); err != nil {
			if errors.Is(err, scheduler.ErrWildcardDNS) {
				return fmt.Errorf("%w; use -w to skip this check", err)
			}
			return err
		}
	}

	var source candidates.Source
	if cfg.Wordlist != "" {
		ls, err := candidates.NewListSource(cfg.Wordlist)
		if err != nil {
			return err
		}
		defer ls.Close()
		source = ls
		color.Green("[+] Will search for subdomains contained in '%s'", cfg.Wordlist)
	} else {
		source = candidates.NewBruteSource(candidates.Alphabet, cfg.MaxLabelLen)
		color.Green("[+] Will search for subdomains made of all possible %d-character permutations", cfg.MaxLabelLen)
	}

	fmt.Printf("[+] Output destination: '%s'\n", cfg.OutputPath)
	if cfg.OutputPath != "" {
		if _, err := os.Stat(cfg.OutputPath); err == nil {
			color.Red("[+] Output destination will be overwritten.")
		}
		color.Green("[+] Saving results to %s...", cfg.OutputPath)
	}

	var store sink.Store
	if cfg.DatabaseURL != "" {
		pg, err := sink.NewPostgresStore(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return fmt.Errorf("connecting to result store: %w", err)
		}
		store = pg
		color.Green("[+] Mirroring results to postgres...")
	}

	results := &sink.Results{}
	timeouts := &sink.Errors{}
	writer, err := sink.NewWriter(logger, results, cfg.OutputPath, store)
	if err != nil {
		return err
	}
	go writer.Run()

	bar := progressbar.NewOptions64(int64(source.Total()),
		progressbar.OptionSetDescription("probing"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100*time.Millisecond),
	)

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Budget)
	}

	sched, err := scheduler.New(scheduler.Config{
		Log:     logger,
		Source:  source,
		Domain:  cfg.Domain,
		Pool:    pool,
		Prober:  prober,
		Results: results,
		Errors:  timeouts,
		Budget:  cfg.Budget,
		Limiter: limiter,
		OnTick:  func(p scheduler.Progress) { _ = bar.Set64(int64(p.Done)) },
		Wake:    writer.Wake,
	})
	if err != nil {
		return err
	}

	if cfg.StatusAddr != "" {
		api := httpapi.NewServer(logger, sched, writer)
		srv := &http.Server{Addr: cfg.StatusAddr, Handler: api.Router()}
		go func() {
			logger.Info("status_api_listen", zap.String("addr", cfg.StatusAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("status_api_failed", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	fmt.Println("[+] DNS probing starting...")
	start := time.Now()
	runErr := sched.Run(ctx)
	stopped := errors.Is(runErr, context.Canceled)
	if runErr == nil {
		_ = bar.Finish()
		color.Green("\n[+] DNS probing done.")
	}

	if err := writer.Close(); err != nil {
		logger.Error("output_close_failed", zap.Error(err))
	}

	if cfg.ErrorPath != "" {
		if err := timeouts.WriteFile(cfg.ErrorPath); err != nil {
			logger.Error("error_file_write_failed",
				zap.String("path", cfg.ErrorPath),
				zap.Error(err))
		}
	} else if timeouts.Len() > 0 {
		logger.Warn("probe_timeouts",
			zap.Int("count", timeouts.Len()),
			zap.Strings("errors", timeouts.Snapshot()))
	}

	if n := notify.NewSlack(cfg.SlackWebhook); n != nil {
		p := sched.Progress()
		rep := notify.ScanReport{
			Domain:   cfg.Domain,
			Done:     p.Done,
			Total:    p.Total,
			Found:    p.Found,
			TimedOut: p.Errored,
			Elapsed:  time.Since(start),
			Output:   cfg.OutputPath,
			Stopped:  stopped,
		}
		nctx, ncancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := (notify.Multi{n}).Send(nctx, rep.Title(), rep.Text()); err != nil {
			logger.Warn("notify_failed", zap.Error(err))
		}
		ncancel()
	}

	fmt.Println("[+] Done.")
	if runErr != nil && !stopped {
		return runErr
	}
	return nil
}
