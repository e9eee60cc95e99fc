// Package config assembles a scan's settings from flags, an optional YAML
// file and the environment. Flags win over the file; the environment only
// supplies what has no flag.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultMaxLabelLen bounds brute-force labels when -l is not given.
	// Anything past 3 is usually infeasible against a real zone.
	DefaultMaxLabelLen = 3

	// DefaultTimeout is how long one query may take before it counts as a
	// timeout.
	DefaultTimeout = 5 * time.Second

	maxLabelLenLimit = 8
)

// ErrOutputExists is returned by Validate when the output file is already
// there and -f was not given.
var ErrOutputExists = errors.New("output file exists and -f not set")

type Config struct {
	// Scan.
	Domain       string
	Budget       int           // -c, max queries in flight
	Wordlist     string        // -i, empty selects brute force
	MaxLabelLen  int           // -l, brute-force label length cap
	NameServers  []string      // -n, overrides NS discovery
	Timeout      time.Duration // -t
	SkipWildcard bool          // -w
	Simulate     bool
	RateLimit    float64 // -rate, probes per second, 0 = unlimited

	// Output.
	OutputPath string // -o, empty logs findings instead
	ErrorPath  string // -e
	Overwrite  bool   // -f

	// Ambient.
	Debug        bool   // -d
	StatusAddr   string // -status-addr
	LogDir       string // LOG_DIR
	DatabaseURL  string // DATABASE_URL
	SlackWebhook string // SLACK_WEBHOOK_URL
}

// serverList accepts -n several times and splits comma-joined values.
type serverList []string

func (s *serverList) String() string { return strings.Join(*s, ",") }

func (s *serverList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*s = append(*s, part)
		}
	}
	return nil
}

// Parse reads args (without the program name) into a Config. It does not
// validate; call Validate on the result.
func Parse(args []string) (*Config, error) {
	cfg := &Config{
		MaxLabelLen: DefaultMaxLabelLen,
		Timeout:     DefaultTimeout,
		OutputPath:  "out.txt",
	}

	fs := flag.NewFlagSet("subprober", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: subprober [flags] <domain>\n\nflags:\n")
		fs.PrintDefaults()
	}

	var servers serverList
	fs.IntVar(&cfg.Budget, "c", 0, "concurrency budget: maximum queries in flight (required)")
	fs.StringVar(&cfg.OutputPath, "o", cfg.OutputPath, "output `file`; empty logs findings instead of saving them")
	fs.StringVar(&cfg.ErrorPath, "e", "", "`file` collecting query timeouts, overwritten each run")
	fs.BoolVar(&cfg.Overwrite, "f", false, "overwrite the output file if it exists")
	fs.StringVar(&cfg.Wordlist, "i", "", "read candidate labels from `file` instead of brute-forcing")
	fs.IntVar(&cfg.MaxLabelLen, "l", cfg.MaxLabelLen, "maximum brute-forced label `length`")
	fs.Var(&servers, "n", "name `server` to query; repeatable, a random one is picked per probe")
	fs.DurationVar(&cfg.Timeout, "t", cfg.Timeout, "how long to wait for one DNS response")
	fs.BoolVar(&cfg.SkipWildcard, "w", false, "skip the wildcard DNS check")
	fs.BoolVar(&cfg.Debug, "d", false, "debug logging")
	fs.BoolVar(&cfg.Simulate, "simulate", false, "simulate probing with random outcomes, no network")
	fs.Float64Var(&cfg.RateLimit, "rate", 0, "maximum probes per second; 0 means unlimited")
	fs.StringVar(&cfg.StatusAddr, "status-addr", "", "serve a live status API on `host:port`")
	configPath := fs.String("config", "", "YAML config `file`; explicit flags win over it")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if len(servers) > 0 {
		cfg.NameServers = servers
	}

	if *configPath != "" {
		fc, err := loadFile(*configPath)
		if err != nil {
			return nil, err
		}
		set := map[string]bool{}
		fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
		if err := fc.apply(cfg, set); err != nil {
			return nil, err
		}
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return nil, fmt.Errorf("expected exactly one domain argument, got %d", fs.NArg())
	}
	cfg.Domain = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(fs.Arg(0)), "."))

	FromEnv(cfg)
	return cfg, nil
}

// FromEnv overlays the settings that have no flag.
func FromEnv(cfg *Config) {
	if v := os.Getenv("LOG_DIR"); v != "" {
		cfg.LogDir = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.SlackWebhook = v
	}
}

// Validate rejects configurations the scan could not honor. It reports the
// first problem found; nothing is written before it passes.
func (c *Config) Validate() error {
	if c.Domain == "" {
		return fmt.Errorf("domain must not be empty")
	}
	if c.Budget < 1 {
		return fmt.Errorf("concurrency budget (-c) must be at least 1, got %d", c.Budget)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("DNS timeout (-t) must be positive, got %v", c.Timeout)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit (-rate) must not be negative, got %v", c.RateLimit)
	}
	if c.Wordlist == "" {
		if c.MaxLabelLen < 1 || c.MaxLabelLen > maxLabelLenLimit {
			return fmt.Errorf("max label length (-l) must be between 1 and %d, got %d",
				maxLabelLenLimit, c.MaxLabelLen)
		}
	} else {
		if _, err := os.Stat(c.Wordlist); err != nil {
			return fmt.Errorf("wordlist %s: %w", c.Wordlist, err)
		}
	}
	if c.OutputPath != "" && !c.Overwrite {
		if _, err := os.Stat(c.OutputPath); err == nil {
			return fmt.Errorf("%s: %w", c.OutputPath, ErrOutputExists)
		}
	}
	return nil
}

// fileConfig mirrors the YAML layout. Zero values mean "not set" so the file
// can stay sparse.
type fileConfig struct {
	Scan struct {
		Budget       int      `yaml:"budget"`
		Wordlist     string   `yaml:"wordlist"`
		MaxLabelLen  int      `yaml:"max_label_len"`
		NameServers  []string `yaml:"nameservers"`
		Timeout      string   `yaml:"timeout"`
		SkipWildcard bool     `yaml:"skip_wildcard"`
		Simulate     bool     `yaml:"simulate"`
		RateLimit    float64  `yaml:"rate_limit"`
	} `yaml:"scan"`
	Output struct {
		File      string `yaml:"file"`
		ErrorFile string `yaml:"error_file"`
		Overwrite bool   `yaml:"overwrite"`
	} `yaml:"output"`
	Status struct {
		Addr string `yaml:"addr"`
	} `yaml:"status"`
}

func loadFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return &fc, nil
}

// apply copies file values into cfg for every flag the command line left
// untouched.
func (fc *fileConfig) apply(cfg *Config, set map[string]bool) error {
	if !set["c"] && fc.Scan.Budget != 0 {
		cfg.Budget = fc.Scan.Budget
	}
	if !set["i"] && fc.Scan.Wordlist != "" {
		cfg.Wordlist = fc.Scan.Wordlist
	}
	if !set["l"] && fc.Scan.MaxLabelLen != 0 {
		cfg.MaxLabelLen = fc.Scan.MaxLabelLen
	}
	if !set["n"] && len(fc.Scan.NameServers) > 0 {
		cfg.NameServers = fc.Scan.NameServers
	}
	if !set["t"] && fc.Scan.Timeout != "" {
		d, err := time.ParseDuration(fc.Scan.Timeout)
		if err != nil {
			return fmt.Errorf("config file timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if !set["w"] && fc.Scan.SkipWildcard {
		cfg.SkipWildcard = true
	}
	if !set["simulate"] && fc.Scan.Simulate {
		cfg.Simulate = true
	}
	if !set["rate"] && fc.Scan.RateLimit != 0 {
		cfg.RateLimit = fc.Scan.RateLimit
	}
	if !set["o"] && fc.Output.File != "" {
		cfg.OutputPath = fc.Output.File
	}
	if !set["e"] && fc.Output.ErrorFile != "" {
		cfg.ErrorPath = fc.Output.ErrorFile
	}
	if !set["f"] && fc.Output.Overwrite {
		cfg.Overwrite = true
	}
	if !set["status-addr"] && fc.Status.Addr != "" {
		cfg.StatusAddr = fc.Status.Addr
	}
	return nil
}
