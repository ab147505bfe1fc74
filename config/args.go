package config

import (
	"errors"
	"fmt"
	"io"
	"time"

	flag "github.com/spf13/pflag"
)

// ErrHelp is returned by ParseArgs when usage was requested.
var ErrHelp = flag.ErrHelp

// Args is the parsed command line. Flags the user set explicitly take
// precedence over the configuration file, including after a reload.
type Args struct {
	ConfigPath  string
	Watch       bool
	LogJSON     bool
	ShowVersion bool

	overrides []func(*Config)
}

// ParseArgs parses the command line (without the program name).
func ParseArgs(arguments []string, stderr io.Writer) (*Args, error) {
	args := &Args{}
	fs := flag.NewFlagSet("pingwindow", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "pingwindow - windowed ICMP reachability statistics")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Usage:")
		fmt.Fprintln(stderr, "  pingwindow [OPTIONS] [HOST]")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "Options:")
		fs.PrintDefaults()
	}

	def := Default()

	var (
		host       string
		interval   uint
		timeout    uint
		packetSize int
		noLoss     bool
		window     uint
		count      uint
		checker    string
		privileged bool
		iface      string
		output     string
		statusFile string
		metrics    string
		logLevel   string
	)

	fs.StringVarP(&args.ConfigPath, "config", "f", "", "JSON configuration file")
	fs.BoolVar(&args.Watch, "watch", false, "Reload the configuration file when it changes")
	fs.BoolVar(&args.LogJSON, "log-json", false, "Emit logs as JSON")
	fs.BoolVarP(&args.ShowVersion, "version", "v", false, "Show version information")

	fs.StringVar(&host, "host", def.Host, "Target host (also accepted as the first argument)")
	fs.UintVarP(&interval, "interval", "i", uint(def.Interval.Duration/time.Second), "Seconds between probes")
	fs.UintVarP(&timeout, "timeout", "t", 0, "Probe timeout in seconds (0 = interval)")
	fs.IntVarP(&packetSize, "packet-size", "s", def.PacketSize, "Payload bytes per probe")
	fs.BoolVar(&noLoss, "no-loss", false, "Do not compute packet loss")
	fs.UintVarP(&window, "window", "w", def.WindowMinutes, "Statistics window in minutes")
	fs.UintVarP(&count, "count", "c", 0, "Stop after this many probes (0 = run forever)")
	fs.StringVar(&checker, "checker", def.Checker, "Probe backend: exec, icmp or probing")
	fs.BoolVar(&privileged, "privileged", false, "Use raw ICMP sockets")
	fs.StringVarP(&iface, "interface", "I", "", "Source interface for probes")
	fs.StringVarP(&output, "output", "o", def.Output, "Output: auto, color, plain or json")
	fs.StringVar(&statusFile, "status-file", "", "Write the current statistics as JSON to this file")
	fs.StringVar(&metrics, "metrics-addr", "", "Serve Prometheus metrics on this address")
	fs.StringVar(&logLevel, "log-level", def.LogLevel, "Log level: trace, debug, info, warn, error")

	if err := fs.Parse(arguments); err != nil {
		return nil, err
	}

	if fs.NArg() > 1 {
		return nil, errors.New("only one host can be monitored")
	}
	if fs.NArg() == 1 {
		if fs.Changed("host") {
			return nil, errors.New("host given both as argument and --host")
		}
		host = fs.Arg(0)
		args.override(func(c *Config) { c.Host = host })
	}
	if args.Watch && args.ConfigPath == "" {
		return nil, errors.New("--watch requires --config")
	}

	set := func(name string, fn func(*Config)) {
		if fs.Changed(name) {
			args.override(fn)
		}
	}
	set("host", func(c *Config) { c.Host = host })
	set("interval", func(c *Config) { c.Interval.Duration = time.Duration(interval) * time.Second })
	set("timeout", func(c *Config) { c.Timeout.Duration = time.Duration(timeout) * time.Second })
	set("packet-size", func(c *Config) { c.PacketSize = packetSize })
	set("no-loss", func(c *Config) { c.ComputeLoss = !noLoss })
	set("window", func(c *Config) { c.WindowMinutes = window })
	set("count", func(c *Config) { c.Count = count })
	set("checker", func(c *Config) { c.Checker = checker })
	set("privileged", func(c *Config) { c.Privileged = privileged })
	set("interface", func(c *Config) { c.Interface = iface })
	set("output", func(c *Config) { c.Output = output })
	set("status-file", func(c *Config) { c.StatusFile = statusFile })
	set("metrics-addr", func(c *Config) { c.MetricsAddr = metrics })
	set("log-level", func(c *Config) { c.LogLevel = logLevel })

	return args, nil
}

func (a *Args) override(fn func(*Config)) {
	a.overrides = append(a.overrides, fn)
}

// Build produces a validated configuration from the defaults, the
// configuration file and the explicitly set flags.
func (a *Args) Build() (*Config, error) {
	cfg := Default()
	if a.ConfigPath != "" {
		var err error
		cfg, err = Load(a.ConfigPath)
		if err != nil {
			return nil, err
		}
	}

	for _, fn := range a.overrides {
		fn(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
