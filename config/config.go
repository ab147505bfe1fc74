package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync/atomic"
	"time"
)

const (
	DefaultHost          = "8.8.8.8"
	DefaultInterval      = 4 * time.Second
	DefaultPacketSize    = 8
	DefaultWindowMinutes = 1
	DefaultChecker       = "exec"
	DefaultOutput        = "auto"
	DefaultLogLevel      = "info"

	maxPacketSize = 65500
)

var (
	// ErrZeroWindow rejects a window that would reset the statistics on every tick.
	ErrZeroWindow = errors.New("window_minutes must be at least 1")

	Checkers = []string{"exec", "icmp", "probing"}
	Outputs  = []string{"auto", "color", "plain", "json"}
)

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Host:          DefaultHost,
		Interval:      Interval{Duration: DefaultInterval},
		PacketSize:    DefaultPacketSize,
		ComputeLoss:   true,
		WindowMinutes: DefaultWindowMinutes,
		Checker:       DefaultChecker,
		Output:        DefaultOutput,
		LogLevel:      DefaultLogLevel,
	}
}

// Load reads a JSON configuration file on top of the defaults.
func Load(path string) (cfg *Config, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	cfg = Default()
	err = json.Unmarshal(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return
}

type Config struct {
	Host          string   `json:"host"`
	Interval      Interval `json:"interval"`
	Timeout       Interval `json:"timeout"`
	PacketSize    int      `json:"packet_size"`
	ComputeLoss   bool     `json:"compute_loss"`
	WindowMinutes uint     `json:"window_minutes"`
	Count         uint     `json:"count"`

	Checker    string `json:"checker"`
	Privileged bool   `json:"privileged"`
	Interface  string `json:"interface"`

	Output      string `json:"output"`
	StatusFile  string `json:"status_file"`
	MetricsAddr string `json:"metrics_addr"`
	LogLevel    string `json:"log_level"`
}

// Validate reports the first configuration error found.
func (c *Config) Validate() error {
	switch {
	case c.Host == "":
		return errors.New("host is required")
	case c.Interval.Duration <= 0:
		return errors.New("interval must be positive")
	case c.Timeout.Duration < 0:
		return errors.New("timeout must not be negative")
	case c.PacketSize < 1 || c.PacketSize > maxPacketSize:
		return fmt.Errorf("packet_size must be between 1 and %d", maxPacketSize)
	case c.WindowMinutes == 0:
		return ErrZeroWindow
	case !oneOf(c.Checker, Checkers):
		return fmt.Errorf("unsupported checker %q", c.Checker)
	case !oneOf(c.Output, Outputs):
		return fmt.Errorf("unsupported output %q", c.Output)
	}
	return nil
}

// ProbeTimeout bounds a single probe. It defaults to the probe interval.
func (c *Config) ProbeTimeout() time.Duration {
	if c.Timeout.Duration > 0 {
		return c.Timeout.Duration
	}
	return c.Interval.Duration
}

func (c *Config) Window() time.Duration {
	return time.Duration(c.WindowMinutes) * time.Minute
}

func oneOf(s string, set []string) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Interval is a duration encoded as a Go duration string. Integer seconds are
// accepted when decoding.
type Interval struct {
	time.Duration
}

func (d *Interval) UnmarshalJSON(data []byte) (err error) {
	if secs, perr := strconv.ParseUint(string(data), 10, 32); perr == nil {
		d.Duration = time.Duration(secs) * time.Second
		return nil
	}

	var pstr string
	err = json.Unmarshal(data, &pstr)
	if err != nil {
		return err
	}
	d.Duration, err = time.ParseDuration(pstr)
	return
}

func (d Interval) MarshalJSON() (data []byte, err error) {
	s := d.Duration.String()
	data, err = json.Marshal(s)
	return
}

// Live holds the active configuration and allows it to be swapped while the
// monitor runs.
type Live struct {
	p atomic.Pointer[Config]
}

func NewLive(cfg *Config) *Live {
	l := &Live{}
	l.p.Store(cfg)
	return l
}

func (l *Live) Load() *Config {
	return l.p.Load()
}

func (l *Live) Store(cfg *Config) {
	l.p.Store(cfg)
}
