package monitor_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/thetooth/pingwindow/check"
	"github.com/thetooth/pingwindow/config"
	"github.com/thetooth/pingwindow/statistics"
)

// scripted replays results in order, wrapping around at the end.
type scripted struct {
	result check.Result
	err    error
}

type fakeChecker struct {
	mu      sync.Mutex
	script  []scripted
	calls   int
	request check.Request
}

func newFakeChecker(script ...scripted) *fakeChecker {
	return &fakeChecker{script: script}
}

func (c *fakeChecker) Check(_ context.Context, req check.Request) (check.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.script[c.calls%len(c.script)]
	c.calls++
	c.request = req
	return s.result, s.err
}

func (c *fakeChecker) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *fakeChecker) LastRequest() check.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.request
}

func reachable() scripted {
	return scripted{result: check.Result{Status: check.Reachable}}
}

func unreachable() scripted {
	return scripted{result: check.Result{Status: check.Unreachable, Code: 1}}
}

type recorder struct {
	mu       sync.Mutex
	recorded []statistics.Statistics
	skipped  []error
	ticks    []time.Duration
	resets   []statistics.Statistics
	stopped  []statistics.Statistics
}

func (r *recorder) ProbeRecorded(_ string, _ statistics.Outcome, s statistics.Statistics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recorded = append(r.recorded, s)
}

func (r *recorder) ProbeSkipped(_ string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipped = append(r.skipped, err)
}

func (r *recorder) WindowTick(remaining time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks = append(r.ticks, remaining)
}

func (r *recorder) WindowReset(final statistics.Statistics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets = append(r.resets, final)
}

func (r *recorder) Stopped(final statistics.Statistics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = append(r.stopped, final)
}

func (r *recorder) Ticks() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.ticks...)
}

func (r *recorder) Resets() []statistics.Statistics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]statistics.Statistics(nil), r.resets...)
}

func fastConfig(count uint) *config.Config {
	cfg := config.Default()
	cfg.Host = "192.0.2.1"
	cfg.Interval = config.Interval{Duration: time.Millisecond}
	cfg.Timeout = config.Interval{Duration: time.Second}
	cfg.Count = count
	return cfg
}

func nullLogger() (*logrus.Logger, *test.Hook) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return log, hook
}

func entriesWith(hook *test.Hook, tag string) (n int) {
	for _, e := range hook.AllEntries() {
		if strings.HasPrefix(e.Message, tag) {
			n++
		}
	}
	return
}

var errSocket = errors.New("socket: operation not permitted")
