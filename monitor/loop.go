package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/thetooth/pingwindow/check"
	"github.com/thetooth/pingwindow/config"
	"github.com/thetooth/pingwindow/statistics"
)

// checkGrace is added to the probe timeout for the checker's context. The
// backends enforce the timeout themselves and need the extra time to report
// an unreachable host rather than be cut off.
const checkGrace = time.Second

// ProbeLoop probes the configured host once per interval and records every
// classified outcome.
type ProbeLoop struct {
	Log      logrus.FieldLogger
	Clock    clockwork.Clock
	Checker  check.Checker
	Stats    *statistics.Aggregator
	Live     *config.Live
	Observer Observer

	// Count stops the loop after this many cycles, 0 runs until cancelled.
	Count uint
}

func (l *ProbeLoop) Validate() error {
	if l.Log == nil {
		l.Log = logrus.StandardLogger()
	}
	if l.Clock == nil {
		l.Clock = clockwork.NewRealClock()
	}
	if l.Observer == nil {
		l.Observer = Observers{}
	}
	if l.Checker == nil {
		return errors.New("checker is required")
	}
	if l.Stats == nil {
		return errors.New("statistics aggregator is required")
	}
	if l.Live == nil || l.Live.Load() == nil {
		return errors.New("configuration is required")
	}
	return nil
}

// Run probes until ctx is cancelled or Count cycles completed. Probe
// failures never end the loop.
func (l *ProbeLoop) Run(ctx context.Context) error {
	if err := l.Validate(); err != nil {
		return err
	}

	interval := l.Live.Load().Interval.Duration
	ticker := l.Clock.NewTicker(interval)
	defer ticker.Stop()

	for n := uint(1); ; n++ {
		if ctx.Err() != nil {
			return nil
		}

		cfg := l.Live.Load()
		if cfg.Interval.Duration != interval {
			interval = cfg.Interval.Duration
			ticker.Reset(interval)
		}

		l.probe(ctx, cfg)

		if l.Count > 0 && n >= l.Count {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
		}
	}
}

func (l *ProbeLoop) probe(ctx context.Context, cfg *config.Config) {
	req := check.Request{
		Target:   cfg.Host,
		Interval: cfg.Interval.Duration,
		Timeout:  cfg.ProbeTimeout(),
		Size:     cfg.PacketSize,
		Source:   cfg.Interface,
	}
	log := l.Log.WithField("host", cfg.Host)

	// A stop request lets the probe in flight finish, the timeout still bounds it
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), req.Timeout+checkGrace)
	defer cancel()

	res, err := l.Checker.Check(pctx, req)
	if err != nil {
		log.Error("[ PROBE_ERROR ] ", err)
		l.Observer.ProbeSkipped(cfg.Host, err)
		return
	}

	var outcome statistics.Outcome
	switch res.Status {
	case check.Reachable:
		outcome = statistics.Received
	case check.Unreachable:
		outcome = statistics.Unreachable
	default:
		err := res.Err()
		if err == nil {
			err = fmt.Errorf("%w: %v", check.ErrUnrecognized, res.Status)
		}
		log.Warn("[ PROBE_ANOMALY ] ", err)
		l.Observer.ProbeSkipped(cfg.Host, err)
		return
	}

	s, err := l.Stats.Record(outcome, cfg.ComputeLoss)
	if err != nil {
		log.Warn("[ PROBE_ANOMALY ] ", err)
		l.Observer.ProbeSkipped(cfg.Host, err)
		return
	}

	log.WithFields(logrus.Fields{
		"outcome":     outcome,
		"code":        res.Code,
		"rtt":         res.RTT,
		"transmitted": s.Transmitted,
	}).Debug("Probe recorded")
	l.Observer.ProbeRecorded(cfg.Host, outcome, s)
}
