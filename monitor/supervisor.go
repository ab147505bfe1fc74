package monitor

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/thetooth/pingwindow/check"
	"github.com/thetooth/pingwindow/config"
	"github.com/thetooth/pingwindow/statistics"
	"golang.org/x/sync/errgroup"
)

// Supervisor runs the probe loop and the window controller side by side over
// one aggregator.
type Supervisor struct {
	Log      logrus.FieldLogger
	Clock    clockwork.Clock
	Checker  check.Checker
	Stats    *statistics.Aggregator
	Live     *config.Live
	Observer Observer
}

// Run blocks until ctx is cancelled, or until the probe loop has done its
// configured number of probes. Observers get the last snapshot on the way out.
func (s *Supervisor) Run(ctx context.Context) error {
	probe := &ProbeLoop{
		Log:      s.Log,
		Clock:    s.Clock,
		Checker:  s.Checker,
		Stats:    s.Stats,
		Live:     s.Live,
		Observer: s.Observer,
	}
	if err := probe.Validate(); err != nil {
		return err
	}
	probe.Count = s.Live.Load().Count

	window := &WindowController{
		Log:      probe.Log,
		Clock:    probe.Clock,
		Stats:    s.Stats,
		Live:     s.Live,
		Observer: probe.Observer,
	}
	if err := window.Validate(); err != nil {
		return err
	}

	// The window only stops early when the probe loop is done counting
	windowCtx, stopWindow := context.WithCancel(ctx)
	defer stopWindow()

	var g errgroup.Group

	g.Go(func() error {
		defer stopWindow()
		return probe.Run(ctx)
	})

	g.Go(func() error {
		return window.Run(windowCtx)
	})

	err := g.Wait()

	final := s.Stats.Snapshot()
	probe.Log.WithFields(logrus.Fields{
		"transmitted": final.Transmitted,
		"received":    final.Received,
		"unreachable": final.Unreachable,
	}).Info("Stopped")
	probe.Observer.Stopped(final)

	return err
}
