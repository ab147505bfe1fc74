package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/thetooth/pingwindow/config"
	"github.com/thetooth/pingwindow/statistics"
)

// WindowController counts the window down one second at a time and resets
// the statistics when it runs out.
type WindowController struct {
	Log      logrus.FieldLogger
	Clock    clockwork.Clock
	Stats    *statistics.Aggregator
	Live     *config.Live
	Observer Observer
}

func (w *WindowController) Validate() error {
	if w.Log == nil {
		w.Log = logrus.StandardLogger()
	}
	if w.Clock == nil {
		w.Clock = clockwork.NewRealClock()
	}
	if w.Observer == nil {
		w.Observer = Observers{}
	}
	if w.Stats == nil {
		return errors.New("statistics aggregator is required")
	}
	if w.Live == nil || w.Live.Load() == nil {
		return errors.New("configuration is required")
	}
	return nil
}

// Run counts windows until ctx is cancelled. The window length is read again
// at the start of every window.
func (w *WindowController) Run(ctx context.Context) error {
	if err := w.Validate(); err != nil {
		return err
	}

	ticker := w.Clock.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		window := w.Live.Load().Window()
		if window <= 0 {
			return config.ErrZeroWindow
		}

		for remaining := window; remaining > 0; remaining -= time.Second {
			w.Observer.WindowTick(remaining)

			select {
			case <-ctx.Done():
				return nil
			case <-ticker.Chan():
			}
		}

		final := w.Stats.Reset()
		fields := logrus.Fields{
			"window":      window,
			"transmitted": final.Transmitted,
			"received":    final.Received,
			"unreachable": final.Unreachable,
		}
		if final.PacketLoss != nil {
			fields["packet_loss"] = *final.PacketLoss
		}
		w.Log.WithFields(fields).Info("[ WINDOW_RESET ] statistics cleared")
		w.Observer.WindowReset(final)
	}
}
