package monitor

import (
	"time"

	"github.com/thetooth/pingwindow/statistics"
)

// Observer is notified of everything the loops do. Implementations must be
// safe for concurrent use, the probe loop and the window controller call
// them from different goroutines.
type Observer interface {
	ProbeRecorded(host string, outcome statistics.Outcome, s statistics.Statistics)
	ProbeSkipped(host string, err error)
	WindowTick(remaining time.Duration)
	WindowReset(final statistics.Statistics)
	Stopped(final statistics.Statistics)
}

// Observers fans every notification out to each observer in order.
type Observers []Observer

func (o Observers) ProbeRecorded(host string, outcome statistics.Outcome, s statistics.Statistics) {
	for _, obs := range o {
		obs.ProbeRecorded(host, outcome, s)
	}
}

func (o Observers) ProbeSkipped(host string, err error) {
	for _, obs := range o {
		obs.ProbeSkipped(host, err)
	}
}

func (o Observers) WindowTick(remaining time.Duration) {
	for _, obs := range o {
		obs.WindowTick(remaining)
	}
}

func (o Observers) WindowReset(final statistics.Statistics) {
	for _, obs := range o {
		obs.WindowReset(final)
	}
}

func (o Observers) Stopped(final statistics.Statistics) {
	for _, obs := range o {
		obs.Stopped(final)
	}
}
