package statistics

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

var (
	// ErrNoProbes is returned when packet loss is requested before anything was transmitted.
	ErrNoProbes = errors.New("no probes transmitted")

	// ErrUnknownOutcome is returned by Record for outcomes other than Received and Unreachable.
	ErrUnknownOutcome = errors.New("unknown probe outcome")
)

// Outcome is the classified result of a single probe.
type Outcome int

const (
	Received Outcome = iota
	Unreachable
)

func (o Outcome) String() string {
	switch o {
	case Received:
		return "received"
	case Unreachable:
		return "unreachable"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Statistics is a point in time copy of the window counters.
type Statistics struct {
	Transmitted uint64   `json:"transmitted"`
	Received    uint64   `json:"received"`
	Unreachable uint64   `json:"unreachable"`
	PacketLoss  *float64 `json:"packet_loss,omitempty"`
}

// Loss derives the packet loss percentage from the snapshot's own counters.
func (s Statistics) Loss() (float64, error) {
	if s.Transmitted == 0 {
		return 0, ErrNoProbes
	}
	return packetLoss(s.Received, s.Transmitted), nil
}

func packetLoss(received, transmitted uint64) float64 {
	loss := 100 - (float64(received) / float64(transmitted) * 100)
	return math.Round(loss*100) / 100
}

// Window describes the current statistics window.
type Window struct {
	Started   time.Time `json:"started"`
	Completed uint64    `json:"completed"`
}

// Aggregator owns the window counters. Record, Reset and Snapshot are
// serialized by a single mutex so every reader sees
// Transmitted == Received + Unreachable.
type Aggregator struct {
	mu      sync.Mutex
	stats   Statistics
	window  Window
	nowFunc func() time.Time
}

func New() *Aggregator {
	return NewWithClock(time.Now)
}

// NewWithClock is New with a custom time source for window start times.
func NewWithClock(now func() time.Time) *Aggregator {
	return &Aggregator{
		nowFunc: now,
		window:  Window{Started: now()},
	}
}

// Record counts one probe outcome. When computeLoss is set the packet loss is
// recomputed from the post-increment counters, otherwise it is cleared.
func (a *Aggregator) Record(outcome Outcome, computeLoss bool) (Statistics, error) {
	if outcome != Received && outcome != Unreachable {
		return a.Snapshot(), fmt.Errorf("%w: %v", ErrUnknownOutcome, outcome)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.Transmitted++
	if outcome == Received {
		a.stats.Received++
	} else {
		a.stats.Unreachable++
	}

	a.stats.PacketLoss = nil
	if computeLoss {
		loss := packetLoss(a.stats.Received, a.stats.Transmitted)
		a.stats.PacketLoss = &loss
	}

	return a.snapshotLocked(), nil
}

// Reset zeroes the counters, starts a new window and returns the statistics
// of the window that just ended.
func (a *Aggregator) Reset() Statistics {
	a.mu.Lock()
	defer a.mu.Unlock()

	final := a.snapshotLocked()
	a.stats = Statistics{}
	a.window.Started = a.nowFunc()
	a.window.Completed++

	return final
}

func (a *Aggregator) Snapshot() Statistics {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// PacketLoss derives the loss from the current counters.
func (a *Aggregator) PacketLoss() (float64, error) {
	return a.Snapshot().Loss()
}

func (a *Aggregator) Window() Window {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.window
}

// State returns the counters together with the window they belong to.
func (a *Aggregator) State() (Statistics, Window) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked(), a.window
}

func (a *Aggregator) snapshotLocked() Statistics {
	s := a.stats
	if s.PacketLoss != nil {
		loss := *s.PacketLoss
		s.PacketLoss = &loss
	}
	return s
}
