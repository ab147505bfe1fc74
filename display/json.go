package display

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/thetooth/pingwindow/statistics"
)

// Event is one line of JSON output.
type Event struct {
	Type       string                 `json:"type"`
	Time       time.Time              `json:"time"`
	Host       string                 `json:"host,omitempty"`
	Outcome    string                 `json:"outcome,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Remaining  float64                `json:"remaining_seconds,omitempty"`
	Statistics *statistics.Statistics `json:"statistics,omitempty"`
}

// JSONPrinter writes one JSON object per event. Countdown ticks are only
// written on whole minutes.
type JSONPrinter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{enc: json.NewEncoder(w)}
}

func (p *JSONPrinter) ProbeRecorded(host string, outcome statistics.Outcome, s statistics.Statistics) {
	p.emit(Event{Type: "probe", Host: host, Outcome: outcome.String(), Statistics: &s})
}

func (p *JSONPrinter) ProbeSkipped(host string, err error) {
	p.emit(Event{Type: "skipped", Host: host, Error: err.Error()})
}

func (p *JSONPrinter) WindowTick(remaining time.Duration) {
	if onMinute(remaining) {
		p.emit(Event{Type: "countdown", Remaining: remaining.Seconds()})
	}
}

func (p *JSONPrinter) WindowReset(final statistics.Statistics) {
	p.emit(Event{Type: "window", Statistics: &final})
}

func (p *JSONPrinter) Stopped(final statistics.Statistics) {
	p.emit(Event{Type: "stopped", Statistics: &final})
}

func (p *JSONPrinter) emit(ev Event) {
	ev.Time = time.Now().UTC()

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enc.Encode(ev); err != nil {
		logrus.Error("Writing event: ", err)
	}
}
