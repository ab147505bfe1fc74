// Package display prints probe results and window progress for people
// (color and plain text) and for other programs (JSON lines).
package display

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/thetooth/pingwindow/statistics"
	"golang.org/x/term"
)

// Printer receives the same notifications as the monitor loops emit.
type Printer interface {
	ProbeRecorded(host string, outcome statistics.Outcome, s statistics.Statistics)
	ProbeSkipped(host string, err error)
	WindowTick(remaining time.Duration)
	WindowReset(final statistics.Statistics)
	Stopped(final statistics.Statistics)
}

// New returns the printer for output writing to w. Auto selects the color
// printer with an in place countdown when w is a terminal, plain text
// otherwise.
func New(output string, w io.Writer) (Printer, error) {
	switch output {
	case "auto":
		if isTerminal(w) {
			return NewColorPrinter(w, true), nil
		}
		return NewPlainPrinter(w), nil
	case "color":
		return NewColorPrinter(w, isTerminal(w)), nil
	case "plain":
		return NewPlainPrinter(w), nil
	case "json":
		return NewJSONPrinter(w), nil
	default:
		return nil, fmt.Errorf("unsupported output %q", output)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// summary reads like the last line of ping.
func summary(s statistics.Statistics) string {
	out := fmt.Sprintf("%d transmitted, %d received, %d unreachable", s.Transmitted, s.Received, s.Unreachable)
	if s.PacketLoss != nil {
		out += fmt.Sprintf(", %.2f%% packet loss", *s.PacketLoss)
	}
	return out
}

// clock formats a countdown as mm:ss, or h:mm:ss for windows of an hour or more.
func clock(d time.Duration) string {
	secs := int64(d.Round(time.Second) / time.Second)
	h, m, s := secs/3600, secs/60%60, secs%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// onMinute reports whether a countdown tick falls on a whole minute.
func onMinute(remaining time.Duration) bool {
	return remaining%time.Minute == 0
}
