package display

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gookit/color"
	"github.com/thetooth/pingwindow/statistics"
)

// clearLine returns the cursor to the start of a countdown line and erases it.
const clearLine = "\r\033[K"

// TextPrinter writes one line per event. With redraw set the countdown is
// kept on a single line that is rewritten every second, otherwise it is
// printed once per minute.
type TextPrinter struct {
	w      io.Writer
	redraw bool

	ok, fail, warn, info, reset func(format string, a ...any) string

	mu        sync.Mutex
	countdown bool
}

// NewColorPrinter returns a TextPrinter that colors its output.
func NewColorPrinter(w io.Writer, redraw bool) *TextPrinter {
	return &TextPrinter{
		w:      w,
		redraw: redraw,
		ok:     color.LightGreen.Sprintf,
		fail:   color.LightRed.Sprintf,
		warn:   color.LightYellow.Sprintf,
		info:   color.LightCyan.Sprintf,
		reset:  color.FgLightBlue.Sprintf,
	}
}

// NewPlainPrinter returns a TextPrinter without colors or redraws.
func NewPlainPrinter(w io.Writer) *TextPrinter {
	return &TextPrinter{w: w, ok: fmt.Sprintf, fail: fmt.Sprintf, warn: fmt.Sprintf, info: fmt.Sprintf, reset: fmt.Sprintf}
}

func (p *TextPrinter) ProbeRecorded(host string, outcome statistics.Outcome, s statistics.Statistics) {
	if outcome == statistics.Received {
		p.println(p.ok("Reply from %s: %s", host, summary(s)))
		return
	}
	p.println(p.fail("No reply from %s: %s", host, summary(s)))
}

func (p *TextPrinter) ProbeSkipped(host string, err error) {
	p.println(p.warn("Probe to %s not counted: %v", host, err))
}

func (p *TextPrinter) WindowTick(remaining time.Duration) {
	if !p.redraw {
		if onMinute(remaining) {
			p.println(p.info("Window resets in %s", clock(remaining)))
		}
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.w, clearLine+p.info("Window resets in %s", clock(remaining)))
	p.countdown = true
}

func (p *TextPrinter) WindowReset(final statistics.Statistics) {
	p.println(p.reset("Window complete: %s", summary(final)))
}

func (p *TextPrinter) Stopped(final statistics.Statistics) {
	p.println(p.info("--- statistics ---"))
	p.println(summary(final))
}

func (p *TextPrinter) println(line string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.countdown {
		fmt.Fprint(p.w, clearLine)
		p.countdown = false
	}
	fmt.Fprintln(p.w, line)
}
