package display

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thetooth/pingwindow/statistics"
)

func lossOf(v float64) *float64 {
	return &v
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer

	p, err := New("auto", &buf)
	require.NoError(t, err)
	assert.IsType(t, &TextPrinter{}, p)
	assert.False(t, p.(*TextPrinter).redraw, "a buffer is not a terminal")

	p, err = New("json", &buf)
	require.NoError(t, err)
	assert.IsType(t, &JSONPrinter{}, p)

	_, err = New("xml", &buf)
	require.EqualError(t, err, `unsupported output "xml"`)
}

func TestSummary(t *testing.T) {
	s := statistics.Statistics{Transmitted: 3, Received: 2, Unreachable: 1, PacketLoss: lossOf(33.33)}
	assert.Equal(t, "3 transmitted, 2 received, 1 unreachable, 33.33% packet loss", summary(s))

	s.PacketLoss = nil
	assert.Equal(t, "3 transmitted, 2 received, 1 unreachable", summary(s))
}

func TestClock(t *testing.T) {
	assert.Equal(t, "01:00", clock(time.Minute))
	assert.Equal(t, "00:59", clock(59*time.Second))
	assert.Equal(t, "12:00:00", clock(720*time.Minute))
	assert.Equal(t, "1:01:05", clock(time.Hour+65*time.Second))
}

func TestPlainPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlainPrinter(&buf)

	p.ProbeRecorded("192.0.2.1", statistics.Received, statistics.Statistics{Transmitted: 1, Received: 1, PacketLoss: lossOf(0)})
	p.ProbeRecorded("192.0.2.1", statistics.Unreachable, statistics.Statistics{Transmitted: 2, Received: 1, Unreachable: 1, PacketLoss: lossOf(50)})
	p.ProbeSkipped("192.0.2.1", errors.New("boom"))
	p.WindowTick(2 * time.Minute)
	p.WindowTick(119 * time.Second)
	p.WindowReset(statistics.Statistics{Transmitted: 2, Received: 1, Unreachable: 1})

	want := strings.Join([]string{
		"Reply from 192.0.2.1: 1 transmitted, 1 received, 0 unreachable, 0.00% packet loss",
		"No reply from 192.0.2.1: 2 transmitted, 1 received, 1 unreachable, 50.00% packet loss",
		"Probe to 192.0.2.1 not counted: boom",
		"Window resets in 02:00",
		"Window complete: 2 transmitted, 1 received, 1 unreachable",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestColorPrinter_Redraw(t *testing.T) {
	color.Disable()
	t.Cleanup(func() { color.Enable = true })

	var buf bytes.Buffer
	p := NewColorPrinter(&buf, true)

	p.WindowTick(time.Minute)
	p.WindowTick(59 * time.Second)
	p.ProbeRecorded("192.0.2.1", statistics.Received, statistics.Statistics{Transmitted: 1, Received: 1})
	p.WindowTick(58 * time.Second)

	want := clearLine + "Window resets in 01:00" +
		clearLine + "Window resets in 00:59" +
		clearLine + "Reply from 192.0.2.1: 1 transmitted, 1 received, 0 unreachable\n" +
		clearLine + "Window resets in 00:58"
	assert.Equal(t, want, buf.String())
}

func TestJSONPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewJSONPrinter(&buf)

	p.ProbeRecorded("192.0.2.1", statistics.Unreachable, statistics.Statistics{Transmitted: 1, Unreachable: 1, PacketLoss: lossOf(100)})
	p.WindowTick(59 * time.Second)
	p.WindowTick(time.Minute)
	p.Stopped(statistics.Statistics{Transmitted: 1, Unreachable: 1})

	var events []Event
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var ev Event
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
		events = append(events, ev)
	}
	require.Len(t, events, 3)

	assert.Equal(t, "probe", events[0].Type)
	assert.Equal(t, "unreachable", events[0].Outcome)
	require.NotNil(t, events[0].Statistics)
	require.NotNil(t, events[0].Statistics.PacketLoss)
	assert.Equal(t, 100.0, *events[0].Statistics.PacketLoss)

	assert.Equal(t, "countdown", events[1].Type)
	assert.Equal(t, 60.0, events[1].Remaining)

	assert.Equal(t, "stopped", events[2].Type)
	assert.Nil(t, events[2].Statistics.PacketLoss)
}
