package metrics_test

import (
	"context"
	"io"
	"math"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thetooth/pingwindow/check"
	"github.com/thetooth/pingwindow/metrics"
	"github.com/thetooth/pingwindow/statistics"
)

func TestObserver_Window(t *testing.T) {
	agg := statistics.New()
	obs := metrics.NewObserver(agg)
	before := testutil.ToFloat64(metrics.Probes.WithLabelValues("unreachable"))

	var s statistics.Statistics
	for i := 0; i < 10; i++ {
		outcome := statistics.Received
		if i%4 == 3 || i == 9 {
			outcome = statistics.Unreachable
		}
		var err error
		s, err = agg.Record(outcome, true)
		require.NoError(t, err)
	}
	obs.ProbeRecorded("192.0.2.1", statistics.Unreachable, s)

	assert.Equal(t, 10.0, testutil.ToFloat64(metrics.Transmitted))
	assert.Equal(t, 7.0, testutil.ToFloat64(metrics.Received))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.Unreachable))
	assert.Equal(t, 30.0, testutil.ToFloat64(metrics.PacketLoss))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.Probes.WithLabelValues("unreachable")))

	obs.WindowTick(42 * time.Second)
	assert.Equal(t, 42.0, testutil.ToFloat64(metrics.WindowRemaining))

	resets := testutil.ToFloat64(metrics.WindowResets)
	obs.WindowReset(agg.Reset())
	assert.Equal(t, resets+1, testutil.ToFloat64(metrics.WindowResets))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.Transmitted))
	assert.True(t, math.IsNaN(testutil.ToFloat64(metrics.PacketLoss)))

	skips := testutil.ToFloat64(metrics.ProbeSkips)
	obs.ProbeSkipped("192.0.2.1", check.ErrUnrecognized)
	assert.Equal(t, skips+1, testutil.ToFloat64(metrics.ProbeSkips))
}

func TestObserver_LateProbeAfterReset(t *testing.T) {
	agg := statistics.New()
	obs := metrics.NewObserver(agg)

	var late statistics.Statistics
	for range 5 {
		var err error
		late, err = agg.Record(statistics.Received, true)
		require.NoError(t, err)
	}

	// The window resets before the last probe is reported
	obs.WindowReset(agg.Reset())
	obs.ProbeRecorded("192.0.2.1", statistics.Received, late)

	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.Transmitted))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.Received))
	assert.True(t, math.IsNaN(testutil.ToFloat64(metrics.PacketLoss)))
}

type fixedChecker struct {
	res check.Result
}

func (c fixedChecker) Check(context.Context, check.Request) (check.Result, error) {
	return c.res, nil
}

func TestInstrument(t *testing.T) {
	before := testutil.CollectAndCount(metrics.ProbeDuration)

	c := metrics.Instrument(fixedChecker{res: check.Result{Status: check.Reachable, RTT: time.Millisecond}})
	res, err := c.Check(context.Background(), check.Request{Target: "192.0.2.1"})
	require.NoError(t, err)
	assert.Equal(t, check.Reachable, res.Status)

	assert.GreaterOrEqual(t, testutil.CollectAndCount(metrics.ProbeDuration), max(before, 1))
}

func TestServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- metrics.Serve(ctx, ln) }()

	metrics.BuildInfo.WithLabelValues("test").Set(1)

	resp, err := http.Get("http://" + ln.Addr().String() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `pingwindow_build_info{version="test"} 1`)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}
