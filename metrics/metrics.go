package metrics

import (
	"context"
	"errors"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/thetooth/pingwindow/check"
	"github.com/thetooth/pingwindow/statistics"
)

var (
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pingwindow_build_info",
		Help: "Build information of pingwindow",
	}, []string{"version"})

	Transmitted = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pingwindow_window_transmitted", Help: "Probes transmitted in the current window.",
	})
	Received = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pingwindow_window_received", Help: "Probes answered in the current window.",
	})
	Unreachable = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pingwindow_window_unreachable", Help: "Probes unanswered in the current window.",
	})
	PacketLoss = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pingwindow_window_packet_loss_percent", Help: "Packet loss of the current window, NaN when not computed.",
	})
	WindowRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pingwindow_window_remaining_seconds", Help: "Seconds until the statistics are reset.",
	})

	Probes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pingwindow_probes_total", Help: "Total recorded probes by outcome.",
	}, []string{"outcome"})
	ProbeSkips = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pingwindow_probe_skips_total", Help: "Total probes not recorded because of a checker error or an unrecognized result.",
	})
	WindowResets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pingwindow_window_resets_total", Help: "Total completed windows.",
	})

	ProbeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pingwindow_probe_duration_seconds",
		Help:    "Time spent in the checker per probe.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	}, []string{"status"})
)

// Observer mirrors the window statistics into the gauges above. The gauges
// are always set from the aggregator's current counters, so a snapshot that
// arrives after a window reset cannot bring back old counts.
type Observer struct {
	Stats *statistics.Aggregator

	mu sync.Mutex
}

func NewObserver(agg *statistics.Aggregator) *Observer {
	return &Observer{Stats: agg}
}

func (o *Observer) ProbeRecorded(_ string, outcome statistics.Outcome, _ statistics.Statistics) {
	Probes.WithLabelValues(outcome.String()).Inc()
	o.publish()
}

func (o *Observer) ProbeSkipped(string, error) {
	ProbeSkips.Inc()
}

func (o *Observer) WindowTick(remaining time.Duration) {
	WindowRemaining.Set(remaining.Seconds())
}

func (o *Observer) WindowReset(statistics.Statistics) {
	WindowResets.Inc()
	o.publish()
}

func (o *Observer) Stopped(statistics.Statistics) {
	o.publish()
	WindowRemaining.Set(0)
}

func (o *Observer) publish() {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.Stats.Snapshot()
	Transmitted.Set(float64(s.Transmitted))
	Received.Set(float64(s.Received))
	Unreachable.Set(float64(s.Unreachable))
	if s.PacketLoss != nil {
		PacketLoss.Set(*s.PacketLoss)
	} else {
		PacketLoss.Set(math.NaN())
	}
}

type instrumented struct {
	check.Checker
}

// Instrument times every probe of c.
func Instrument(c check.Checker) check.Checker {
	return instrumented{Checker: c}
}

func (i instrumented) Check(ctx context.Context, req check.Request) (check.Result, error) {
	start := time.Now()
	res, err := i.Checker.Check(ctx, req)

	status := res.Status.String()
	if err != nil {
		status = "failed"
	}
	ProbeDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	return res, err
}

// Serve exposes /metrics on listener until ctx is done.
func Serve(ctx context.Context, listener net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logrus.Info("Prometheus metrics server listening on ", listener.Addr())
	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
