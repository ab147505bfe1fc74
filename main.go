package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/thetooth/pingwindow/check"
	"github.com/thetooth/pingwindow/config"
	"github.com/thetooth/pingwindow/display"
	"github.com/thetooth/pingwindow/metrics"
	"github.com/thetooth/pingwindow/monitor"
	"github.com/thetooth/pingwindow/statistics"
)

var version = "dev"

func main() {
	args, err := config.ParseArgs(os.Args[1:], os.Stderr)
	if errors.Is(err, config.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if args.ShowVersion {
		fmt.Println("pingwindow", version)
		return
	}

	if args.LogJSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	// Attempt configuration load, nothing starts on failure
	cfg, err := args.Build()
	if err != nil {
		logrus.Fatal(err)
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.Fatal(err)
	}
	logrus.SetLevel(level)

	checker, err := check.New(cfg.Checker, cfg.Privileged)
	if err != nil {
		logrus.Fatal(err)
	}
	if size := check.PacketSize(cfg.Checker, cfg.PacketSize); size != cfg.PacketSize {
		logrus.Warnf("packet_size %d is below what the %s checker can send, using %d", cfg.PacketSize, cfg.Checker, size)
	}

	printer, err := display.New(cfg.Output, os.Stdout)
	if err != nil {
		logrus.Fatal(err)
	}

	agg := statistics.New()
	observers := monitor.Observers{printer}
	if cfg.StatusFile != "" {
		observers = append(observers, statistics.NewStatusFile(cfg.StatusFile, cfg.Host, agg))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.MetricsAddr != "" {
		listener, err := net.Listen("tcp", cfg.MetricsAddr)
		if err != nil {
			logrus.Fatal("Failed to start prometheus metrics server listener: ", err)
		}
		metrics.BuildInfo.WithLabelValues(version).Set(1)
		observers = append(observers, metrics.NewObserver(agg))
		checker = metrics.Instrument(checker)

		go func() {
			if err := metrics.Serve(ctx, listener); err != nil {
				logrus.Error("Prometheus metrics server: ", err)
			}
		}()
	}

	live := config.NewLive(cfg)
	if args.Watch {
		go func() {
			if err := config.Watch(ctx, args, live); err != nil {
				logrus.Error("Configuration watcher stopped: ", err)
			}
		}()
	}

	// Control signals
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-c
		logrus.Info("[ EXIT ] ", sig)
		cancel()
	}()

	logrus.WithFields(logrus.Fields{
		"host":     cfg.Host,
		"interval": cfg.Interval.Duration,
		"timeout":  cfg.ProbeTimeout(),
		"window":   cfg.Window(),
		"checker":  cfg.Checker,
	}).Info("Starting")

	supervisor := &monitor.Supervisor{
		Checker:  checker,
		Stats:    agg,
		Live:     live,
		Observer: observers,
	}
	if err := supervisor.Run(ctx); err != nil {
		logrus.Fatal(err)
	}
}
