package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watch reloads the configuration file whenever it is written or replaced and
// stores every valid result in live. Invalid reloads are logged and the
// previous configuration stays active. Watch blocks until ctx is done.
func Watch(ctx context.Context, args *Args, live *Live) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory, editors tend to replace files instead of writing them
	path := filepath.Clean(args.ConfigPath)
	if err := w.Add(filepath.Dir(path)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			cfg, err := args.Build()
			if err != nil {
				logrus.Warn("[ CONFIG_RELOAD ] ignoring ", path, ": ", err)
				continue
			}
			live.Store(cfg)
			logrus.WithFields(logrus.Fields{
				"host":     cfg.Host,
				"interval": cfg.Interval.Duration,
				"window":   cfg.Window(),
			}).Info("[ CONFIG_RELOAD ] applied ", path)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logrus.Error("Watching configuration: ", err)
		}
	}
}
