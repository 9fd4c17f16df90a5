package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/useridle/pkg/activity"
	"github.com/Veraticus/useridle/pkg/config"
	"github.com/Veraticus/useridle/pkg/idle"
	"github.com/Veraticus/useridle/pkg/interfaces"
	"github.com/Veraticus/useridle/pkg/notification"
	"github.com/Veraticus/useridle/pkg/process"
)

// Dependencies holds all the dependencies for the application
type Dependencies struct {
	Config              *config.Config
	Logger              *slog.Logger
	Clock               idle.Clock
	Source              *activity.TerminalSource
	Monitor             *idle.Monitor
	Notifier            notification.Notifier
	RateLimiter         interfaces.RateLimiter
	NotificationManager *notification.Manager
	ProcessManager      *process.Manager
	Watchers            []*idle.Watcher
}

// NewDependencies creates all dependencies with the given configuration
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	return newDependencies(cfg, logger, idle.SystemClock, newNotifier(cfg, os.Stderr))
}

func newDependencies(cfg *config.Config, logger *slog.Logger, clock idle.Clock, notifier notification.Notifier) (*Dependencies, error) {
	if logger == nil {
		logger = slog.Default()
	}

	kinds, err := cfg.Kinds()
	if err != nil {
		return nil, err
	}

	deps := &Dependencies{
		Config:   cfg,
		Logger:   logger,
		Clock:    clock,
		Notifier: notifier,
	}

	deps.Source = activity.NewTerminalSource(clock, activity.DefaultBuffer)
	deps.Monitor = idle.New(idle.Options{
		PollInterval: cfg.PollInterval,
		Clock:        clock,
		Source:       deps.Source,
		Kinds:        kinds,
		Logger:       logger.With("component", "idle"),
	})

	if notifier != nil {
		if cfg.RateLimit.MaxMessages > 0 {
			deps.RateLimiter = notification.NewTokenBucketRateLimiter(cfg.RateLimit.MaxMessages, cfg.RateLimit.Window)
		}
		deps.NotificationManager = notification.NewManager(notifier, deps.RateLimiter, cfg.BatchWindow, logger)

		if err := deps.registerWatchers(); err != nil {
			return nil, err
		}
	}

	deps.ProcessManager = process.NewManager(deps.Source, deps.Source.HandleResize, logger.With("component", "process"))

	return deps, nil
}

// newNotifier picks the delivery channel. Quiet mode disables notifications
// entirely; without an ntfy topic they are printed to w.
func newNotifier(cfg *config.Config, w io.Writer) notification.Notifier {
	switch {
	case cfg.Quiet:
		return nil
	case cfg.NtfyTopic != "":
		return notification.NewNtfyClient(cfg.NtfyServer, cfg.NtfyTopic)
	default:
		return notification.NewWriterNotifier(w)
	}
}

func (d *Dependencies) registerWatchers() error {
	for _, wc := range d.Config.Watchers {
		alert := notification.Alert{
			Watcher:        wc.Name,
			Timeout:        wc.Timeout,
			Message:        wc.Message,
			NotifyOnActive: wc.NotifyOnActive,
		}
		onIdle, onActive := alert.Handlers(d.NotificationManager, d.Clock.Now, d.Logger)

		w := d.Monitor.SetIdle(onIdle, wc.Timeout, idle.WatchOptions{
			Tick:     wc.Tick,
			OnActive: onActive,
			Name:     wc.Name,
		})
		if w == nil {
			return fmt.Errorf("watcher %q: rejected by monitor", wc.Name)
		}
		d.Watchers = append(d.Watchers, w)
	}
	return nil
}

// Close cleans up all dependencies
func (d *Dependencies) Close() {
	for _, w := range d.Watchers {
		d.Monitor.ClearIdle(w)
	}
	d.Watchers = nil

	if d.Source != nil {
		d.Source.Close()
	}

	if d.NotificationManager != nil {
		_ = d.NotificationManager.Close()
	}
}

// Application represents the main application
type Application struct {
	deps *Dependencies
}

// NewApplication creates a new application with the given dependencies
func NewApplication(deps *Dependencies) *Application {
	return &Application{
		deps: deps,
	}
}

// Run starts the wrapped command and the idle monitor, and returns when the
// command exits. Cancelling ctx stops the command.
func (a *Application) Run(ctx context.Context, command string, args []string) error {
	if err := a.deps.ProcessManager.Start(command, args); err != nil {
		return err
	}
	a.deps.Logger.Debug("started wrapped command", "command", command, "args", args)

	g, gctx := errgroup.WithContext(ctx)
	monitorCtx, stopMonitor := context.WithCancel(gctx)
	exited := make(chan struct{})

	g.Go(func() error {
		defer close(exited)
		defer stopMonitor()
		return a.deps.ProcessManager.Wait()
	})

	g.Go(func() error {
		err := a.deps.Monitor.Run(monitorCtx)
		if errors.Is(err, context.Canceled) || errors.Is(err, idle.ErrSourceClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		select {
		case <-ctx.Done():
			if err := a.Stop(); err != nil {
				a.deps.Logger.Warn("failed to stop wrapped command", "error", err)
			}
		case <-exited:
		}
		return nil
	})

	return g.Wait()
}

// Stop gracefully stops the application
func (a *Application) Stop() error {
	return a.deps.ProcessManager.Stop()
}

// ExitCode returns the exit code of the wrapped process
func (a *Application) ExitCode() int {
	return a.deps.ProcessManager.ExitCode()
}
