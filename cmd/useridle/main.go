package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"time"

	"github.com/mattn/go-isatty"
	flag "github.com/spf13/pflag"

	"github.com/Veraticus/useridle/pkg/config"
	"github.com/Veraticus/useridle/pkg/log"
)

// options are the parsed command line.
type options struct {
	configPath   string
	quiet        bool
	verbose      bool
	help         bool
	logFile      string
	pollInterval time.Duration
	command      string
	args         []string
}

// parseArgs separates our flags from the wrapped command. Flag parsing stops
// at "--" or at the first non-flag argument, so flags after the command
// belong to it.
func parseArgs(argv []string, shell string) (*options, *flag.FlagSet, error) {
	opts := &options{}

	fs := flag.NewFlagSet("useridle", flag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(io.Discard)
	fs.StringVarP(&opts.configPath, "config", "c", "", "Path to config file")
	fs.BoolVarP(&opts.quiet, "quiet", "q", false, "Disable all notifications")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	fs.BoolVarP(&opts.help, "help", "h", false, "Show help message")
	fs.StringVar(&opts.logFile, "log-file", "", "Also write debug logs to this file")
	fs.DurationVar(&opts.pollInterval, "poll-interval", 0, "How often idle time is recomputed (default 500ms)")

	if err := fs.Parse(argv); err != nil {
		return nil, fs, err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		if shell == "" {
			shell = "/bin/sh"
		}
		opts.command = shell
	} else {
		opts.command = rest[0]
		opts.args = rest[1:]
	}

	return opts, fs, nil
}

// overrides returns the config changes requested on the command line.
func (o *options) overrides(fs *flag.FlagSet) func(*config.Config) {
	return func(cfg *config.Config) {
		if o.quiet {
			cfg.Quiet = true
		}
		if o.verbose {
			cfg.Debug = true
		}
		if fs.Changed("poll-interval") {
			cfg.PollInterval = o.pollInterval
		}
	}
}

func main() {
	opts, fs, err := parseArgs(os.Args[1:], os.Getenv("SHELL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		printUsage(os.Stderr, fs)
		os.Exit(2)
	}

	if opts.help {
		printUsage(os.Stdout, fs)
		os.Exit(0)
	}

	cfg, err := config.Load(opts.configPath, opts.overrides(fs))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.Init(log.Options{
		Verbose:     cfg.Debug,
		Interactive: isatty.IsTerminal(os.Stdin.Fd()),
		File:        opts.logFile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	deps, err := NewDependencies(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating dependencies: %v\n", err)
		os.Exit(1)
	}
	defer deps.Close()

	app := NewApplication(deps)

	// Ensure terminal restoration on panic
	defer func() {
		if r := recover(); r != nil {
			_ = app.Stop() // Best effort terminal restoration
			panic(r)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Debug("starting",
		"command", opts.command,
		"args", opts.args,
		"quiet", cfg.Quiet,
		"topic", cfg.NtfyTopic,
		"watchers", len(cfg.Watchers))

	if err := app.Run(ctx, opts.command, opts.args); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "Error running %s: %v\n", opts.command, err)
		}
	}

	code := app.ExitCode()
	if ctx.Err() != nil && code == 0 {
		code = 130
	}

	// Deferred cleanup does not run after os.Exit.
	deps.Close()
	log.Close()
	os.Exit(code)
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "useridle - notify when you stop typing into a terminal program")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: useridle [OPTIONS] [--] [COMMAND [ARGS...]]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "COMMAND defaults to $SHELL. Options must come before the command.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprint(w, fs.FlagUsages())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment Variables:")
	fmt.Fprintln(w, "  USERIDLE_CONFIG          Path to config file")
	fmt.Fprintln(w, "  USERIDLE_TOPIC           Ntfy topic for notifications")
	fmt.Fprintln(w, "  USERIDLE_SERVER          Ntfy server URL (default: https://ntfy.sh)")
	fmt.Fprintln(w, "  USERIDLE_POLL_INTERVAL   Idle poll interval (default: 500ms)")
	fmt.Fprintln(w, "  USERIDLE_QUIET           Disable notifications (true/false)")
	fmt.Fprintln(w, "  USERIDLE_DEBUG           Enable debug logging (true/false)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Configuration file: ~/.config/useridle/config.yaml")
	fmt.Fprintln(w, "Debug logs are hidden while attached to a terminal; use --log-file to keep them.")
}
