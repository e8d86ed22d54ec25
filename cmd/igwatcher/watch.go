package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"igwatcher/pkg/config"
	"igwatcher/pkg/logger"
	"igwatcher/pkg/watcher"
)

var (
	// Watch command flags
	watchUsernames []string
	watchInterval  time.Duration
	watchWorkers   int
	watchEngine    string
	watchLogFile   string
	watchPicsDir   string
	watchDaemon    bool
	watchRateLimit int
	watchRetries   int
)

// watchCmd represents the watch command.
var watchCmd = &cobra.Command{
	Use:   "watch [username...]",
	Short: "Check watched profiles and log changes",
	Long: `Check each watched profile once: fetch its current picture URL and
follower counts, append a row to the CSV log, and download the profile
picture if it changed since the last run.

Usernames come from arguments, the --usernames flag, the IG_USERNAME or
IGWATCHER_USERNAMES environment variables, or the config file.

With --daemon the process stays up and repeats the check on every
interval; without it one pass is done and the process exits, which is the
mode schedulers use. The exit code is non-zero if any profile could not
be logged.`,
	Example: `  # One pass over a single profile (scheduler mode)
  igwatcher watch zlamp_a

  # Several profiles with more workers
  igwatcher watch usera userb userc --workers 3

  # Keep running, checking every hour
  igwatcher watch zlamp_a --daemon --interval 1h

  # Force the headless Chrome engine
  igwatcher watch zlamp_a --engine browser`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringSliceVar(&watchUsernames, "usernames", nil, "usernames to watch (comma separated)")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "time between checks in daemon mode")
	watchCmd.Flags().IntVar(&watchWorkers, "workers", 0, "number of concurrent profile checks")
	watchCmd.Flags().StringVar(&watchEngine, "engine", "", "fetch engine (auto, api, browser)")
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "CSV log file path")
	watchCmd.Flags().StringVar(&watchPicsDir, "pics-dir", "", "directory for downloaded pictures")
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "keep running and check on every interval")
	watchCmd.Flags().IntVar(&watchRateLimit, "rate-limit", 0, "requests per minute")
	watchCmd.Flags().IntVar(&watchRetries, "max-retries", -1, "maximum retry attempts per fetch")
}

func runWatch(cmd *cobra.Command, args []string) error {
	flags := make(map[string]interface{})
	usernames := append([]string{}, args...)
	usernames = append(usernames, watchUsernames...)
	if len(usernames) > 0 {
		flags["usernames"] = usernames
	}
	if watchInterval > 0 {
		flags["interval"] = watchInterval
	}
	if watchWorkers > 0 {
		flags["workers"] = watchWorkers
	}
	if watchEngine != "" {
		flags["engine"] = watchEngine
	}
	if watchLogFile != "" {
		flags["log-file"] = watchLogFile
	}
	if watchPicsDir != "" {
		flags["pics-dir"] = watchPicsDir
	}
	if watchRateLimit > 0 {
		flags["rate-limit"] = watchRateLimit
	}
	if watchRetries >= 0 {
		flags["max-retries"] = watchRetries
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	log.InfoWithFields("igwatcher starting", map[string]interface{}{
		"version":  version,
		"profiles": len(cfg.Watch.Usernames),
	})

	w, err := watcher.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize watcher: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if watchDaemon {
		if err := w.Run(ctx, cfg.Watch.Interval); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	summary, err := w.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("%d of %d profiles failed: %w", summary.Failed, summary.Checked, err)
	}

	fmt.Printf("Checked %d profiles, %d picture update(s)\n", summary.Checked, summary.Updated)
	return nil
}
