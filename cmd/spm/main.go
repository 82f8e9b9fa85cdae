//go:build linux

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ja7ad/spm/pkg/config"
)

type opts struct {
	configPath string

	threshold  int
	window     int
	maxAgeDays int
	dir        string

	tick  time.Duration
	poll  time.Duration
	sweep time.Duration

	procRoot   string
	cgroupRoot string

	logFile  string
	logLevel string
}

func main() {
	var o opts

	root := &cobra.Command{
		Use:   "spm",
		Short: "Live process monitor for a single container session",
		Long: `spm shows every process in the current container with CPU, memory
(USS/PSS/RSS), memory growth and disk I/O rates, next to the container's
cgroup memory usage and limit.

Watched processes (w) are tracked; when one exits, the last few minutes of
samples are saved as a recording that can be browsed (R) and replayed frame
by frame.

Settings come from defaults, then --config, then the environment, then flags.

Examples:
  spm
  spm --threshold 90 --window 600
  spm recordings list
  spm recordings show recording_1700000000_4242`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.resolve(cmd.Flags())
			if err != nil {
				return err
			}
			log, closeLog, err := fileLogger(cfg)
			if err != nil {
				return err
			}
			defer closeLog()
			return runDashboard(cmd.Context(), cfg, log)
		},
	}

	o.bind(root.PersistentFlags())

	root.AddCommand(newRecordingsCmd(&o), newInfoCmd(&o))

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func (o *opts) bind(pf *pflag.FlagSet) {
	pf.StringVarP(&o.configPath, "config", "c", "", "YAML config file")
	pf.IntVar(&o.threshold, "threshold", 0, "container memory danger threshold in percent (1..100)")
	pf.IntVarP(&o.window, "window", "w", 0, "number of batches kept for a recording")
	pf.IntVar(&o.maxAgeDays, "max-age-days", 0, "delete recordings older than this many days at startup")
	pf.StringVar(&o.dir, "recordings-dir", "", "directory recordings are stored in")
	pf.DurationVar(&o.tick, "tick", 0, "sampling interval (e.g. 1s)")
	pf.DurationVar(&o.poll, "poll", 0, "replay polling interval (e.g. 100ms)")
	pf.DurationVar(&o.sweep, "sweep-interval", 0, "how often the retention sweep repeats while the dashboard runs")
	pf.StringVar(&o.procRoot, "proc-root", "", "procfs mount point")
	pf.StringVar(&o.cgroupRoot, "cgroup-root", "", "cgroup filesystem mount point")
	pf.StringVar(&o.logFile, "log-file", "", "dashboard log file")
	pf.StringVar(&o.logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// resolve layers defaults, the config file, the environment and explicitly
// set flags, in that order.
func (o *opts) resolve(fs *pflag.FlagSet) (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = cfg.LoadFile(o.configPath); err != nil {
			return cfg, err
		}
	}
	cfg = cfg.ApplyEnv(os.LookupEnv)

	if fs.Changed("threshold") {
		cfg.ThresholdPercent = o.threshold
	}
	if fs.Changed("window") {
		cfg.RecordingWindow = o.window
	}
	if fs.Changed("max-age-days") {
		cfg.MaxAgeDays = o.maxAgeDays
	}
	if fs.Changed("recordings-dir") {
		cfg.RecordingsDir = o.dir
	}
	if fs.Changed("tick") {
		cfg.TickInterval = o.tick
	}
	if fs.Changed("poll") {
		cfg.PollInterval = o.poll
	}
	if fs.Changed("sweep-interval") {
		cfg.SweepInterval = o.sweep
	}
	if fs.Changed("proc-root") {
		cfg.ProcRoot = o.procRoot
	}
	if fs.Changed("cgroup-root") {
		cfg.CgroupRoot = o.cgroupRoot
	}
	if fs.Changed("log-file") {
		cfg.LogFile = o.logFile
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	return cfg, cfg.Validate()
}

// fileLogger writes to cfg.LogFile; the dashboard owns the terminal so
// nothing may go to stderr while it runs. Every record carries a run id so
// sessions sharing one file can be told apart.
func fileLogger(cfg config.Config) (*slog.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return nil, nil, fmt.Errorf("log dir: %w", err)
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log: %w", err)
	}
	log := newLogger(f, cfg).With("run", strings.ToLower(ulid.Make().String()))
	return log, func() { _ = f.Close() }, nil
}

func newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.Level()}))
}
