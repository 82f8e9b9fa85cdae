// Package config resolves spm settings from defaults, an optional YAML file
// and the environment. Command-line flags are applied last by cmd/spm.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables read by ApplyEnv.
const (
	EnvThreshold  = "HYPERPLANE_SESSION_PROCESS_TERMINATOR_THRESHOLD_PERCENT"
	EnvWindow     = "SPM_RECORDING_WINDOW"
	EnvMaxAgeDays = "SPM_RECORDING_MAX_AGE_DAYS"
	EnvDir        = "SPM_RECORDINGS_DIR"
	EnvLogLevel   = "SPM_LOG_LEVEL"
)

const baseDirName = ".session-process-monitor"

type Config struct {
	// ThresholdPercent marks container memory usage as dangerous (1..100).
	ThresholdPercent int `yaml:"threshold_percent"`
	// RecordingWindow is the ring buffer capacity in batches.
	RecordingWindow int `yaml:"recording_window"`
	// MaxAgeDays bounds how long recordings survive the startup sweep.
	MaxAgeDays    int    `yaml:"max_age_days"`
	RecordingsDir string `yaml:"recordings_dir"`
	// SweepInterval repeats the retention sweep while the dashboard runs.
	SweepInterval time.Duration `yaml:"sweep_interval"`

	TickInterval time.Duration `yaml:"tick_interval"`
	PollInterval time.Duration `yaml:"poll_interval"`

	ProcRoot   string `yaml:"proc_root"`
	CgroupRoot string `yaml:"cgroup_root"`

	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in settings.
func Default() Config {
	base := BaseDir()
	return Config{
		ThresholdPercent: 80,
		RecordingWindow:  300,
		MaxAgeDays:       7,
		RecordingsDir:    filepath.Join(base, "recordings"),
		SweepInterval:    time.Hour,
		TickInterval:     time.Second,
		PollInterval:     100 * time.Millisecond,
		ProcRoot:         "/proc",
		CgroupRoot:       "/sys/fs/cgroup",
		LogFile:          filepath.Join(base, "spm.log"),
		LogLevel:         "info",
	}
}

// BaseDir is $HOME/.session-process-monitor, or a relative one without a home.
func BaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, baseDirName)
}

// LoadFile overlays the YAML file at path onto c. Keys absent from the file
// keep their current value; unknown keys are an error.
func (c Config) LoadFile(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read config: %w", err)
	}
	return c.Load(bytes.NewReader(b))
}

// Load is LoadFile over an arbitrary reader.
func (c Config) Load(r io.Reader) (Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	out := c
	if err := dec.Decode(&out); err != nil && !errors.Is(err, io.EOF) {
		return c, fmt.Errorf("parse config: %w", err)
	}
	if err := out.Validate(); err != nil {
		return c, err
	}
	return out, nil
}

// ApplyEnv overlays environment values read through lookup (os.LookupEnv in
// production). Unparsable or out-of-range values keep the prior setting.
func (c Config) ApplyEnv(lookup func(string) (string, bool)) Config {
	if v, ok := envInt(lookup, EnvThreshold); ok && v <= 100 {
		c.ThresholdPercent = v
	}
	if v, ok := envInt(lookup, EnvWindow); ok {
		c.RecordingWindow = v
	}
	if v, ok := envInt(lookup, EnvMaxAgeDays); ok {
		c.MaxAgeDays = v
	}
	if v, ok := lookup(EnvDir); ok && strings.TrimSpace(v) != "" {
		c.RecordingsDir = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvLogLevel); ok {
		if _, err := parseLevel(v); err == nil {
			c.LogLevel = strings.TrimSpace(v)
		}
	}
	return c
}

// Validate rejects settings the dashboard cannot run with.
func (c Config) Validate() error {
	switch {
	case c.ThresholdPercent < 1 || c.ThresholdPercent > 100:
		return fmt.Errorf("threshold_percent must be in [1,100], got %d", c.ThresholdPercent)
	case c.RecordingWindow < 1:
		return fmt.Errorf("recording_window must be > 0, got %d", c.RecordingWindow)
	case c.MaxAgeDays < 1:
		return fmt.Errorf("max_age_days must be > 0, got %d", c.MaxAgeDays)
	case c.TickInterval <= 0:
		return fmt.Errorf("tick_interval must be > 0")
	case c.PollInterval <= 0:
		return fmt.Errorf("poll_interval must be > 0")
	case c.SweepInterval <= 0:
		return fmt.Errorf("sweep_interval must be > 0")
	case c.RecordingsDir == "":
		return fmt.Errorf("recordings_dir must not be empty")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// MaxAge returns MaxAgeDays as a duration.
func (c Config) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeDays) * 24 * time.Hour
}

// Level returns the slog level for LogLevel, defaulting to info.
func (c Config) Level() slog.Level {
	l, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// envInt returns a strictly positive integer from the environment.
func envInt(lookup func(string) (string, bool), key string) (int, bool) {
	s, ok := lookup(key)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
