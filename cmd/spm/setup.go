//go:build linux

package main

import (
	"log/slog"
	"path/filepath"

	"github.com/ja7ad/spm/pkg/config"
	"github.com/ja7ad/spm/pkg/recording"
	"github.com/ja7ad/spm/pkg/system/cgroup"
	"github.com/ja7ad/spm/pkg/system/proc"
	"github.com/ja7ad/spm/pkg/system/util"
)

// calibrate estimates the clock rate. A rate of 0 makes every CPU% read 0,
// which is preferable to refusing to start.
func calibrate(fs *proc.Procfs, log *slog.Logger) float64 {
	tps, err := fs.TicksPerSecond(util.LogicalCores())
	if err != nil {
		log.Warn("clock rate unavailable, cpu usage will read 0", "root", fs.Root(), "err", err)
		return 0
	}
	return tps
}

// openRecordings prepares the recordings store. A directory that cannot be
// created is logged; each later save then fails with a status message.
func openRecordings(cfg config.Config, log *slog.Logger) *recording.Manager {
	rec := recording.New(cfg.RecordingsDir, cfg.RecordingWindow)
	if err := rec.EnsureDir(); err != nil {
		log.Warn("recordings dir unavailable", "dir", rec.Dir(), "err", err)
		return rec
	}
	if n := rec.Sweep(cfg.MaxAge()); n > 0 {
		log.Info("removed old recordings", "count", n, "max_age", cfg.MaxAge())
	}
	return rec
}

// quotaReader resolves v1 controller hierarchies from mountinfo when the
// cgroup root is the host default. A custom root is taken as is.
func quotaReader(cfg config.Config, log *slog.Logger) *cgroup.Reader {
	r := cgroup.NewReader(cfg.CgroupRoot)
	if cfg.CgroupRoot != "" && filepath.Clean(cfg.CgroupRoot) != cgroup.DefaultRoot {
		return r
	}
	ms, err := cgroup.Detect()
	if err != nil {
		log.Debug("mountinfo unavailable, using default cgroup layout", "err", err)
		return r
	}
	return r.WithMounts(ms)
}
