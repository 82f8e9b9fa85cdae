//go:build linux

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ja7ad/spm/pkg/config"
	"github.com/ja7ad/spm/pkg/recording"
	"github.com/ja7ad/spm/pkg/session"
	"github.com/ja7ad/spm/pkg/system/proc"
	"github.com/ja7ad/spm/pkg/telemetry"
	"github.com/ja7ad/spm/pkg/ui"
)

func runDashboard(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	fs := proc.NewProcfs(cfg.ProcRoot)
	tps := calibrate(fs, log)

	rec := openRecordings(cfg, log)
	janitor, err := recording.NewJanitor(rec, cfg.MaxAge(), cfg.SweepInterval, log)
	if err != nil {
		return err
	}
	janitor.Start()
	defer janitor.Stop()

	ctl := session.New(session.Deps{
		Sampler:          telemetry.NewSampler(tps),
		Source:           fs,
		Quota:            quotaReader(cfg, log),
		Recorder:         rec,
		Terminator:       proc.NewTerminator(),
		Logger:           log,
		ThresholdPercent: uint8(cfg.ThresholdPercent),
	})

	tty, err := ui.Open(os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		if err := tty.Close(); err != nil {
			log.Warn("restore terminal", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stored := make(chan struct{}, 1)
	go func() {
		if err := rec.Watch(ctx, stored); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("recordings watch stopped", "dir", rec.Dir(), "err", err)
		}
	}()

	log.Info("dashboard started",
		"ticks_per_second", tps,
		"window", cfg.RecordingWindow,
		"threshold", cfg.ThresholdPercent,
		"recordings", rec.Dir())

	tick := time.NewTicker(cfg.TickInterval)
	defer tick.Stop()
	poll := time.NewTicker(cfg.PollInterval)
	defer poll.Stop()

	keys := tty.Keys()
	ctl.Tick()
	dirty := true
	for ctl.Running() {
		if dirty {
			if err := tty.Draw(ctl); err != nil {
				return fmt.Errorf("draw: %w", err)
			}
			dirty = false
		}

		select {
		case <-ctx.Done():
			log.Info("interrupted")
			return nil
		case <-tick.C:
			ctl.Tick()
			dirty = true
		case <-poll.C:
			dirty = ctl.Advance()
		case <-stored:
			dirty = ctl.RefreshRecordings()
		case k, ok := <-keys:
			if !ok {
				log.Info("input closed")
				return nil
			}
			ctl.HandleKey(k)
			dirty = true
		}
	}
	log.Info("dashboard stopped")
	return nil
}
