//go:build linux

package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/ja7ad/spm/pkg/config"
	"github.com/ja7ad/spm/pkg/system/cgroup"
	"github.com/ja7ad/spm/pkg/system/proc"
	"github.com/ja7ad/spm/pkg/system/util"
	"github.com/ja7ad/spm/pkg/types"
)

func newInfoCmd(o *opts) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print host, cgroup and resolved configuration details",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.resolve(cmd.Flags())
			if err != nil {
				return err
			}
			return printInfo(cmd.OutOrStdout(), cfg)
		},
	}
}

func printInfo(w io.Writer, cfg config.Config) error {
	host, kernel, cpus, mem := util.SystemSummary()

	var cg string
	if ms, err := cgroup.Detect(); err == nil {
		cg = fmt.Sprintf("%s (%s)", ms.Version(), ms.Detail())
	} else {
		cg = fmt.Sprintf("unknown (%v)", err)
	}

	q := quotaReader(cfg, slog.New(slog.DiscardHandler))
	stat := q.ReadMemory()
	limit := "unlimited"
	if stat.Limit != nil {
		limit = types.Bytes(*stat.Limit).Humanized()
	}
	cores := "unlimited"
	if v, ok := q.ReadCPUQuota(); ok {
		cores = fmt.Sprintf("%.2f", v)
	}

	tps := "unknown"
	if v, err := proc.NewProcfs(cfg.ProcRoot).TicksPerSecond(util.LogicalCores()); err == nil {
		tps = fmt.Sprintf("%.1f", v)
	}

	_, err := fmt.Fprintf(w, _console,
		host, kernel, cpus, mem, tps,
		cg, types.Bytes(stat.Usage).Humanized(), limit, cores,
		cfg.ThresholdPercent, cfg.RecordingWindow, cfg.MaxAgeDays, cfg.RecordingsDir, cfg.LogFile,
		time.Now().Format("2006-01-02 15:04:05"))
	return err
}

const _console = `spm - Session Process Monitor

       Host: %s
       Kernel: %s
       CPUs: %s
       Mem: %s
       Clock: %s ticks/s per core

       Cgroup: %s
       Memory: %s / %s
       CPU quota: %s cores

       Threshold: %d%%
       Window: %d batches
       Max age: %d days
       Recordings: %s
       Log: %s

as of %s
`
