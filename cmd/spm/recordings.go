//go:build linux

package main

import (
	"cmp"
	"fmt"
	"io"
	"os"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ja7ad/spm/pkg/config"
	"github.com/ja7ad/spm/pkg/recording"
	"github.com/ja7ad/spm/pkg/telemetry"
	"github.com/ja7ad/spm/pkg/types"
)

func newRecordingsCmd(o *opts) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "recordings",
		Aliases: []string{"rec"},
		Short:   "Inspect and manage saved recordings",
	}

	manager := func(cmd *cobra.Command) (*recording.Manager, config.Config, error) {
		cfg, err := o.resolve(cmd.Flags())
		if err != nil {
			return nil, cfg, err
		}
		return recording.New(cfg.RecordingsDir, cfg.RecordingWindow), cfg, nil
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List recordings, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				m, _, err := manager(cmd)
				if err != nil {
					return err
				}
				return printList(cmd.OutOrStdout(), m.List())
			},
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Print a recording's metadata and per-snapshot summary",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				m, _, err := manager(cmd)
				if err != nil {
					return err
				}
				rec, err := m.Load(args[0])
				if err != nil {
					return err
				}
				return printRecording(cmd.OutOrStdout(), rec)
			},
		},
		&cobra.Command{
			Use:   "delete <id>...",
			Short: "Delete recordings",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				m, cfg, err := manager(cmd)
				if err != nil {
					return err
				}
				log := newLogger(os.Stderr, cfg)
				for _, id := range args {
					if err := m.Delete(id); err != nil {
						return err
					}
					log.Info("recording deleted", "id", id)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "sweep",
			Short: "Delete recordings older than --max-age-days",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				m, cfg, err := manager(cmd)
				if err != nil {
					return err
				}
				n := m.Sweep(cfg.MaxAge())
				newLogger(os.Stderr, cfg).Info("sweep finished", "removed", n, "max_age", cfg.MaxAge(), "dir", m.Dir())
				return nil
			},
		},
	)
	return cmd
}

func printList(w io.Writer, list []recording.Metadata) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "no recordings")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tTRIGGER\tPID\tSTART\tEND\tSNAPSHOTS")
	for _, md := range list {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%d\n",
			md.ID, md.TriggerName, md.TriggerPID, stamp(md.StartTime), stamp(md.EndTime), md.SnapshotCount)
	}
	return tw.Flush()
}

func printRecording(w io.Writer, rec *recording.Recording) error {
	md := rec.Metadata
	_, _ = fmt.Fprintf(w, "ID:        %s\nTrigger:   %s (PID %d)\nStart:     %s\nEnd:       %s\nSnapshots: %d\nFile:      %s\n\n",
		md.ID, md.TriggerName, md.TriggerPID, stamp(md.StartTime), stamp(md.EndTime), md.SnapshotCount, md.FilePath)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "#\tTIME\tPROCS\tPOD MEM\tRSS SUM\tTOP (USS)\tTRIGGER USS")
	for i, b := range rec.Snapshots {
		top := "-"
		if p, ok := topByUSS(b.Processes); ok {
			top = fmt.Sprintf("%s/%d %s", p.Name, p.PID, types.Bytes(p.USS).Humanized())
		}
		trig := "-"
		if idx := slices.IndexFunc(b.Processes, func(p telemetry.ProcessSnapshot) bool { return p.PID == md.TriggerPID }); idx >= 0 {
			trig = types.Bytes(b.Processes[idx].USS).Humanized()
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\t%s\n",
			i+1, stamp(b.Timestamp), len(b.Processes), podMem(b.PodMemory),
			types.Bytes(b.PodMemory.RSSSum).Humanized(), top, trig)
	}
	return tw.Flush()
}

func topByUSS(procs []telemetry.ProcessSnapshot) (telemetry.ProcessSnapshot, bool) {
	if len(procs) == 0 {
		return telemetry.ProcessSnapshot{}, false
	}
	return slices.MaxFunc(procs, func(a, b telemetry.ProcessSnapshot) int {
		return cmp.Compare(a.USS, b.USS)
	}), true
}

func podMem(p telemetry.PodMemory) string {
	pct, ok := p.UsedPercent()
	if !ok {
		return types.Bytes(p.CgroupUsage).Humanized()
	}
	return fmt.Sprintf("%s (%.1f%%)", types.Bytes(p.CgroupUsage).Humanized(), pct)
}

func stamp(epoch int64) string {
	return time.Unix(epoch, 0).Format("2006-01-02 15:04:05")
}
