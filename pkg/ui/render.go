// Package ui draws the dashboard as plain ANSI frames and decodes raw
// terminal input into session keys.
package ui

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/ja7ad/spm/pkg/recording"
	"github.com/ja7ad/spm/pkg/replay"
	"github.com/ja7ad/spm/pkg/session"
	"github.com/ja7ad/spm/pkg/telemetry"
	"github.com/ja7ad/spm/pkg/types"
)

const (
	clearScreen = "\033[H\033[2J"
	red         = "\033[31m"
	yellow      = "\033[33m"
	bold        = "\033[1m"
	reset       = "\033[0m"

	// lines reserved for the header, table heading and footer
	chromeLines = 7
)

// Size is the drawable terminal area in cells.
type Size struct {
	Width  int
	Height int
}

// Render writes one complete frame for the controller's current mode.
// Lines end in "\r\n" because the terminal is in raw mode.
func Render(w io.Writer, c *session.Controller, sz Size) error {
	var buf bytes.Buffer
	switch m := c.Mode().(type) {
	case *session.Browsing:
		renderBrowsing(&buf, m, sz)
	case *session.Replaying:
		renderReplay(&buf, m.Engine, sz)
	default:
		renderLive(&buf, c, sz)
	}
	renderFooter(&buf, c)

	var out strings.Builder
	out.WriteString(clearScreen)
	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		out.WriteString(clip(line, sz.Width))
		out.WriteString("\r\n")
	}
	_, err := io.WriteString(w, out.String())
	return err
}

func renderLive(buf *bytes.Buffer, c *session.Controller, sz Size) {
	n, capacity := c.Buffered()
	fmt.Fprintf(buf, "%sspm%s  live  |  watched %d  |  buffer %d/%d\n", bold, reset, c.WatchedCount(), n, capacity)
	renderPod(buf, c.Pod(), c.Cores())

	v := c.View()
	if v.FilterActive || v.Filter != "" {
		cursor := ""
		if v.FilterActive {
			cursor = "_"
		}
		fmt.Fprintf(buf, "filter: %s%s\n", v.Filter, cursor)
	} else {
		buf.WriteString("\n")
	}

	procs := c.Processes()
	rows := visibleRows(sz)
	first := scrollStart(v.Selected, len(procs), rows)

	tw := tabwriter.NewWriter(buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, tableHeader(v.Sort, v.Ascending))
	for i := first; i < len(procs) && i < first+rows; i++ {
		p := procs[i]
		mark := " "
		if i == v.Selected {
			mark = ">"
		}
		if c.IsWatched(p.PID) {
			mark += "*"
		} else {
			mark += " "
		}
		writeRow(tw, mark, p)
	}
	_ = tw.Flush()
	if len(procs) == 0 {
		buf.WriteString("  no processes\n")
	}
}

func renderPod(buf *bytes.Buffer, pod telemetry.PodMemory, cores *float64) {
	quota := "cpu unlimited"
	if cores != nil {
		quota = fmt.Sprintf("cpu %.2f cores", *cores)
	}

	pct, limited := pod.UsedPercent()
	if !limited {
		fmt.Fprintf(buf, "pod memory %s (no limit)  |  rss sum %s  |  %s\n",
			types.Bytes(pod.CgroupUsage).Humanized(), types.Bytes(pod.RSSSum).Humanized(), quota)
		return
	}

	line := fmt.Sprintf("pod memory %s / %s (%.1f%%, kill at %d%%)  |  rss sum %s  |  %s",
		types.Bytes(pod.CgroupUsage).Humanized(), types.Bytes(*pod.CgroupLimit).Humanized(),
		pct, pod.ThresholdPercent, types.Bytes(pod.RSSSum).Humanized(), quota)
	if pod.Danger() {
		line = red + line + reset
	}
	buf.WriteString(line + "\n")
}

func tableHeader(col telemetry.SortColumn, asc bool) string {
	cols := []struct {
		title string
		col   telemetry.SortColumn
	}{
		{"PID", telemetry.SortPID},
		{"NAME", telemetry.SortName},
		{"CPU%", telemetry.SortCPU},
		{"USS", telemetry.SortUSS},
		{"PSS", telemetry.SortPSS},
		{"RSS", telemetry.SortRSS},
		{"GROWTH MB/m", telemetry.SortGrowth},
		{"READ MB/s", telemetry.SortDiskRead},
		{"WRITE MB/s", telemetry.SortDiskWrite},
		{"CMDLINE", telemetry.SortCmdline},
	}
	arrow := "v"
	if asc {
		arrow = "^"
	}
	parts := []string{"  "}
	for _, c := range cols {
		t := c.title
		if c.col == col {
			t += arrow
		}
		parts = append(parts, t)
	}
	return strings.Join(parts, "\t")
}

func writeRow(tw *tabwriter.Writer, mark string, p telemetry.ProcessSnapshot) {
	name := p.Name
	if p.IsSystem {
		name += " [sys]"
	}
	fmt.Fprintf(tw, "%s\t%d\t%s\t%.1f\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		mark, p.PID, name, p.CPUPercent,
		types.Bytes(p.USS).Humanized(), types.Bytes(p.PSS).Humanized(), types.Bytes(p.RSS).Humanized(),
		types.RateMB(p.GrowthRate, ""), types.RateMB(p.DiskReadRate, ""), types.RateMB(p.DiskWriteRate, ""),
		p.Cmdline)
}

func renderBrowsing(buf *bytes.Buffer, b *session.Browsing, sz Size) {
	fmt.Fprintf(buf, "%sspm%s  recordings  |  %d stored\n\n", bold, reset, len(b.Recordings))
	if len(b.Recordings) == 0 {
		buf.WriteString("  no recordings\n")
		return
	}
	rows := visibleRows(sz)
	first := scrollStart(b.Selected, len(b.Recordings), rows)

	tw := tabwriter.NewWriter(buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, " \tID\tTRIGGER\tSTART\tEND\tSNAPSHOTS")
	for i := first; i < len(b.Recordings) && i < first+rows; i++ {
		md := b.Recordings[i]
		mark := " "
		if i == b.Selected {
			mark = ">"
		}
		writeRecordingRow(tw, mark, md)
	}
	_ = tw.Flush()
}

func writeRecordingRow(tw *tabwriter.Writer, mark string, md recording.Metadata) {
	fmt.Fprintf(tw, "%s\t%s\t%s (%d)\t%s\t%s\t%d\n",
		mark, md.ID, md.TriggerName, md.TriggerPID,
		stamp(md.StartTime), stamp(md.EndTime), md.SnapshotCount)
}

func renderReplay(buf *bytes.Buffer, e *replay.Engine, sz Size) {
	md := e.Recording().Metadata
	state := "paused"
	if e.Playing() {
		state = "playing"
	}
	fmt.Fprintf(buf, "%sspm%s  replay %s  |  %s (%d)  |  frame %d/%d  |  %s %s\n",
		bold, reset, md.ID, md.TriggerName, md.TriggerPID, e.Index()+1, e.Len(), state, e.Speed())

	b, ok := e.Current()
	if !ok {
		buf.WriteString("\n  empty recording\n")
		return
	}
	renderPod(buf, b.PodMemory, b.CPUCores)
	fmt.Fprintf(buf, "at %s\n", stamp(b.Timestamp))

	rows := visibleRows(sz)
	tw := tabwriter.NewWriter(buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, tableHeader(-1, false))
	for i, p := range b.Processes {
		if i >= rows {
			break
		}
		mark := "  "
		if p.PID == md.TriggerPID {
			mark = " !"
		}
		writeRow(tw, mark, p)
	}
	_ = tw.Flush()
}

func renderFooter(buf *bytes.Buffer, c *session.Controller) {
	buf.WriteString("\n")
	if kc := c.Confirm(); kc != nil {
		warn := ""
		if kc.IsSystem {
			warn = " (system process!)"
		}
		fmt.Fprintf(buf, "%sKill %s (PID %d)%s? [y/n]%s\n", yellow, kc.Name, kc.PID, warn, reset)
		return
	}
	if s, ok := c.Status(); ok {
		buf.WriteString(s + "\n")
	}

	switch c.Mode().(type) {
	case *session.Browsing:
		buf.WriteString("up/down select  enter replay  d delete  esc back\n")
	case *session.Replaying:
		buf.WriteString("left/right step  pgup/pgdn page  home/end  space play/pause  +/- speed  esc/q back\n")
	default:
		buf.WriteString("s sort  r reverse  / filter  w watch  k kill  R recordings  q quit\n")
	}
}

func visibleRows(sz Size) int {
	return max(sz.Height-chromeLines, 1)
}

// scrollStart keeps the selected row inside a window of rows lines.
func scrollStart(selected, total, rows int) int {
	if total <= rows || selected < rows {
		return 0
	}
	return min(selected-rows+1, total-rows)
}

func stamp(epoch int64) string {
	return time.Unix(epoch, 0).Format("2006-01-02 15:04:05")
}

// clip truncates line to width visible runes, leaving ANSI sequences intact.
func clip(line string, width int) string {
	if width <= 0 || utf8.RuneCountInString(line) <= width {
		return line
	}
	var (
		out     strings.Builder
		visible int
		inEsc   bool
	)
	for _, r := range line {
		switch {
		case inEsc:
			out.WriteRune(r)
			if r >= '@' && r <= '~' && r != '[' {
				inEsc = false
			}
			continue
		case r == '\033':
			inEsc = true
			out.WriteRune(r)
			continue
		}
		if visible == width {
			continue
		}
		out.WriteRune(r)
		visible++
	}
	return out.String()
}
