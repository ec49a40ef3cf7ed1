package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/testsched/internal/engine"
	"github.com/roach88/testsched/internal/store"
)

var (
	colorSuccess = lipgloss.Color("#2CD7C7")
	colorWarning = lipgloss.Color("#F4D03F")
	colorError   = lipgloss.Color("#E74C3C")
	colorMuted   = lipgloss.Color("#2C4A54")
)

// styles are the text-mode styles. lipgloss drops colors automatically
// when stdout is not a terminal.
var styles = struct {
	Title       lipgloss.Style
	Header      lipgloss.Style
	Muted       lipgloss.Style
	Error       lipgloss.Style
	Warning     lipgloss.Style
	StatusOK    lipgloss.Style
	StatusError lipgloss.Style
}{
	Title:       lipgloss.NewStyle().Bold(true).Foreground(colorSuccess),
	Header:      lipgloss.NewStyle().Bold(true),
	Muted:       lipgloss.NewStyle().Foreground(colorMuted),
	Error:       lipgloss.NewStyle().Foreground(colorError),
	Warning:     lipgloss.NewStyle().Foreground(colorWarning),
	StatusOK:    lipgloss.NewStyle().SetString("✓").Foreground(colorSuccess),
	StatusError: lipgloss.NewStyle().SetString("✗").Foreground(colorError),
}

// table renders rows as left-aligned columns. Widths are measured with
// lipgloss so CJK text lines up.
func table(w io.Writer, header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	line := func(cells []string, style *lipgloss.Style) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			padded := cell + strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
			if style != nil {
				padded = style.Render(padded)
			}
			parts[i] = padded
		}
		fmt.Fprintln(w, "  "+strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	line(header, &styles.Header)
	for _, row := range rows {
		line(row, nil)
	}
}

func status(ok bool) string {
	if ok {
		return styles.StatusOK.String()
	}
	return styles.StatusError.String()
}

func renderConflicts(w io.Writer, conflicts []engine.Conflict, warnings []string) {
	if len(conflicts) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, styles.Error.Render(fmt.Sprintf("Conflicts (%d)", len(conflicts))))
		rows := make([][]string, len(conflicts))
		for i, c := range conflicts {
			rows[i] = []string{strconv.Itoa(c.ItemID), c.Item, string(c.Reason), c.Detail}
		}
		table(w, []string{"ID", "ITEM", "REASON", "DETAIL"}, rows)
	}
	for _, warning := range warnings {
		fmt.Fprintf(w, "%s %s\n", styles.Warning.Render("warning:"), warning)
	}
}

// renderSchedule prints a time-mode result.
func renderSchedule(w io.Writer, r *engine.SchedulingResult) {
	fmt.Fprintf(w, "%s %s\n\n", status(r.Success), styles.Title.Render("Schedule"))

	rows := make([][]string, 0, len(r.Items))
	for _, it := range r.Items {
		start, end := "-", "-"
		if it.Status == engine.StatusScheduled {
			start, end = it.StartLabel, it.EndLabel
		}
		rows = append(rows, []string{
			strconv.Itoa(it.ID), it.Name, it.Phase, strconv.Itoa(it.Duration),
			start, end, string(it.Status),
		})
	}
	table(w, []string{"ID", "ITEM", "PHASE", "HOURS", "START", "END", "STATUS"}, rows)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Makespan: %dh (%d working hours over %d day(s))\n", r.MakespanHours, r.WorkingHours, r.CalendarDays)
	fmt.Fprintf(w, "Parallel efficiency: %.2f%% (max parallel %d)\n", r.ParallelEfficiency*100, r.MaxParallel)
	if len(r.Utilization) > 0 {
		fmt.Fprintln(w)
		rows := make([][]string, len(r.Utilization))
		for i, u := range r.Utilization {
			rows[i] = []string{
				u.Resource, strconv.Itoa(u.Capacity), strconv.Itoa(u.BusyHours),
				strconv.Itoa(u.AvailableHours), fmt.Sprintf("%.2f%%", u.Utilization*100),
			}
		}
		table(w, []string{"RESOURCE", "CAPACITY", "BUSY", "AVAILABLE", "UTILIZATION"}, rows)
	}
	renderConflicts(w, r.Conflicts, r.Warnings)
}

// renderSequence prints a sequence-mode result.
func renderSequence(w io.Writer, r *engine.SequenceResult) {
	fmt.Fprintf(w, "%s %s\n\n", status(r.Success), styles.Title.Render("Sequence"))

	rows := make([][]string, len(r.Items))
	for i, it := range r.Items {
		conflicts := styles.Muted.Render("-")
		if len(it.ResourceConflicts) > 0 {
			conflicts = strings.Join(it.ResourceConflicts, ", ")
		}
		rows[i] = []string{
			strconv.Itoa(it.Sequence), it.Name, it.Phase, strconv.Itoa(it.DependencyLevel),
			strconv.Itoa(it.ParallelGroup), strconv.Itoa(it.PriorityRank), conflicts,
		}
	}
	table(w, []string{"SEQ", "ITEM", "PHASE", "LEVEL", "GROUP", "RANK", "RESOURCE CONFLICTS"}, rows)

	s := r.Statistics
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Items: %d in %d parallel group(s), max %d, avg %.2f\n",
		s.TotalItems, s.ParallelGroups, s.MaxParallelism, s.AvgParallelism)
	for _, b := range r.PhaseBoundaries {
		fmt.Fprintf(w, "Phase %s: #%d-#%d (%d)\n", b.Phase, b.First, b.Last, b.Count)
	}
	renderConflicts(w, r.Conflicts, r.Warnings)
}

// renderRuns prints run history rows.
func renderRuns(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			strconv.FormatInt(r.Seq, 10), r.ID, r.Mode, status(r.Success),
			strconv.Itoa(r.ItemCount), strconv.Itoa(r.ConflictCount), r.ResultHash[:12],
		}
	}
	table(w, []string{"SEQ", "ID", "MODE", "OK", "ITEMS", "CONFLICTS", "RESULT"}, rows)
}

// renderRunHeader prints the metadata of one stored run.
func renderRunHeader(w io.Writer, r store.Run) {
	fmt.Fprintf(w, "%s %s\n", styles.Title.Render("Run"), r.ID)
	fmt.Fprintf(w, "  seq:     %d\n", r.Seq)
	fmt.Fprintf(w, "  mode:    %s\n", r.Mode)
	fmt.Fprintf(w, "  engine:  %s (result v%s)\n", r.EngineVersion, r.ResultVersion)
	fmt.Fprintf(w, "  dataset: %s\n", r.DatasetHash)
	fmt.Fprintf(w, "  config:  %s\n", r.ConfigHash)
	fmt.Fprintf(w, "  result:  %s\n", r.ResultHash)
	if r.MaxParallel != nil {
		fmt.Fprintf(w, "  max parallel override: %d\n", *r.MaxParallel)
	}
	fmt.Fprintln(w)
}
