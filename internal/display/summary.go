package display

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"mysql-dump/internal/dump"
)

// Renderer writes human-readable run results to the terminal.
type Renderer struct {
	opts   Options
	colors *ColorSystem
	writer io.Writer
}

// NewRenderer creates a renderer for the given options.
func NewRenderer(opts Options) *Renderer {
	opts.setDefaults()
	return &Renderer{
		opts:   opts,
		colors: NewColorSystem(DefaultTheme(), opts.NoColor),
		writer: opts.Writer,
	}
}

// Success prints a success message.
func (r *Renderer) Success(message string) {
	r.statusMessage("SUCCESS", message, r.colors.Theme().Success)
}

// Warning prints a warning message.
func (r *Renderer) Warning(message string) {
	r.statusMessage("WARNING", message, r.colors.Theme().Warning)
}

// Error prints an error message. Errors print in quiet mode too.
func (r *Renderer) Error(message string) {
	r.statusMessage("ERROR", message, r.colors.Theme().Error)
}

// Info prints an informational message, suppressed in quiet mode.
func (r *Renderer) Info(message string) {
	if r.opts.Quiet {
		return
	}
	r.statusMessage("INFO", message, r.colors.Theme().Info)
}

func (r *Renderer) statusMessage(level, message string, clr Color) {
	prefix := r.colors.Colorize(fmt.Sprintf("[%s]", level), clr)
	fmt.Fprintf(r.writer, "%s %s\n", prefix, message)
}

// RenderRunSummary prints the per-table outcome of a run followed by
// the totals line and the final verdict. In quiet mode only failures
// print, one line each.
func (r *Renderer) RenderRunSummary(summary *dump.RunSummary) {
	if r.opts.Quiet {
		r.renderFailuresOnly(summary)
		return
	}

	title := fmt.Sprintf("Dump run %s", summary.RunID)
	if summary.DryRun {
		title = fmt.Sprintf("Dry run %s", summary.RunID)
	}
	fmt.Fprintf(r.writer, "\n%s\n", r.colors.Colorize(title, r.colors.Theme().Highlight))

	for _, report := range summary.Databases {
		r.renderDatabase(summary, report)
	}

	r.renderTotals(summary)
	r.renderVerdict(summary)
}

func (r *Renderer) renderDatabase(summary *dump.RunSummary, report *dump.DatabaseReport) {
	section := fmt.Sprintf("--- %s @ %s ---", report.Database, report.Instance)
	fmt.Fprintf(r.writer, "\n%s\n", r.colors.Colorize(section, r.colors.Theme().Primary))

	if report.Error != "" {
		r.Error(report.Error)
		return
	}
	if len(report.Tables) == 0 {
		r.Info("no tables selected")
		return
	}

	table := NewTable(r.colors)
	headers := []string{"TABLE", "STATUS", "ROWS", "SIZE", "TIME", "FILE"}
	if r.opts.Verbose {
		headers = append(headers, "SETTINGS")
	}
	table.SetHeaders(headers...)
	table.AlignRight(2, 3)

	theme := r.colors.Theme()
	for _, result := range report.Tables {
		row := []Cell{
			{Text: result.Table},
			{Text: string(result.Status), Color: statusColor(theme, result.Status)},
			{Text: rowsCell(result)},
			{Text: sizeCell(result)},
			{Text: timeCell(result)},
			{Text: fileCell(summary, result)},
		}
		if r.opts.Verbose {
			row = append(row, Cell{Text: result.Settings, Color: theme.Muted})
		}
		table.AddStyledRow(row...)
	}

	table.RenderTo(r.writer)
}

// renderTotals prints the one-line counters in the bracketed style of
// the status footer.
func (r *Renderer) renderTotals(summary *dump.RunSummary) {
	theme := r.colors.Theme()
	totals := summary.Totals

	var parts []string
	if totals.Planned > 0 {
		parts = append(parts, r.colors.Sprintf(theme.Info, "Planned: %d", totals.Planned))
	}
	if totals.Succeeded > 0 {
		parts = append(parts, r.colors.Sprintf(theme.Success, "Succeeded: %d", totals.Succeeded))
	}
	if totals.Failed > 0 {
		parts = append(parts, r.colors.Sprintf(theme.Error, "Failed: %d", totals.Failed))
	}
	if totals.Skipped > 0 {
		parts = append(parts, r.colors.Sprintf(theme.Warning, "Skipped: %d", totals.Skipped))
	}
	if totals.Rows > 0 {
		parts = append(parts, fmt.Sprintf("Rows: %d", totals.Rows))
	}
	if totals.Bytes > 0 {
		parts = append(parts, r.colors.Sprintf(theme.Muted, "Size: %s", formatBytes(totals.Bytes)))
	}
	parts = append(parts, fmt.Sprintf("Took: %s", formatDuration(summary.Duration)))

	fmt.Fprintf(r.writer, "\n[%s]\n", strings.Join(parts, " | "))
}

func (r *Renderer) renderVerdict(summary *dump.RunSummary) {
	totals := summary.Totals

	if summary.DryRun {
		r.Info(fmt.Sprintf("Dry run: %d tables would be dumped, no files were written", totals.Planned))
		return
	}

	switch summary.ExitCode() {
	case 0:
		if totals.Succeeded == 0 {
			r.Info("Nothing was selected for dumping")
			return
		}
		r.Success(fmt.Sprintf("Dumped %d tables (%d rows) to %s", totals.Succeeded, totals.Rows, summary.OutputDir))
	case 2:
		r.Warning(fmt.Sprintf("Partial failure: %d tables dumped, %d failed", totals.Succeeded, failureCount(summary)))
	default:
		r.Error("Dump failed: nothing was dumped successfully")
	}
}

func (r *Renderer) renderFailuresOnly(summary *dump.RunSummary) {
	for _, report := range summary.Databases {
		if report.Error != "" {
			r.Error(fmt.Sprintf("%s @ %s: %s", report.Database, report.Instance, report.Error))
		}
		for _, result := range report.Tables {
			if result.Status == dump.StatusFailed {
				r.Error(fmt.Sprintf("%s.%s: %s", result.Database, result.Table, result.Error))
			}
		}
	}
}

func statusColor(theme ColorTheme, status dump.TableStatus) Color {
	switch status {
	case dump.StatusSucceeded:
		return theme.Success
	case dump.StatusFailed:
		return theme.Error
	case dump.StatusSkipped:
		return theme.Warning
	case dump.StatusPlanned:
		return theme.Info
	default:
		return ColorReset
	}
}

func rowsCell(result dump.TableResult) string {
	if result.Status != dump.StatusSucceeded {
		return "-"
	}
	return fmt.Sprintf("%d", result.Rows)
}

func sizeCell(result dump.TableResult) string {
	if result.Status != dump.StatusSucceeded {
		return "-"
	}
	return formatBytes(result.Bytes)
}

func timeCell(result dump.TableResult) string {
	if result.Duration == 0 {
		return "-"
	}
	return formatDuration(result.Duration)
}

func fileCell(summary *dump.RunSummary, result dump.TableResult) string {
	switch result.Status {
	case dump.StatusSucceeded:
		return relativePath(summary.OutputDir, result.Path)
	case dump.StatusFailed:
		if result.LeftoverPath != "" {
			return fmt.Sprintf("%s (partial file at %s)", result.Error, relativePath(summary.OutputDir, result.LeftoverPath))
		}
		return result.Error
	case dump.StatusSkipped:
		return result.Error
	default:
		return "-"
	}
}

// relativePath shortens a dump file path to its run-relative form.
func relativePath(baseDir, path string) string {
	if baseDir == "" || path == "" {
		return path
	}
	rel, err := filepath.Rel(baseDir, path)
	if err != nil {
		return path
	}
	return rel
}

// formatBytes formats byte size in human-readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// formatDuration trims sub-millisecond noise from durations.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(10 * time.Millisecond).String()
}

func failureCount(summary *dump.RunSummary) int {
	failures := summary.Totals.Failed
	for _, report := range summary.Databases {
		if report.Error != "" {
			failures++
		}
	}
	return failures
}
