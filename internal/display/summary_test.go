package display

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"mysql-dump/internal/dump"
)

func mixedRunSummary() *dump.RunSummary {
	summary := dump.NewRunSummary(false)
	summary.OutputDir = "/var/dumps/20240501-030000"

	report := summary.AddDatabase("shop", "primary")
	summary.RecordTable(report, dump.TableResult{
		Database: "shop",
		Table:    "orders",
		Status:   dump.StatusSucceeded,
		Rows:     1204,
		Bytes:    52480,
		Duration: 103 * time.Millisecond,
		Path:     "/var/dumps/20240501-030000/shop/orders.sql",
		Settings: "all rows",
	})
	summary.RecordTable(report, dump.TableResult{
		Database: "shop",
		Table:    "audit_log",
		Status:   dump.StatusFailed,
		Duration: 54 * time.Millisecond,
		Error:    "failed to query table audit_log",
	})
	summary.Finish()
	return summary
}

func render(summary *dump.RunSummary, opts Options) string {
	var buf bytes.Buffer
	opts.NoColor = true
	opts.Writer = &buf
	NewRenderer(opts).RenderRunSummary(summary)
	return buf.String()
}

func TestRenderRunSummary(t *testing.T) {
	out := render(mixedRunSummary(), Options{})

	for _, want := range []string{
		"Dump run dump-",
		"--- shop @ primary ---",
		"orders",
		"succeeded",
		"failed to query table audit_log",
		"shop/orders.sql",
		"Succeeded: 1",
		"Failed: 1",
		"Rows: 1204",
		"Took:",
		"[WARNING] Partial failure: 1 tables dumped, 1 failed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary should contain %q:\n%s", want, out)
		}
	}
}

func TestRenderRunSummarySuccess(t *testing.T) {
	summary := dump.NewRunSummary(false)
	summary.OutputDir = "/var/dumps/20240501-030000"
	report := summary.AddDatabase("shop", "primary")
	summary.RecordTable(report, dump.TableResult{
		Database: "shop",
		Table:    "orders",
		Status:   dump.StatusSucceeded,
		Rows:     10,
		Bytes:    1024,
		Duration: time.Millisecond,
		Path:     "/var/dumps/20240501-030000/shop/orders.sql",
	})
	summary.Finish()

	out := render(summary, Options{})

	if !strings.Contains(out, "[SUCCESS] Dumped 1 tables (10 rows) to /var/dumps/20240501-030000") {
		t.Errorf("successful run should end with a success verdict:\n%s", out)
	}
	if strings.Contains(out, "Failed:") {
		t.Errorf("totals should omit zero counters:\n%s", out)
	}
}

func TestRenderRunSummaryQuiet(t *testing.T) {
	out := render(mixedRunSummary(), Options{Quiet: true})

	if !strings.Contains(out, "[ERROR] shop.audit_log: failed to query table audit_log") {
		t.Errorf("quiet mode should still report failures:\n%s", out)
	}
	if strings.Contains(out, "Dump run") || strings.Contains(out, "succeeded") {
		t.Errorf("quiet mode should print failures only:\n%s", out)
	}
}

func TestRenderRunSummaryQuietSilentOnSuccess(t *testing.T) {
	summary := dump.NewRunSummary(false)
	report := summary.AddDatabase("shop", "primary")
	summary.RecordTable(report, dump.TableResult{
		Database: "shop",
		Table:    "orders",
		Status:   dump.StatusSucceeded,
		Rows:     1,
	})
	summary.Finish()

	if out := render(summary, Options{Quiet: true}); out != "" {
		t.Errorf("quiet mode should print nothing on success, got:\n%s", out)
	}
}

func TestRenderRunSummaryDryRun(t *testing.T) {
	summary := dump.NewRunSummary(true)
	report := summary.AddDatabase("shop", "primary")
	summary.RecordTable(report, dump.TableResult{Database: "shop", Table: "orders", Status: dump.StatusPlanned, Settings: "all rows"})
	summary.RecordTable(report, dump.TableResult{Database: "shop", Table: "users", Status: dump.StatusPlanned, Settings: "schema only"})
	summary.Finish()

	out := render(summary, Options{})

	for _, want := range []string{
		"Dry run dump-",
		"planned",
		"Planned: 2",
		"[INFO] Dry run: 2 tables would be dumped, no files were written",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dry-run summary should contain %q:\n%s", want, out)
		}
	}
}

func TestRenderRunSummaryDatabaseError(t *testing.T) {
	summary := dump.NewRunSummary(false)
	report := summary.AddDatabase("crm", "replica")
	report.Error = "failed to connect to database crm: connection refused"
	summary.Finish()

	out := render(summary, Options{})

	if !strings.Contains(out, "--- crm @ replica ---") {
		t.Errorf("database section should render even on connection failure:\n%s", out)
	}
	if !strings.Contains(out, "[ERROR] failed to connect to database crm: connection refused") {
		t.Errorf("database error should print in place of the table list:\n%s", out)
	}
	if !strings.Contains(out, "[ERROR] Dump failed: nothing was dumped successfully") {
		t.Errorf("run with no successes should end with a failure verdict:\n%s", out)
	}
}

func TestRenderRunSummaryVerboseSettings(t *testing.T) {
	out := render(mixedRunSummary(), Options{Verbose: true})

	if !strings.Contains(out, "SETTINGS") || !strings.Contains(out, "all rows") {
		t.Errorf("verbose mode should add the settings column:\n%s", out)
	}
}

func TestStatusMessages(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(Options{NoColor: true, Writer: &buf})

	r.Success("done")
	r.Warning("careful")
	r.Error("broken")
	r.Info("note")

	out := buf.String()
	for _, want := range []string{"[SUCCESS] done", "[WARNING] careful", "[ERROR] broken", "[INFO] note"} {
		if !strings.Contains(out, want) {
			t.Errorf("output should contain %q:\n%s", want, out)
		}
	}
}

func TestStatusMessagesQuiet(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(Options{NoColor: true, Quiet: true, Writer: &buf})

	r.Info("note")
	if buf.Len() != 0 {
		t.Errorf("quiet mode should suppress info messages, got %q", buf.String())
	}

	r.Error("broken")
	if !strings.Contains(buf.String(), "[ERROR] broken") {
		t.Error("quiet mode should not suppress errors")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{512, "512 B"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{3 * 1024 * 1024 * 1024 / 2, "1.5 GB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.bytes); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{1234 * time.Millisecond, "1.23s"},
		{90 * time.Second, "1m30s"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
