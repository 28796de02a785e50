package observ

import (
	"strings"
	"testing"
	"time"
)

func TestTimerReportAndSummary(t *testing.T) {
	tm := NewTimer()
	idx := tm.Begin(PhaseAnalyze)
	time.Sleep(time.Millisecond)
	tm.End(idx, "3 functions")

	report := tm.Report()
	if len(report.Phases) != 1 {
		t.Fatalf("phases: got %d, want 1", len(report.Phases))
	}
	p := report.Phases[0]
	if p.Name != string(PhaseAnalyze) || p.Note != "3 functions" {
		t.Fatalf("phase: %+v", p)
	}
	if p.DurationMS <= 0 || report.TotalMS < p.DurationMS {
		t.Fatalf("durations: phase=%v total=%v", p.DurationMS, report.TotalMS)
	}

	summary := tm.Summary()
	if !strings.Contains(summary, "analyze") || !strings.Contains(summary, "total") {
		t.Fatalf("summary: %q", summary)
	}
}

func TestTimerEndIgnoresBadIndex(t *testing.T) {
	tm := NewTimer()
	tm.End(3, "nope")
	if got := tm.Report(); len(got.Phases) != 0 {
		t.Fatalf("phases: %+v", got.Phases)
	}
}
