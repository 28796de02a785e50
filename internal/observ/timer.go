package observ

import (
	"fmt"
	"strings"
	"time"
)

// PhaseName identifies one timed stage of a run.
type PhaseName string

// The stages seen-mem reports on.
const (
	PhaseLoad    PhaseName = "load"
	PhaseAnalyze PhaseName = "analyze"
	PhaseStress  PhaseName = "stress"
)

// Phase records the duration and metadata of one stage.
type Phase struct {
	Name  PhaseName
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer tracks how long each stage of a run took.
type Timer struct {
	phases []Phase
}

// NewTimer creates an empty Timer.
func NewTimer() *Timer { return &Timer{phases: make([]Phase, 0, 4)} }

// Begin starts timing a stage and returns its index for End.
func (t *Timer) Begin(name PhaseName) int {
	t.phases = append(t.phases, Phase{Name: name, Start: time.Now()})
	return len(t.phases) - 1
}

// End finishes the stage at idx and attaches a note.
func (t *Timer) End(idx int, note string) {
	if idx < 0 || idx >= len(t.phases) {
		return
	}
	p := &t.phases[idx]
	p.Dur = time.Since(p.Start)
	p.Note = note
}

// Summary renders the tracked stages for --timings output.
func (t *Timer) Summary() string {
	report := t.Report()
	var sb strings.Builder
	sb.WriteString("timings:\n")
	for _, p := range report.Phases {
		fmt.Fprintf(&sb, "  %-10s %8.2f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			sb.WriteString("  (" + p.Note + ")")
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "  %-10s %8.2f ms\n", "total", report.TotalMS)
	return sb.String()
}

// PhaseReport is the serializable form of one timed stage.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report aggregates the timer's stages.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report flattens the stages and totals their durations in milliseconds.
func (t *Timer) Report() Report {
	if len(t.phases) == 0 {
		return Report{}
	}
	report := Report{Phases: make([]PhaseReport, len(t.phases))}
	var total time.Duration
	for i, p := range t.phases {
		total += p.Dur
		report.Phases[i] = PhaseReport{
			Name:       string(p.Name),
			DurationMS: float64(p.Dur) / float64(time.Millisecond),
			Note:       p.Note,
		}
	}
	report.TotalMS = float64(total) / float64(time.Millisecond)
	return report
}
