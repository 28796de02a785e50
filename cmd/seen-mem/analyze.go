package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"seen/internal/diag"
	"seen/internal/diagfmt"
	"seen/internal/driver"
	"seen/internal/interchange"
	"seen/internal/observ"
	"seen/internal/project"
)

var (
	analyzeJobs    int
	analyzeFormat  string
	analyzeNoCache bool
	analyzeVerbose bool
)

func init() {
	analyzeCmd.Flags().IntVar(&analyzeJobs, "jobs", 0, "functions analyzed in parallel (0 = all CPUs)")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "pretty", "output format (pretty|json)")
	analyzeCmd.Flags().BoolVar(&analyzeNoCache, "no-cache", false, "skip the on-disk plan cache")
	analyzeCmd.Flags().BoolVar(&analyzeVerbose, "verbose", false, "show per-binding placements and info diagnostics")
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <program.mp>",
	Short: "Run escape analysis and region inference over a program document",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	path := args[0]

	format := strings.ToLower(analyzeFormat)
	switch format {
	case "pretty", "json":
	default:
		return fmt.Errorf("unsupported format %q (must be pretty or json)", analyzeFormat)
	}
	useColor, err := colorEnabled(cmd, os.Stdout)
	if err != nil {
		return err
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return err
	}
	timings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}
	maxDiag, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return err
	}

	// Manifest settings fill in whatever flags left at defaults.
	manifest, _, err := project.LoadNearest(filepath.Dir(path))
	if err != nil {
		return err
	}
	jobs := analyzeJobs
	if jobs == 0 {
		jobs = manifest.Analysis.Jobs
	}
	if manifest.Analysis.MaxDiagnostics > 0 && !cmd.Root().PersistentFlags().Changed("max-diagnostics") {
		maxDiag = manifest.Analysis.MaxDiagnostics
	}

	timer := observ.NewTimer()
	loadPhase := timer.Begin(observ.PhaseLoad)

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read %q: %w", path, err)
	}
	loadBag := diag.NewBag(maxDiag)
	doc, err := interchange.Decode(bytes.NewReader(raw), diag.BagReporter{Bag: loadBag})
	timer.End(loadPhase, fmt.Sprintf("%d bytes", len(raw)))
	if err != nil {
		diagfmt.Pretty(os.Stderr, loadBag, diagfmt.Options{Color: useColor, Verbose: analyzeVerbose})
		return fmt.Errorf("cannot load %q: %w", path, err)
	}

	var cache *driver.PlanCache
	if !analyzeNoCache && manifest.Analysis.CacheEnabled() {
		cache, err = driver.OpenPlanCache("seen-mem")
		if err != nil {
			// The cache is an optimization; analysis proceeds without it.
			if !quiet {
				fmt.Fprintf(os.Stderr, "plan cache unavailable: %v\n", err)
			}
			cache = nil
		}
	}

	results, err := driver.AnalyzeProgram(cmd.Context(), doc, driver.Options{
		Jobs:           jobs,
		MaxDiagnostics: maxDiag,
		Cache:          cache,
		Digest:         project.OfBytes(raw),
		Timer:          timer,
	})
	if err != nil {
		return err
	}

	if format == "json" {
		outputs := make([]diagfmt.PlanOutput, 0, len(results))
		for _, r := range results {
			r.Bag.Sort()
			outputs = append(outputs, diagfmt.BuildPlanOutput(doc.Builder, r.Plan, r.Bag, r.Cached))
		}
		if err := diagfmt.JSON(os.Stdout, outputs); err != nil {
			return err
		}
	} else {
		opts := diagfmt.Options{Color: useColor, Verbose: analyzeVerbose}
		for _, r := range results {
			if !quiet {
				diagfmt.PlanSummary(os.Stdout, doc.Builder, r.Plan, opts)
			}
			r.Bag.Sort()
			diagfmt.Pretty(os.Stdout, r.Bag, opts)
		}
	}

	if timings && !quiet {
		fmt.Fprint(os.Stderr, timer.Summary())
	}
	if driver.HasConflicts(results) {
		return fmt.Errorf("region conflicts found")
	}
	return nil
}
