package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"seen/internal/observ"
	"seen/internal/regionrt"
	"seen/internal/regions"
)

var (
	stressWorkers int
	stressRegions int
	stressAllocs  int
	stressSize    int
)

func init() {
	stressCmd.Flags().IntVar(&stressWorkers, "workers", 8, "concurrent workers")
	stressCmd.Flags().IntVar(&stressRegions, "regions", 64, "regions created per worker")
	stressCmd.Flags().IntVar(&stressAllocs, "allocs", 256, "allocations per region")
	stressCmd.Flags().IntVar(&stressSize, "size", 64, "bytes per allocation")
}

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Exercise the runtime region manager under concurrent load",
	Long: `stress drives the region manager with concurrent create/allocate/cleanup
cycles and verifies that every reference into a cleaned region stays invalid.`,
	RunE: runStress,
}

func runStress(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return err
	}
	timings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}

	timer := observ.NewTimer()
	phase := timer.Begin(observ.PhaseStress)

	m := regionrt.NewManager()
	var wg sync.WaitGroup
	errCh := make(chan error, stressWorkers)

	for w := 0; w < stressWorkers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			if err := stressWorker(m, w); err != nil {
				errCh <- err
			}
		}(w)
	}
	wg.Wait()
	close(errCh)
	if err := <-errCh; err != nil {
		return err
	}

	reaped := m.Reap()
	stats := m.Stats()
	timer.End(phase, fmt.Sprintf("%d allocations", stats.TotalAllocations))

	if !quiet {
		fmt.Printf("workers:      %d\n", stressWorkers)
		fmt.Printf("allocations:  %d\n", stats.TotalAllocations)
		fmt.Printf("cleanups:     %d\n", stats.TotalCleanups)
		fmt.Printf("reaped:       %d\n", reaped)
		fmt.Printf("live regions: %d (%d objects, %d bytes)\n",
			stats.ActiveRegions, stats.LiveObjects, stats.LiveBytes)
	}
	if timings && !quiet {
		fmt.Fprint(os.Stderr, timer.Summary())
	}
	return nil
}

// stressWorker runs create/allocate/get/cleanup cycles and checks the
// generational guarantees as it goes.
func stressWorker(m *regionrt.Manager, w int) error {
	payload := make([]byte, stressSize)
	for i := 0; i < stressRegions; i++ {
		name := fmt.Sprintf("w%d-r%d", w, i)
		region, err := m.Create(name, regions.Heap)
		if err != nil {
			return fmt.Errorf("worker %d: create %s: %w", w, name, err)
		}

		refs := make([]regionrt.Ref, 0, stressAllocs)
		for a := 0; a < stressAllocs; a++ {
			ref, err := region.Allocate(payload)
			if err != nil {
				return fmt.Errorf("worker %d: allocate in %s: %w", w, name, err)
			}
			refs = append(refs, ref)
		}
		for _, ref := range refs {
			if _, err := m.Get(ref); err != nil {
				return fmt.Errorf("worker %d: live ref %v failed: %w", w, ref, err)
			}
		}

		// Keep every fourth region alive to leave the manager with a mixed
		// population at the end.
		if i%4 == 0 {
			continue
		}
		if err := m.Cleanup(region.ID()); err != nil {
			return fmt.Errorf("worker %d: cleanup %s: %w", w, name, err)
		}
		for _, ref := range refs {
			if m.Valid(ref) {
				return fmt.Errorf("worker %d: ref %v survived cleanup", w, ref)
			}
		}
	}
	return nil
}
