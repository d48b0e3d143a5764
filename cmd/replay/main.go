package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/kimera-swm/go-core/internal/replay"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to fixture JSON")
	verbose := flag.Bool("v", false, "print every pair, not only expectations")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json [-v]")
		os.Exit(2)
	}

	f, err := replay.LoadFixture(*fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		os.Exit(2)
	}

	results, summary := replay.Replay(f)
	mismatches := replay.Verify(f, results)

	if *verbose {
		printResults(results)
	}
	printSummary(summary, len(f.Expected), mismatches)

	if len(mismatches) > 0 {
		os.Exit(1)
	}
}

// #endregion main

// #region output

func printResults(results []replay.Result) {
	fmt.Printf("%-12s  %-12s  %8s  %8s  %-9s  %s\n",
		"Geoid A", "Geoid B", "Tension", "Pulse", "Decision", "Vault")
	fmt.Printf("%-12s+-%-12s+-%8s+-%8s+-%-9s+-%s\n",
		"------------", "------------", "--------", "--------", "---------", "------------")
	for _, r := range results {
		vaultCol := "—"
		if r.VaultID != "" {
			vaultCol = string(r.VaultID)
		}
		fmt.Printf("%-12s  %-12s  %8.4f  %8.4f  %-9s  %s\n",
			r.GeoidA, r.GeoidB, r.TensionScore, r.PulseStrength, r.Decision, vaultCol)
	}
	fmt.Println()
}

func printSummary(s replay.Summary, expected int, mismatches []replay.Mismatch) {
	fmt.Printf("Summary: %d geoids, %d gradients, %d collapse, %d surge, %d buffer\n",
		s.Geoids, s.Gradients, s.Collapses, s.Surges, s.Buffers)
	if s.Collapses > 0 {
		fmt.Printf("Scars routed: vault_a=%d vault_b=%d\n", s.VaultA, s.VaultB)
	}
	if expected == 0 {
		fmt.Println("No expectations in fixture.")
		return
	}
	if len(mismatches) == 0 {
		fmt.Printf("Expectations: %d checked, all match\n", expected)
		return
	}
	fmt.Printf("Expectations: %d checked, %d diverge\n", expected, len(mismatches))
	for _, m := range mismatches {
		fmt.Printf("  DIFF %s\n", m)
	}
}

// #endregion output
