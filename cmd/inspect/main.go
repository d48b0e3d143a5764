package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/kimera-swm/go-core/internal/logging"
	"github.com/kimera-swm/go-core/internal/scar"
	"github.com/kimera-swm/go-core/internal/store"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to kimera.db")
	vaultID := flag.String("vault", "", "list scars of one vault (vault_a | vault_b | fallback_queue)")
	last := flag.Int("last", 20, "show N most recent scars / decisions")
	decisions := flag.Bool("decisions", false, "show recent decision log entries")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/kimera.db [--vault id] [--last N] [--decisions] [--json]")
		os.Exit(2)
	}

	st, err := store.NewSQLiteStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	switch {
	case *decisions:
		err = runDecisionMode(st, *last, *jsonOut)
	case *vaultID != "":
		err = runVaultMode(st, scar.VaultID(*vaultID), *last, *jsonOut)
	default:
		err = runSummaryMode(st, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region summary-mode

type vaultSummary struct {
	VaultID     string  `json:"vault_id"`
	Count       int     `json:"count"`
	TotalWeight float64 `json:"total_weight"`
}

func runSummaryMode(st *store.SQLiteStore, jsonOut bool) error {
	ids := []scar.VaultID{scar.VaultA, scar.VaultB, scar.VaultFallback}
	summaries := make([]vaultSummary, 0, len(ids))
	for _, id := range ids {
		agg, err := st.Aggregate(id)
		if err != nil {
			return err
		}
		summaries = append(summaries, vaultSummary{
			VaultID:     string(id),
			Count:       agg.Count,
			TotalWeight: agg.TotalWeight,
		})
	}

	if jsonOut {
		return printJSON(summaries)
	}

	fmt.Printf("%-16s  %8s  %12s\n", "Vault", "Scars", "Total Weight")
	fmt.Printf("%-16s+-%8s+-%12s\n", "----------------", "--------", "------------")
	for _, s := range summaries {
		fmt.Printf("%-16s  %8d  %12.4f\n", s.VaultID, s.Count, s.TotalWeight)
	}
	return nil
}

// #endregion summary-mode

// #region vault-mode

type scarRow struct {
	ScarID     string   `json:"scar_id"`
	Geoids     []string `json:"geoids"`
	Reason     string   `json:"reason"`
	Weight     float64  `json:"weight"`
	CLSAngle   float64  `json:"cls_angle"`
	Quarantine bool     `json:"quarantined"`
	Timestamp  string   `json:"timestamp"`
}

func runVaultMode(st *store.SQLiteStore, vaultID scar.VaultID, last int, jsonOut bool) error {
	records, err := st.QueryByVault(vaultID, last)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintf(os.Stderr, "no scars in %s\n", vaultID)
		return nil
	}

	rows := make([]scarRow, len(records))
	for i, rec := range records {
		rows[i] = scarRow{
			ScarID:     rec.ScarID,
			Geoids:     rec.Geoids,
			Reason:     rec.Reason,
			Weight:     rec.Weight,
			CLSAngle:   rec.CLSAngle,
			Quarantine: rec.Quarantined,
			Timestamp:  rec.Timestamp.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-10s  %8s  %8s  %-12s  %-5s  %s\n",
		"Scar", "Weight", "Angle", "Reason", "Quar", "Time")
	fmt.Printf("%-10s+-%8s+-%8s+-%-12s+-%-5s+-%s\n",
		"----------", "--------", "--------", "------------", "-----", "--------------------")
	for _, r := range rows {
		fmt.Printf("%-10s  %8.4f  %8.2f  %-12s  %-5v  %s\n",
			shortID(r.ScarID), r.Weight, r.CLSAngle, r.Reason, r.Quarantine, r.Timestamp)
	}
	return nil
}

// #endregion vault-mode

// #region decision-mode

type decisionRow struct {
	GeoidA        string  `json:"geoid_a"`
	GeoidB        string  `json:"geoid_b"`
	TensionScore  float64 `json:"tension_score"`
	PulseStrength float64 `json:"pulse_strength"`
	Decision      string  `json:"decision"`
	ScarID        string  `json:"scar_id,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

func runDecisionMode(st *store.SQLiteStore, last int, jsonOut bool) error {
	entries, err := logging.RecentDecisions(st.DB(), last)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no decisions logged")
		return nil
	}

	rows := make([]decisionRow, len(entries))
	for i, e := range entries {
		rows[i] = decisionRow{
			GeoidA:        e.GeoidA,
			GeoidB:        e.GeoidB,
			TensionScore:  e.TensionScore,
			PulseStrength: e.PulseStrength,
			Decision:      e.Decision,
			ScarID:        e.ScarID,
			CreatedAt:     e.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-10s  %-10s  %8s  %8s  %-9s  %-10s  %s\n",
		"Geoid A", "Geoid B", "Tension", "Pulse", "Decision", "Scar", "Time")
	fmt.Printf("%-10s+-%-10s+-%8s+-%8s+-%-9s+-%-10s+-%s\n",
		"----------", "----------", "--------", "--------", "---------", "----------", "--------------------")
	for _, r := range rows {
		scarCol := "—"
		if r.ScarID != "" {
			scarCol = shortID(r.ScarID)
		}
		fmt.Printf("%-10s  %-10s  %8.4f  %8.4f  %-9s  %-10s  %s\n",
			shortID(r.GeoidA), shortID(r.GeoidB), r.TensionScore, r.PulseStrength,
			r.Decision, scarCol, r.CreatedAt)
	}
	return nil
}

// #endregion decision-mode

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
