package vault

import "github.com/kimera-swm/go-core/internal/scar"

// #region config

// Config holds capacity and balance thresholds for the vault pair.
type Config struct {
	Capacity           int     // max scars per vault
	FractureThreshold  float64 // VSI above which an insert fractures first
	ImbalanceThreshold float64 // heavier/lighter ratio that counts as imbalance
}

// DefaultConfig returns the standard vault tuning.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		FractureThreshold:  0.8,
		ImbalanceThreshold: 1.5,
	}
}

// #endregion config

// #region insert-result

// InsertOutcome distinguishes a plain insert from one that fractured first.
type InsertOutcome string

const (
	OutcomeInserted              InsertOutcome = "inserted"
	OutcomeInsertedAfterFracture InsertOutcome = "inserted_after_fracture"

	// OutcomeDivertedToFallback means fracture eviction could not free
	// enough room (the vault is mostly quarantined) and the incoming scar
	// went to the fallback queue instead.
	OutcomeDivertedToFallback InsertOutcome = "diverted_to_fallback"
)

// InsertResult is the typed outcome of InsertScar.
type InsertResult struct {
	Outcome InsertOutcome
	VaultID scar.VaultID
	Evicted int // scars moved to the fallback queue by fracture handling
}

// #endregion insert-result
