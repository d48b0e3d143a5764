package store

import (
	"errors"

	"github.com/kimera-swm/go-core/internal/scar"
)

// #region errors

var (
	// ErrNotFound is returned when a scar ID has no row.
	ErrNotFound = errors.New("store: scar not found")
	// ErrFlushFailed is returned when a batch flush fails after its retry.
	ErrFlushFailed = errors.New("store: batch flush failed after retry")
)

// #endregion errors

// #region aggregate

// VaultAggregate summarizes one vault's stored scars.
type VaultAggregate struct {
	Count       int
	TotalWeight float64
}

// #endregion aggregate

// #region scar-store

// ScarStore is the persistence capability used by the vault manager and
// optimizer. Both the naive SQLite/memory stores and the cached/batched
// variant satisfy it with identical external behavior.
type ScarStore interface {
	Save(s *scar.ScarRecord) error
	Update(s *scar.ScarRecord) error
	Delete(scarID string) error
	QueryByVault(vaultID scar.VaultID, limit int) ([]*scar.ScarRecord, error)
	Aggregate(vaultID scar.VaultID) (VaultAggregate, error)
	UpdateVaultAssignment(scarID string, vaultID scar.VaultID) error
	Close() error
}

// #endregion scar-store
