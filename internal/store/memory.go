package store

import (
	"sort"
	"sync"

	"github.com/kimera-swm/go-core/internal/scar"
)

// #region memory-store

// MemoryStore is a map-backed ScarStore for tests and store-less runs.
type MemoryStore struct {
	mu    sync.RWMutex
	scars map[string]*scar.ScarRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{scars: make(map[string]*scar.ScarRecord)}
}

// #endregion memory-store

// #region operations

// Save stores a copy of the scar.
func (m *MemoryStore) Save(rec *scar.ScarRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scars[rec.ScarID] = cloneScar(rec)
	return nil
}

// Update overwrites an existing scar.
func (m *MemoryStore) Update(rec *scar.ScarRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scars[rec.ScarID]; !ok {
		return ErrNotFound
	}
	m.scars[rec.ScarID] = cloneScar(rec)
	return nil
}

// Delete removes a scar. Missing IDs are ignored.
func (m *MemoryStore) Delete(scarID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.scars, scarID)
	return nil
}

// QueryByVault returns a vault's scars ordered by timestamp then ID.
func (m *MemoryStore) QueryByVault(vaultID scar.VaultID, limit int) ([]*scar.ScarRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var records []*scar.ScarRecord
	for _, rec := range m.scars {
		if rec.VaultID == vaultID {
			records = append(records, cloneScar(rec))
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].Timestamp.Before(records[j].Timestamp)
		}
		return records[i].ScarID < records[j].ScarID
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Aggregate returns the count and total weight for one vault.
func (m *MemoryStore) Aggregate(vaultID scar.VaultID) (VaultAggregate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var agg VaultAggregate
	for _, rec := range m.scars {
		if rec.VaultID == vaultID {
			agg.Count++
			agg.TotalWeight += rec.Weight
		}
	}
	return agg, nil
}

// UpdateVaultAssignment moves a scar between vaults.
func (m *MemoryStore) UpdateVaultAssignment(scarID string, vaultID scar.VaultID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.scars[scarID]
	if !ok {
		return ErrNotFound
	}
	rec.VaultID = vaultID
	return nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}

// #endregion operations

// #region helpers

func cloneScar(rec *scar.ScarRecord) *scar.ScarRecord {
	out := *rec
	out.Geoids = make([]string, len(rec.Geoids))
	copy(out.Geoids, rec.Geoids)
	return &out
}

// #endregion helpers
