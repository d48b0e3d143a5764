package store

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kimera-swm/go-core/internal/scar"
)

// #region config

// CachedConfig tunes the caching/batching layer.
type CachedConfig struct {
	StatsTTL      time.Duration // hard staleness bound when a refresh fails
	StatsRefresh  time.Duration // minimum interval between aggregate refetches
	BatchSize     int           // flush when this many inserts are buffered
	BatchInterval time.Duration // flush when the oldest buffered insert is this old
}

// DefaultCachedConfig returns the standard cache/batch tuning.
func DefaultCachedConfig() CachedConfig {
	return CachedConfig{
		StatsTTL:      300 * time.Second,
		StatsRefresh:  30 * time.Second,
		BatchSize:     100,
		BatchInterval: 5 * time.Second,
	}
}

// #endregion config

// #region cached-store

// CachedStore wraps a ScarStore with a time-bounded aggregate cache and
// batched inserts. External behavior is identical to the wrapped store:
// reads flush pending writes first, and writes invalidate the cache.
type CachedStore struct {
	mu     sync.Mutex
	inner  ScarStore
	config CachedConfig

	stats   map[scar.VaultID]*statsEntry
	pending []*scar.ScarRecord
	oldest  time.Time // buffer time of the oldest pending insert
	retried bool      // one re-queue already consumed for the current batch

	stop chan struct{}
	done chan struct{}
}

type statsEntry struct {
	agg       VaultAggregate
	fetchedAt time.Time
	dirty     bool
}

// NewCachedStore wraps inner and starts the background flush loop.
func NewCachedStore(inner ScarStore, config CachedConfig) *CachedStore {
	c := &CachedStore{
		inner:  inner,
		config: config,
		stats:  make(map[scar.VaultID]*statsEntry),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go c.flushLoop()
	return c
}

func (c *CachedStore) flushLoop() {
	defer close(c.done)
	ticker := time.NewTicker(c.config.BatchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			if err := c.flushLocked(); err != nil {
				log.Printf("[STORE] background flush: %v", err)
			}
			c.mu.Unlock()
		}
	}
}

// #endregion cached-store

// #region writes

// Save buffers the insert, flushing when the batch is full or stale.
func (c *CachedStore) Save(rec *scar.ScarRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pending) == 0 {
		c.oldest = time.Now()
	}
	c.pending = append(c.pending, cloneScar(rec))
	c.invalidateLocked(rec.VaultID)

	if len(c.pending) >= c.config.BatchSize || time.Since(c.oldest) >= c.config.BatchInterval {
		return c.flushLocked()
	}
	return nil
}

// Update flushes pending inserts, then writes through.
func (c *CachedStore) Update(rec *scar.ScarRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.flushLocked(); err != nil {
		return err
	}
	c.invalidateAllLocked()
	return c.inner.Update(rec)
}

// Delete flushes pending inserts, then writes through.
func (c *CachedStore) Delete(scarID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.flushLocked(); err != nil {
		return err
	}
	c.invalidateAllLocked()
	return c.inner.Delete(scarID)
}

// UpdateVaultAssignment flushes pending inserts, then writes through.
func (c *CachedStore) UpdateVaultAssignment(scarID string, vaultID scar.VaultID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.flushLocked(); err != nil {
		return err
	}
	c.invalidateAllLocked()
	return c.inner.UpdateVaultAssignment(scarID, vaultID)
}

// #endregion writes

// #region reads

// QueryByVault flushes pending inserts, then reads through.
func (c *CachedStore) QueryByVault(vaultID scar.VaultID, limit int) ([]*scar.ScarRecord, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.flushLocked(); err != nil {
		return nil, err
	}
	return c.inner.QueryByVault(vaultID, limit)
}

// Aggregate serves cached vault statistics. A clean entry younger than
// StatsRefresh is served as-is; otherwise the cache is refreshed. If the
// refresh fails, a stale entry within StatsTTL is served instead.
func (c *CachedStore) Aggregate(vaultID scar.VaultID) (VaultAggregate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.stats[vaultID]
	if entry != nil && !entry.dirty && time.Since(entry.fetchedAt) < c.config.StatsRefresh {
		return entry.agg, nil
	}

	if err := c.flushLocked(); err != nil {
		return VaultAggregate{}, err
	}

	agg, err := c.inner.Aggregate(vaultID)
	if err != nil {
		if entry != nil && time.Since(entry.fetchedAt) < c.config.StatsTTL {
			log.Printf("[STORE] aggregate refresh failed, serving cached stats: %v", err)
			return entry.agg, nil
		}
		return VaultAggregate{}, err
	}

	c.stats[vaultID] = &statsEntry{agg: agg, fetchedAt: time.Now()}
	return agg, nil
}

// #endregion reads

// #region flush

// Flush forces all buffered inserts to the wrapped store.
func (c *CachedStore) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushLocked()
}

// flushLocked drains the pending batch. The first failure re-queues the
// unsaved remainder; a second consecutive failure drops it and surfaces
// ErrFlushFailed.
func (c *CachedStore) flushLocked() error {
	if len(c.pending) == 0 {
		return nil
	}

	for i, rec := range c.pending {
		if err := c.inner.Save(rec); err != nil {
			c.pending = c.pending[i:]
			if !c.retried {
				c.retried = true
				log.Printf("[STORE] flush failed, re-queueing %d inserts: %v", len(c.pending), err)
				c.oldest = time.Now()
				return nil
			}
			dropped := len(c.pending)
			c.pending = nil
			c.retried = false
			return fmt.Errorf("%w: dropped %d inserts: %v", ErrFlushFailed, dropped, err)
		}
	}
	c.pending = nil
	c.retried = false
	return nil
}

// #endregion flush

// #region close

// Close flushes, stops the background loop, and closes the wrapped store.
func (c *CachedStore) Close() error {
	close(c.stop)
	<-c.done

	c.mu.Lock()
	flushErr := c.flushLocked()
	c.mu.Unlock()

	if err := c.inner.Close(); err != nil {
		return err
	}
	return flushErr
}

// #endregion close

// #region invalidation

func (c *CachedStore) invalidateLocked(vaultID scar.VaultID) {
	if entry := c.stats[vaultID]; entry != nil {
		entry.dirty = true
	}
}

func (c *CachedStore) invalidateAllLocked() {
	for _, entry := range c.stats {
		entry.dirty = true
	}
}

// #endregion invalidation
