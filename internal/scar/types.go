package scar

import "time"

// #region vault-id

// VaultID names one of the two scar partitions.
type VaultID string

const (
	VaultA VaultID = "vault_a"
	VaultB VaultID = "vault_b"

	// VaultFallback is the unbounded lower-priority queue scars are moved to
	// by fracture handling. Not a routing target.
	VaultFallback VaultID = "fallback_queue"
)

// #endregion vault-id

// #region scar-record

// ScarRecord is a persisted contradiction between geoids. Weight decays from
// InitialWeight over time; a record is pruned once Weight drops below the
// configured threshold.
type ScarRecord struct {
	ScarID            string
	Geoids            []string // geoid IDs involved, at least one
	Reason            string
	Timestamp         time.Time
	ResolvedBy        string // empty if unresolved
	PreEntropy        float64
	PostEntropy       float64
	DeltaEntropy      float64
	CLSAngle          float64 // degrees, drives stage-3 routing
	SemanticPolarity  float64 // [-1, 1]
	MutationFrequency float64 // [0, 1]
	InitialWeight     float64
	Weight            float64
	Quarantined       bool // excluded from rebalance moves and fracture eviction
	VaultID           VaultID
}

// #endregion scar-record
