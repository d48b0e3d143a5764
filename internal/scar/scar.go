package scar

import (
	"time"

	"github.com/google/uuid"
)

// #region constructor

// New creates a ScarRecord with a fresh ID, the current UTC timestamp, and
// Weight initialized to initialWeight.
func New(geoids []string, reason string, initialWeight float64) *ScarRecord {
	ids := make([]string, len(geoids))
	copy(ids, geoids)
	return &ScarRecord{
		ScarID:        uuid.New().String(),
		Geoids:        ids,
		Reason:        reason,
		Timestamp:     time.Now().UTC(),
		InitialWeight: initialWeight,
		Weight:        initialWeight,
	}
}

// #endregion constructor

// #region shared-geoids

// SharesGeoid reports whether two scars reference at least one common geoid.
func (s *ScarRecord) SharesGeoid(other *ScarRecord) bool {
	for _, a := range s.Geoids {
		for _, b := range other.Geoids {
			if a == b {
				return true
			}
		}
	}
	return false
}

// #endregion shared-geoids
