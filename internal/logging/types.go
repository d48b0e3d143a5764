package logging

import "time"

// #region decision-entry
// DecisionEntry is a single row in the decision_log table. One entry is
// written per collapse/surge/buffer verdict so a run can be audited
// after the fact.
type DecisionEntry struct {
	GeoidA        string
	GeoidB        string
	TensionScore  float64
	GradientType  string
	PulseStrength float64
	Decision      string // "collapse" | "surge" | "buffer"
	ScarID        string
	Reason        string
	CreatedAt     time.Time
}

// #endregion decision-entry
