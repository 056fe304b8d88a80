package model

import "time"

// Tier is the semantic version increment class.
type Tier string

const (
	TierMajor Tier = "major"
	TierMinor Tier = "minor"
	TierPatch Tier = "patch"
)

// Provenance records how a version decision was produced.
type Provenance string

const (
	ProvenanceAuto    Provenance = "auto"
	ProvenanceManual  Provenance = "manual"
	ProvenancePending Provenance = "manual-review-pending"
)

// VersionDecision is the durable result of analyzing one commit.
// It is immutable once persisted to the ledger.
type VersionDecision struct {
	CommitHash     string     `json:"commit_hash"`
	CurrentVersion string     `json:"current_version"`
	Tier           Tier       `json:"tier"`
	NewVersion     string     `json:"new_version"`
	Confidence     float64    `json:"confidence"`
	Timestamp      time.Time  `json:"timestamp"`
	Provenance     Provenance `json:"provenance"`
}

// EntryStatus describes the terminal state of a ledger entry.
type EntryStatus string

const (
	// EntryApplied means the version tag was written to the VCS backend.
	EntryApplied EntryStatus = "applied"
	// EntryPending means the decision awaits manual review; no tag written.
	EntryPending EntryStatus = "manual-review-pending"
	// EntryFailed means the tag write failed after the decision was made.
	EntryFailed EntryStatus = "failed"
)

// LedgerEntry is a persisted VersionDecision plus its rationale.
type LedgerEntry struct {
	Decision    VersionDecision `json:"decision"`
	ImpactLevel RiskLevel       `json:"impact_level"`
	Patterns    []Pattern       `json:"patterns"`
	Triggers    []string        `json:"triggers"`
	Status      EntryStatus     `json:"status"`
	RecordedAt  time.Time       `json:"recorded_at"`
}

// Finalized reports whether this entry blocks further decisions for
// its commit hash. Pending entries may still be superseded.
func (e LedgerEntry) Finalized() bool {
	return e.Status != EntryPending
}

// LedgerStatistics summarizes the decision history for reporting.
type LedgerStatistics struct {
	Total         int          `json:"total"`
	Applied       int          `json:"applied"`
	Pending       int          `json:"pending"`
	Failed        int          `json:"failed"`
	ByTier        map[Tier]int `json:"by_tier"`
	AvgConfidence float64      `json:"avg_confidence"`
	LastDecision  time.Time    `json:"last_decision,omitempty"`
}
