package model

import "time"

// EscalationStatus is the terminal state of a change-risk escalation.
type EscalationStatus string

const (
	EscalationCreated      EscalationStatus = "created"
	EscalationFlagged      EscalationStatus = "flagged"
	EscalationLogged       EscalationStatus = "logged"
	EscalationManualReview EscalationStatus = "manual-review"
)

// TestEscalation is the testing response produced for one file impact.
type TestEscalation struct {
	Path      string           `json:"path"`
	Risk      RiskLevel        `json:"risk"`
	BranchRef string           `json:"branch_ref,omitempty"`
	Status    EscalationStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}
