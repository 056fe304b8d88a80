package model

// RiskLevel is the coarse classification of how consequential a change is.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Subsystem tags the part of the repository a file belongs to.
type Subsystem string

const (
	SubsystemCore    Subsystem = "core"
	SubsystemRules   Subsystem = "rules"
	SubsystemAgents  Subsystem = "agents"
	SubsystemSkills  Subsystem = "skills"
	SubsystemDocs    Subsystem = "docs"
	SubsystemGeneral Subsystem = "general"
)

// FileImpact is the classification result for a single changed file.
type FileImpact struct {
	Path      string           `json:"path"`
	Status    FileChangeStatus `json:"status"`
	Score     float64          `json:"score"` // 0..10
	Subsystem Subsystem        `json:"subsystem"`
	Risk      RiskLevel        `json:"risk"`
}

// CommitImpactAnalysis aggregates the file impacts of one commit.
type CommitImpactAnalysis struct {
	CommitHash      string      `json:"commit_hash"`
	MaxImpact       float64     `json:"max_impact"`
	AvgImpact       float64     `json:"avg_impact"`
	ImpactLevel     RiskLevel   `json:"impact_level"`
	AffectedSystems []Subsystem `json:"affected_systems"`
	RiskFactors     []string    `json:"risk_factors"` // paths of high-risk files
}
