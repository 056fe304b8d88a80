// Package classify maps changed files and commits to impact scores.
// Classification is deterministic and side-effect free: the same input
// always produces the same impact, regardless of change status.
package classify

import (
	"path/filepath"
	"strings"

	"github.com/maxbolgarin/autover/internal/model"
)

// Classifier assigns impact scores based on the repository taxonomy.
type Classifier struct {
	cfg Config
}

// New creates a classifier with the given taxonomy.
func New(cfg Config) *Classifier {
	cfg.SetDefaults()
	return &Classifier{cfg: cfg}
}

// ClassifyFile maps one file change to its impact. The change status
// does not alter the score: deleting a critical file is exactly as
// impactful as modifying it.
func (c *Classifier) ClassifyFile(change model.FileChange) model.FileImpact {
	path := filepath.ToSlash(change.Path)

	var (
		score     float64
		subsystem model.Subsystem
	)
	switch {
	case c.isCritical(path):
		score, subsystem = scoreCritical, model.SubsystemCore
	case inAnyDir(path, c.cfg.RulesDirs):
		score, subsystem = scoreRules, model.SubsystemRules
	case inAnyDir(path, c.cfg.AgentsDirs):
		score, subsystem = scoreAgents, model.SubsystemAgents
	case inAnyDir(path, c.cfg.SkillsDirs):
		score, subsystem = scoreSkills, model.SubsystemSkills
	case strings.HasSuffix(strings.ToLower(path), ".md"):
		score, subsystem = scoreDocs, model.SubsystemDocs
	default:
		score, subsystem = scoreDefault, model.SubsystemGeneral
	}

	return model.FileImpact{
		Path:      change.Path,
		Status:    change.Status,
		Score:     score,
		Subsystem: subsystem,
		Risk:      RiskForScore(score),
	}
}

// AnalyzeCommit aggregates per-file impacts into one commit analysis.
// An empty input (e.g. an empty merge commit) yields zero impact.
func (c *Classifier) AnalyzeCommit(commitHash string, impacts []model.FileImpact) model.CommitImpactAnalysis {
	analysis := model.CommitImpactAnalysis{
		CommitHash:  commitHash,
		ImpactLevel: model.RiskLow,
	}
	if len(impacts) == 0 {
		return analysis
	}

	var sum float64
	seen := make(map[model.Subsystem]bool, len(impacts))
	for _, impact := range impacts {
		if impact.Score > analysis.MaxImpact {
			analysis.MaxImpact = impact.Score
		}
		sum += impact.Score

		if !seen[impact.Subsystem] {
			seen[impact.Subsystem] = true
			analysis.AffectedSystems = append(analysis.AffectedSystems, impact.Subsystem)
		}
		if impact.Risk == model.RiskHigh {
			analysis.RiskFactors = append(analysis.RiskFactors, impact.Path)
		}
	}
	analysis.AvgImpact = sum / float64(len(impacts))
	analysis.ImpactLevel = RiskForScore(analysis.MaxImpact)

	return analysis
}

// IsCritical reports whether the path matches the critical-file list.
func (c *Classifier) IsCritical(path string) bool {
	return c.isCritical(filepath.ToSlash(path))
}

// RiskForScore buckets a 0..10 impact score into a risk level.
func RiskForScore(score float64) model.RiskLevel {
	switch {
	case score >= highRiskThreshold:
		return model.RiskHigh
	case score >= mediumRiskThreshold:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}

func (c *Classifier) isCritical(path string) bool {
	for _, critical := range c.cfg.CriticalFiles {
		if path == critical || strings.Contains(path, critical) {
			return true
		}
	}
	return false
}

func inAnyDir(path string, dirs []string) bool {
	for _, dir := range dirs {
		if strings.HasPrefix(path, dir) || strings.Contains(path, "/"+dir) {
			return true
		}
	}
	return false
}
