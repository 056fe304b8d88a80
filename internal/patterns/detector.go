// Package patterns scans commit messages and file-change shapes for
// version-intent signals.
package patterns

import (
	"fmt"
	"strings"

	"github.com/maxbolgarin/autover/internal/classify"
	"github.com/maxbolgarin/autover/internal/model"
)

// Categorical confidence per strongest matched message keyword. The
// evaluation order major -> minor -> patch is a specified tie-break:
// when a message matches several groups the strongest silently wins.
const (
	majorConfidence    = 0.9
	minorConfidence    = 0.7
	patchConfidence    = 0.5
	baselineConfidence = 0.35
)

// keywordGroups are matched as case-insensitive substrings against the
// normalized message, with underscore and space variants unified.
var keywordGroups = []struct {
	pattern  model.Pattern
	keywords []string
}{
	{model.PatternMajor, []string{"breaking", "major", "architectural"}},
	{model.PatternMinor, []string{"feature", "enhancement", "improvement", "new"}},
	{model.PatternPatch, []string{"fix", "bug", "patch", "chore"}},
}

// Detector detects version-intent patterns in commits.
type Detector struct {
	classifier *classify.Classifier
}

// New creates a detector sharing the classifier's path taxonomy.
func New(classifier *classify.Classifier) *Detector {
	return &Detector{classifier: classifier}
}

// Detect scans the commit message and file changes. A missing or
// malformed message is not an error: it simply yields no message
// patterns and the baseline confidence.
func (d *Detector) Detect(message string, changes []model.FileChange) model.PatternAnalysis {
	analysis := model.PatternAnalysis{Confidence: baselineConfidence}

	normalized := normalize(message)
	for _, group := range keywordGroups {
		matched := false
		for _, keyword := range group.keywords {
			if strings.Contains(normalized, normalize(keyword)) {
				matched = true
				analysis.Triggers = append(analysis.Triggers,
					fmt.Sprintf("message contains %q", keyword))
			}
		}
		if matched {
			analysis.Patterns = append(analysis.Patterns, group.pattern)
		}
	}

	d.detectStructural(&analysis, changes)

	// First match in fixed order decides the confidence.
	switch {
	case analysis.Has(model.PatternMajor):
		analysis.Confidence = majorConfidence
	case analysis.Has(model.PatternMinor):
		analysis.Confidence = minorConfidence
	case analysis.Has(model.PatternPatch):
		analysis.Confidence = patchConfidence
	}

	return analysis
}

// detectStructural adds patterns derived from the file-change shape,
// independent of the message.
func (d *Detector) detectStructural(analysis *model.PatternAnalysis, changes []model.FileChange) {
	for _, change := range changes {
		impact := d.classifier.ClassifyFile(change)

		switch {
		case change.Status == model.FileAdded && impact.Subsystem == model.SubsystemAgents:
			addPattern(analysis, model.PatternNewAgent, "added agent file "+change.Path)
		case change.Status == model.FileAdded && impact.Subsystem == model.SubsystemSkills:
			addPattern(analysis, model.PatternNewSkill, "added skill file "+change.Path)
		case change.Status == model.FileModified && impact.Subsystem == model.SubsystemCore:
			addPattern(analysis, model.PatternCoreChange, "modified core file "+change.Path)
		}
	}
}

func addPattern(analysis *model.PatternAnalysis, pattern model.Pattern, trigger string) {
	analysis.Triggers = append(analysis.Triggers, trigger)
	if !analysis.Has(pattern) {
		analysis.Patterns = append(analysis.Patterns, pattern)
	}
}

// normalize lowercases and unifies underscore/space separated variants.
func normalize(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "_", " "))
}
