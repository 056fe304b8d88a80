package model

// Pattern is a detected textual or structural version-intent signal.
type Pattern string

const (
	PatternMajor      Pattern = "major"
	PatternMinor      Pattern = "minor"
	PatternPatch      Pattern = "patch"
	PatternNewAgent   Pattern = "new_agent"
	PatternNewSkill   Pattern = "new_skill"
	PatternCoreChange Pattern = "core_change"
)

// PatternAnalysis is the output of scanning a commit message and its
// file-change shape for version-intent signals.
type PatternAnalysis struct {
	Patterns   []Pattern `json:"patterns"`
	Confidence float64   `json:"confidence"` // 0..1, categorical
	Triggers   []string  `json:"triggers"`
}

// Has reports whether the analysis contains the given pattern.
func (a PatternAnalysis) Has(p Pattern) bool {
	for _, got := range a.Patterns {
		if got == p {
			return true
		}
	}
	return false
}
