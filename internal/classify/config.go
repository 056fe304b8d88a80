package classify

// Subsystem scores from the classification table. Evaluated in
// priority order, first match wins.
const (
	scoreCritical = 10
	scoreRules    = 8
	scoreAgents   = 6
	scoreSkills   = 5
	scoreDocs     = 2
	scoreDefault  = 3
)

// Risk bucket thresholds, shared by file and commit classification.
const (
	highRiskThreshold   = 8
	mediumRiskThreshold = 5
)

// Config describes the repository path taxonomy.
type Config struct {
	// CriticalFiles are matched as path substrings, e.g. the project
	// manifest or the core engine entrypoint.
	CriticalFiles []string `yaml:"critical_files" env:"CLASSIFY_CRITICAL_FILES"`
	RulesDirs     []string `yaml:"rules_dirs" env:"CLASSIFY_RULES_DIRS"`
	AgentsDirs    []string `yaml:"agents_dirs" env:"CLASSIFY_AGENTS_DIRS"`
	SkillsDirs    []string `yaml:"skills_dirs" env:"CLASSIFY_SKILLS_DIRS"`
}

// SetDefaults sets default values for the taxonomy.
func (c *Config) SetDefaults() {
	if len(c.CriticalFiles) == 0 {
		c.CriticalFiles = []string{
			"package.json",
			"src/core/engine",
			"rules/core-rules.md",
		}
	}
	if len(c.RulesDirs) == 0 {
		c.RulesDirs = []string{"rules/"}
	}
	if len(c.AgentsDirs) == 0 {
		c.AgentsDirs = []string{"agents/"}
	}
	if len(c.SkillsDirs) == 0 {
		c.SkillsDirs = []string{"skills/"}
	}
}
