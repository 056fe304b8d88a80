package decision

// Config holds the decision-rule confidence gates. The values are
// tunable knobs, kept as-is for behavioral parity with the deployed
// rule set.
type Config struct {
	// MajorConfidenceGate promotes a high-impact commit to a major
	// bump when the pattern confidence reaches it.
	MajorConfidenceGate float64 `yaml:"major_confidence_gate" env:"DECISION_MAJOR_CONFIDENCE_GATE"`
	// MinorConfidenceGate promotes a medium-impact commit to a minor
	// bump when the pattern confidence reaches it.
	MinorConfidenceGate float64 `yaml:"minor_confidence_gate" env:"DECISION_MINOR_CONFIDENCE_GATE"`
}

// SetDefaults sets default values for the gates.
func (c *Config) SetDefaults() {
	if c.MajorConfidenceGate == 0 {
		c.MajorConfidenceGate = 0.8
	}
	if c.MinorConfidenceGate == 0 {
		c.MinorConfidenceGate = 0.6
	}
}
