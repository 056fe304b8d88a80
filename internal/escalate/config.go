package escalate

import (
	"time"

	"github.com/maxbolgarin/lang"
)

const (
	defaultBranchPrefix = "test/"
	defaultCallTimeout  = 30 * time.Second
)

// Config controls the testing escalation behavior.
type Config struct {
	// NotifyURL is the integrity-monitoring webhook for high-risk
	// escalations. Empty disables notification delivery.
	NotifyURL string `yaml:"notify_url" env:"ESCALATE_NOTIFY_URL"`
	// BranchPrefix prefixes isolated test branch names.
	BranchPrefix string `yaml:"branch_prefix" env:"ESCALATE_BRANCH_PREFIX"`
	// CallTimeout guards branch creation against a hung backend so a
	// stuck call cannot stall the file-event loop.
	CallTimeout time.Duration `yaml:"call_timeout" env:"ESCALATE_CALL_TIMEOUT"`
}

// PrepareAndValidate sets default values.
func (c *Config) PrepareAndValidate() error {
	c.BranchPrefix = lang.Check(c.BranchPrefix, defaultBranchPrefix)
	if c.CallTimeout == 0 {
		c.CallTimeout = defaultCallTimeout
	}
	return nil
}
