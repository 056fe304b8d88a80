package engine

import (
	"time"

	"github.com/maxbolgarin/lang"
)

const (
	defaultScanLimit          = 20
	defaultAutoApplyThreshold = 0.6
	defaultVCSCallTimeout     = 30 * time.Second
	defaultPoolSize           = 4
	defaultTagPrefix          = "v"
)

// Config controls the analysis engine.
type Config struct {
	// ScanLimit caps how many recent commits a periodic scan inspects.
	ScanLimit int `yaml:"scan_limit" env:"ENGINE_SCAN_LIMIT"`
	// AutoApplyThreshold is the minimum confidence required to write a
	// version tag without human review.
	AutoApplyThreshold float64 `yaml:"auto_apply_threshold" env:"ENGINE_AUTO_APPLY_THRESHOLD"`
	// VCSCallTimeout guards every blocking backend call against a hung
	// external process.
	VCSCallTimeout time.Duration `yaml:"vcs_call_timeout" env:"ENGINE_VCS_CALL_TIMEOUT"`
	// PoolSize bounds concurrent backend calls.
	PoolSize int `yaml:"pool_size" env:"ENGINE_POOL_SIZE"`
	// TagPrefix prefixes version tag names, e.g. "v1.2.3".
	TagPrefix string `yaml:"tag_prefix" env:"ENGINE_TAG_PREFIX"`
}

// PrepareAndValidate sets default values.
func (c *Config) PrepareAndValidate() error {
	c.ScanLimit = lang.Check(c.ScanLimit, defaultScanLimit)
	if c.AutoApplyThreshold == 0 {
		c.AutoApplyThreshold = defaultAutoApplyThreshold
	}
	if c.VCSCallTimeout == 0 {
		c.VCSCallTimeout = defaultVCSCallTimeout
	}
	c.PoolSize = lang.Check(c.PoolSize, defaultPoolSize)
	c.TagPrefix = lang.Check(c.TagPrefix, defaultTagPrefix)
	return nil
}
