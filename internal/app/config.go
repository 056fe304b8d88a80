package app

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/maxbolgarin/autover/internal/classify"
	"github.com/maxbolgarin/autover/internal/decision"
	"github.com/maxbolgarin/autover/internal/engine"
	"github.com/maxbolgarin/autover/internal/escalate"
	"github.com/maxbolgarin/autover/internal/ledger"
	"github.com/maxbolgarin/autover/internal/server"
	"github.com/maxbolgarin/autover/internal/vcs"
	"github.com/maxbolgarin/autover/internal/watch"
	"github.com/maxbolgarin/errm"
)

const (
	defaultScanInterval   = 5 * time.Minute
	defaultHealthInterval = time.Minute
)

// Config represents the main application configuration.
type Config struct {
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	Server     server.Config   `yaml:"server"`
	VCS        vcs.Config      `yaml:"vcs"`
	Classify   classify.Config `yaml:"classify"`
	Decision   decision.Config `yaml:"decision"`
	Engine     engine.Config   `yaml:"engine"`
	Ledger     ledger.Config   `yaml:"ledger"`
	Escalation escalate.Config `yaml:"escalation"`
	Watch      watch.Config    `yaml:"watch"`
	Scheduler  SchedulerConfig `yaml:"scheduler"`
}

// SchedulerConfig holds the periodic task intervals.
type SchedulerConfig struct {
	// ScanInterval is how often recent commits are scanned.
	ScanInterval time.Duration `yaml:"scan_interval" env:"SCHEDULER_SCAN_INTERVAL"`
	// HealthInterval is how often component health is checked.
	HealthInterval time.Duration `yaml:"health_interval" env:"SCHEDULER_HEALTH_INTERVAL"`
}

// SetDefaults sets default values for the intervals.
func (c *SchedulerConfig) SetDefaults() {
	if c.ScanInterval == 0 {
		c.ScanInterval = defaultScanInterval
	}
	if c.HealthInterval == 0 {
		c.HealthInterval = defaultHealthInterval
	}
}

// LoadConfig reads the configuration from a YAML file with environment
// overrides, or from the environment alone when no path is given.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return Config{}, errm.Wrap(err, "read config")
	}

	cfg.Scheduler.SetDefaults()
	return cfg, nil
}
