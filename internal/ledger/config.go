package ledger

import "github.com/maxbolgarin/lang"

const (
	defaultStorePath      = ".autover/ledger.jsonl"
	defaultManifestPath   = "autover.json"
	defaultInitialVersion = "0.1.0"
)

// Config holds ledger persistence locations.
type Config struct {
	// StorePath is the append-only decisions file.
	StorePath string `yaml:"store_path" env:"LEDGER_STORE_PATH"`
	// ManifestPath is the project manifest carrying the mutable
	// current version.
	ManifestPath string `yaml:"manifest_path" env:"LEDGER_MANIFEST_PATH"`
	// InitialVersion seeds the manifest when it does not exist yet.
	InitialVersion string `yaml:"initial_version" env:"LEDGER_INITIAL_VERSION"`
}

// PrepareAndValidate sets default values.
func (c *Config) PrepareAndValidate() error {
	c.StorePath = lang.Check(c.StorePath, defaultStorePath)
	c.ManifestPath = lang.Check(c.ManifestPath, defaultManifestPath)
	c.InitialVersion = lang.Check(c.InitialVersion, defaultInitialVersion)
	return nil
}
