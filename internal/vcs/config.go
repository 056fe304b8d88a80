package vcs

import (
	"slices"

	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/lang"
)

// BackendType selects the VCS backend implementation.
type BackendType string

// Supported backend types.
const (
	GitCLI BackendType = "gitcli"
	GitHub BackendType = "github"
	GitLab BackendType = "gitlab"
)

var supportedBackendTypes = []BackendType{GitCLI, GitHub, GitLab}

// Config represents VCS backend configuration.
type Config struct {
	Type     BackendType `yaml:"type" env:"VCS_TYPE"`
	RepoPath string      `yaml:"repo_path" env:"VCS_REPO_PATH"`
	BaseURL  string      `yaml:"base_url" env:"VCS_BASE_URL"`
	Token    string      `yaml:"token" env:"VCS_TOKEN"`
	Project  string      `yaml:"project" env:"VCS_PROJECT"`
	Branch   string      `yaml:"branch" env:"VCS_BRANCH"`
}

// PrepareAndValidate sets defaults and checks required fields.
func (c *Config) PrepareAndValidate() error {
	c.Type = BackendType(lang.Check(string(c.Type), string(GitCLI)))
	if !slices.Contains(supportedBackendTypes, c.Type) {
		return errm.New("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case GitCLI:
		c.RepoPath = lang.Check(c.RepoPath, ".")
	case GitHub, GitLab:
		if c.Token == "" {
			return errm.New("token is required for %s backend", c.Type)
		}
		if c.Project == "" {
			return errm.New("project is required for %s backend", c.Type)
		}
	}
	return nil
}
