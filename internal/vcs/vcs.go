// Package vcs selects and constructs the VCS backend. The rest of the
// engine talks to the backend only through the interfaces.VCSBackend
// port and has no knowledge of how commits and diffs are fetched.
package vcs

import (
	"github.com/maxbolgarin/autover/internal/model"
	"github.com/maxbolgarin/autover/internal/model/interfaces"
	"github.com/maxbolgarin/autover/internal/vcs/gitcli"
	"github.com/maxbolgarin/autover/internal/vcs/github"
	"github.com/maxbolgarin/autover/internal/vcs/gitlab"
	"github.com/maxbolgarin/erro"
)

// NewBackend creates a VCS backend based on the configuration.
func NewBackend(cfg Config) (interfaces.VCSBackend, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, erro.Wrap(err, "validate config")
	}

	cfgForBackend := model.VCSConfig{
		RepoPath: cfg.RepoPath,
		BaseURL:  cfg.BaseURL,
		Token:    cfg.Token,
		Project:  cfg.Project,
		Branch:   cfg.Branch,
	}

	var backend interfaces.VCSBackend
	var err error

	switch cfg.Type {
	case GitCLI:
		backend, err = gitcli.New(cfgForBackend)
	case GitHub:
		backend, err = github.New(cfgForBackend)
	case GitLab:
		backend, err = gitlab.New(cfgForBackend)
	default:
		return nil, erro.New("unsupported backend type: %s", cfg.Type)
	}
	if err != nil {
		return nil, erro.Wrap(err, "failed to create backend")
	}

	return backend, nil
}
