// Package github implements the VCS backend port over the GitHub API,
// for running the engine against a remote repository instead of a
// local checkout.
package github

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/go-github/v57/github"
	"github.com/maxbolgarin/autover/internal/model"
	"github.com/maxbolgarin/autover/internal/model/interfaces"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/logze/v2"
	"golang.org/x/oauth2"
)

var _ interfaces.VCSBackend = (*Backend)(nil)

const tagsPageSize = 100

// Backend talks to one GitHub repository.
type Backend struct {
	client *github.Client
	owner  string
	repo   string
	branch string
	log    logze.Logger
}

// New creates a GitHub backend for the "owner/repo" project.
func New(cfg model.VCSConfig) (*Backend, error) {
	if cfg.Token == "" {
		return nil, errm.New("GitHub token is required")
	}
	owner, repo, ok := strings.Cut(cfg.Project, "/")
	if !ok || owner == "" || repo == "" {
		return nil, errm.New("project must be in owner/repo format: %s", cfg.Project)
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	tc := oauth2.NewClient(context.Background(), ts)
	client := github.NewClient(tc)

	// GitHub Enterprise uses a custom base URL.
	if cfg.BaseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(cfg.BaseURL, cfg.BaseURL)
		if err != nil {
			return nil, errm.Wrap(err, "failed to create GitHub Enterprise client")
		}
	}

	return &Backend{
		client: client,
		owner:  owner,
		repo:   repo,
		branch: cfg.Branch,
		log:    logze.With("backend", "github"),
	}, nil
}

// ListRecentCommits returns up to n commits of the configured branch.
func (b *Backend) ListRecentCommits(ctx context.Context, n int) ([]model.CommitRecord, error) {
	opts := &github.CommitsListOptions{
		SHA:         b.branch,
		ListOptions: github.ListOptions{PerPage: n},
	}
	commits, _, err := b.client.Repositories.ListCommits(ctx, b.owner, b.repo, opts)
	if err != nil {
		return nil, errm.Wrap(err, "failed to list commits from GitHub")
	}

	records := make([]model.CommitRecord, 0, len(commits))
	for _, commit := range commits {
		records = append(records, b.convertCommit(commit))
	}
	return records, nil
}

// GetCommit returns one commit's metadata.
func (b *Backend) GetCommit(ctx context.Context, commitHash string) (model.CommitRecord, error) {
	commit, _, err := b.client.Repositories.GetCommit(ctx, b.owner, b.repo, commitHash, nil)
	if err != nil {
		return model.CommitRecord{}, errm.Wrap(err, "failed to get commit from GitHub")
	}
	return b.convertCommit(commit), nil
}

// GetFileChanges returns the per-file change list of one commit.
func (b *Backend) GetFileChanges(ctx context.Context, commitHash string) ([]model.FileChange, error) {
	commit, _, err := b.client.Repositories.GetCommit(ctx, b.owner, b.repo, commitHash, nil)
	if err != nil {
		return nil, errm.Wrap(err, "failed to get commit from GitHub")
	}

	changes := make([]model.FileChange, 0, len(commit.Files))
	for _, file := range commit.Files {
		changes = append(changes, model.FileChange{
			Path:         file.GetFilename(),
			Status:       convertStatus(file.GetStatus()),
			LinesAdded:   file.GetAdditions(),
			LinesRemoved: file.GetDeletions(),
		})
	}
	return changes, nil
}

// TagsPointingAt returns tags whose commit matches the hash.
func (b *Backend) TagsPointingAt(ctx context.Context, commitHash string) ([]string, error) {
	var tags []string
	opts := &github.ListOptions{PerPage: tagsPageSize}
	for {
		page, resp, err := b.client.Repositories.ListTags(ctx, b.owner, b.repo, opts)
		if err != nil {
			return nil, errm.Wrap(err, "failed to list tags from GitHub")
		}
		for _, tag := range page {
			if tag.GetCommit().GetSHA() == commitHash {
				tags = append(tags, tag.GetName())
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return tags, nil
}

// CreateTag writes an annotated tag object plus its ref.
func (b *Backend) CreateTag(ctx context.Context, name, message, commitHash string) error {
	tag := &github.Tag{
		Tag:     github.String(name),
		Message: github.String(message),
		Object: &github.GitObject{
			Type: github.String("commit"),
			SHA:  github.String(commitHash),
		},
	}
	created, _, err := b.client.Git.CreateTag(ctx, b.owner, b.repo, tag)
	if err != nil {
		return errm.Wrap(err, "failed to create tag object on GitHub")
	}

	ref := &github.Reference{
		Ref:    github.String("refs/tags/" + name),
		Object: &github.GitObject{SHA: created.SHA},
	}
	if _, _, err := b.client.Git.CreateRef(ctx, b.owner, b.repo, ref); err != nil {
		if isAlreadyExists(err) {
			return errm.Wrap(model.ErrTagConflict, name)
		}
		return errm.Wrap(err, "failed to create tag ref on GitHub")
	}

	b.log.Info("created tag", "tag", name, "commit", commitHash)
	return nil
}

// CreateBranch creates a branch ref at the commit, or at the head of
// the configured branch when the hash is empty.
func (b *Backend) CreateBranch(ctx context.Context, name, commitHash string) error {
	sha := commitHash
	if sha == "" {
		head, err := b.headSHA(ctx)
		if err != nil {
			return err
		}
		sha = head
	}

	ref := &github.Reference{
		Ref:    github.String("refs/heads/" + name),
		Object: &github.GitObject{SHA: github.String(sha)},
	}
	if _, _, err := b.client.Git.CreateRef(ctx, b.owner, b.repo, ref); err != nil {
		return errm.Wrap(err, "failed to create branch on GitHub")
	}

	b.log.Info("created branch", "branch", name, "commit", sha)
	return nil
}

func (b *Backend) headSHA(ctx context.Context) (string, error) {
	branch := b.branch
	if branch == "" {
		repo, _, err := b.client.Repositories.Get(ctx, b.owner, b.repo)
		if err != nil {
			return "", errm.Wrap(err, "failed to get repository from GitHub")
		}
		branch = repo.GetDefaultBranch()
	}
	info, _, err := b.client.Repositories.GetBranch(ctx, b.owner, b.repo, branch, 1)
	if err != nil {
		return "", errm.Wrap(err, "failed to get branch head from GitHub")
	}
	return info.GetCommit().GetSHA(), nil
}

func (b *Backend) convertCommit(commit *github.RepositoryCommit) model.CommitRecord {
	return model.CommitRecord{
		Hash:      commit.GetSHA(),
		Author:    commit.GetCommit().GetAuthor().GetName(),
		Message:   commit.GetCommit().GetMessage(),
		Timestamp: commit.GetCommit().GetAuthor().GetDate().Time,
	}
}

func convertStatus(status string) model.FileChangeStatus {
	switch status {
	case "added", "copied":
		return model.FileAdded
	case "removed":
		return model.FileDeleted
	default:
		return model.FileModified
	}
}

func isAlreadyExists(err error) bool {
	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) {
		return errResp.Response != nil && errResp.Response.StatusCode == http.StatusUnprocessableEntity
	}
	return false
}
