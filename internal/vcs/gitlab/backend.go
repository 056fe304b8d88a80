// Package gitlab implements the VCS backend port over the GitLab API.
package gitlab

import (
	"context"
	"strings"

	"github.com/maxbolgarin/autover/internal/model"
	"github.com/maxbolgarin/autover/internal/model/interfaces"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/logze/v2"
	gitlab "gitlab.com/gitlab-org/api/client-go"
)

var _ interfaces.VCSBackend = (*Backend)(nil)

const defaultBaseURL = "https://gitlab.com"

// Backend talks to one GitLab project.
type Backend struct {
	client  *gitlab.Client
	project string
	branch  string
	log     logze.Logger
}

// New creates a GitLab backend for the configured project.
func New(cfg model.VCSConfig) (*Backend, error) {
	if cfg.Token == "" {
		return nil, errm.New("GitLab token is required")
	}
	if cfg.Project == "" {
		return nil, errm.New("GitLab project is required")
	}

	baseURL := lang.Check(cfg.BaseURL, defaultBaseURL)
	client, err := gitlab.NewClient(cfg.Token, gitlab.WithBaseURL(baseURL))
	if err != nil {
		return nil, errm.Wrap(err, "failed to create GitLab client")
	}

	return &Backend{
		client:  client,
		project: cfg.Project,
		branch:  cfg.Branch,
		log:     logze.With("backend", "gitlab"),
	}, nil
}

// ListRecentCommits returns up to n commits of the configured branch.
func (b *Backend) ListRecentCommits(ctx context.Context, n int) ([]model.CommitRecord, error) {
	opts := &gitlab.ListCommitsOptions{
		ListOptions: gitlab.ListOptions{PerPage: n},
	}
	if b.branch != "" {
		opts.RefName = gitlab.Ptr(b.branch)
	}
	commits, _, err := b.client.Commits.ListCommits(b.project, opts, gitlab.WithContext(ctx))
	if err != nil {
		return nil, errm.Wrap(err, "failed to list commits from GitLab")
	}

	records := make([]model.CommitRecord, 0, len(commits))
	for _, commit := range commits {
		records = append(records, convertCommit(commit))
	}
	return records, nil
}

// GetCommit returns one commit's metadata.
func (b *Backend) GetCommit(ctx context.Context, commitHash string) (model.CommitRecord, error) {
	commit, _, err := b.client.Commits.GetCommit(b.project, commitHash, nil, gitlab.WithContext(ctx))
	if err != nil {
		return model.CommitRecord{}, errm.Wrap(err, "failed to get commit from GitLab")
	}
	return convertCommit(commit), nil
}

// GetFileChanges returns the per-file change list of one commit. Line
// counts are derived from the diff text since the GitLab diff API does
// not report them directly.
func (b *Backend) GetFileChanges(ctx context.Context, commitHash string) ([]model.FileChange, error) {
	diffs, _, err := b.client.Commits.GetCommitDiff(b.project, commitHash, nil, gitlab.WithContext(ctx))
	if err != nil {
		return nil, errm.Wrap(err, "failed to get commit diff from GitLab")
	}

	changes := make([]model.FileChange, 0, len(diffs))
	for _, diff := range diffs {
		change := model.FileChange{
			Path:   diff.NewPath,
			Status: model.FileModified,
		}
		switch {
		case diff.NewFile:
			change.Status = model.FileAdded
		case diff.DeletedFile:
			change.Status = model.FileDeleted
			change.Path = lang.Check(diff.NewPath, diff.OldPath)
		}
		change.LinesAdded, change.LinesRemoved = countDiffLines(diff.Diff)
		changes = append(changes, change)
	}
	return changes, nil
}

// TagsPointingAt returns tags whose commit matches the hash.
func (b *Backend) TagsPointingAt(ctx context.Context, commitHash string) ([]string, error) {
	var tags []string
	opts := &gitlab.ListTagsOptions{ListOptions: gitlab.ListOptions{PerPage: 100}}
	for {
		page, resp, err := b.client.Tags.ListTags(b.project, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, errm.Wrap(err, "failed to list tags from GitLab")
		}
		for _, tag := range page {
			if tag.Commit != nil && tag.Commit.ID == commitHash {
				tags = append(tags, tag.Name)
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return tags, nil
}

// CreateTag writes an annotated tag at the commit.
func (b *Backend) CreateTag(ctx context.Context, name, message, commitHash string) error {
	opts := &gitlab.CreateTagOptions{
		TagName: gitlab.Ptr(name),
		Ref:     gitlab.Ptr(commitHash),
		Message: gitlab.Ptr(message),
	}
	if _, _, err := b.client.Tags.CreateTag(b.project, opts, gitlab.WithContext(ctx)); err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return errm.Wrap(model.ErrTagConflict, name)
		}
		return errm.Wrap(err, "failed to create tag on GitLab")
	}
	b.log.Info("created tag", "tag", name, "commit", commitHash)
	return nil
}

// CreateBranch creates a branch at the commit, or at the head of the
// configured branch when the hash is empty.
func (b *Backend) CreateBranch(ctx context.Context, name, commitHash string) error {
	ref := commitHash
	if ref == "" {
		ref = b.branch
	}
	if ref == "" {
		project, _, err := b.client.Projects.GetProject(b.project, nil, gitlab.WithContext(ctx))
		if err != nil {
			return errm.Wrap(err, "failed to get project from GitLab")
		}
		ref = project.DefaultBranch
	}

	opts := &gitlab.CreateBranchOptions{
		Branch: gitlab.Ptr(name),
		Ref:    gitlab.Ptr(ref),
	}
	if _, _, err := b.client.Branches.CreateBranch(b.project, opts, gitlab.WithContext(ctx)); err != nil {
		return errm.Wrap(err, "failed to create branch on GitLab")
	}
	b.log.Info("created branch", "branch", name, "ref", ref)
	return nil
}

func convertCommit(commit *gitlab.Commit) model.CommitRecord {
	return model.CommitRecord{
		Hash:      commit.ID,
		Author:    commit.AuthorName,
		Message:   strings.TrimSpace(commit.Message),
		Timestamp: lang.Deref(commit.CommittedDate),
	}
}

// countDiffLines counts added and removed lines in a unified diff
// fragment, skipping the +++/--- file headers.
func countDiffLines(diff string) (added, removed int) {
	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			added++
		case strings.HasPrefix(line, "-"):
			removed++
		}
	}
	return added, removed
}
