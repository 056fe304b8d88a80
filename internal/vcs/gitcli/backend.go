// Package gitcli implements the VCS backend port over the local git
// executable.
package gitcli

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/maxbolgarin/autover/internal/model"
	"github.com/maxbolgarin/autover/internal/model/interfaces"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/logze/v2"
)

var _ interfaces.VCSBackend = (*Backend)(nil)

const (
	// Record and field separators for log parsing; neither can appear
	// in author names or commit messages.
	fieldSep  = "\x1f"
	recordSep = "\x1e"

	probeTimeout = 10 * time.Second
)

// Backend runs git subprocess commands against one local checkout.
type Backend struct {
	repoPath string
	branch   string
	log      logze.Logger
}

// New creates a backend bound to the checkout at cfg.RepoPath. It
// probes the repository once; a non-repository path is a configuration
// error and the caller is expected to disable itself.
func New(cfg model.VCSConfig) (*Backend, error) {
	b := &Backend{
		repoPath: cfg.RepoPath,
		branch:   cfg.Branch,
		log:      logze.With("backend", "gitcli"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	if _, err := b.runGit(ctx, "rev-parse", "--git-dir"); err != nil {
		return nil, errm.Wrap(model.ErrNotRepository, cfg.RepoPath)
	}

	return b, nil
}

// ListRecentCommits returns up to n commits, newest first, without
// file changes.
func (b *Backend) ListRecentCommits(ctx context.Context, n int) ([]model.CommitRecord, error) {
	args := []string{"log", "--format=%H" + fieldSep + "%an" + fieldSep + "%at" + fieldSep + "%B" + recordSep, "-n", strconv.Itoa(n)}
	if b.branch != "" {
		args = append(args, b.branch)
	}
	out, err := b.runGit(ctx, args...)
	if err != nil {
		return nil, errm.Wrap(err, "git log")
	}

	var commits []model.CommitRecord
	for _, record := range strings.Split(out, recordSep) {
		record = strings.TrimSpace(record)
		if record == "" {
			continue
		}
		commit, err := parseCommitRecord(record)
		if err != nil {
			b.log.Warn("skipping malformed commit record", "error", err)
			continue
		}
		commits = append(commits, commit)
	}
	return commits, nil
}

// GetCommit returns one commit's metadata.
func (b *Backend) GetCommit(ctx context.Context, commitHash string) (model.CommitRecord, error) {
	out, err := b.runGit(ctx, "show", "-s",
		"--format=%H"+fieldSep+"%an"+fieldSep+"%at"+fieldSep+"%B", commitHash)
	if err != nil {
		return model.CommitRecord{}, errm.Wrap(err, "git show")
	}
	commit, err := parseCommitRecord(strings.TrimSpace(out))
	if err != nil {
		return model.CommitRecord{}, errm.Wrap(model.ErrInvalidCommit, commitHash)
	}
	return commit, nil
}

// GetFileChanges combines numstat (line counts) and name-status
// (change kind) output for one commit.
func (b *Backend) GetFileChanges(ctx context.Context, commitHash string) ([]model.FileChange, error) {
	// -M keeps rename detection on regardless of the host's diff.renames.
	numstat, err := b.runGit(ctx, "show", "--format=", "--numstat", "-M", commitHash)
	if err != nil {
		return nil, errm.Wrap(err, "git show --numstat")
	}
	nameStatus, err := b.runGit(ctx, "show", "--format=", "--name-status", "-M", commitHash)
	if err != nil {
		return nil, errm.Wrap(err, "git show --name-status")
	}

	statuses := parseNameStatus(nameStatus)

	var changes []model.FileChange
	for _, line := range strings.Split(numstat, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			continue
		}
		change := model.FileChange{
			Path:   resolveRenamedPath(parts[2]),
			Status: model.FileModified,
		}
		// Binary files show "-" counts.
		change.LinesAdded, _ = strconv.Atoi(parts[0])
		change.LinesRemoved, _ = strconv.Atoi(parts[1])
		if status, ok := statuses[change.Path]; ok {
			change.Status = status
		}
		changes = append(changes, change)
	}
	return changes, nil
}

// TagsPointingAt returns tags attached to the commit.
func (b *Backend) TagsPointingAt(ctx context.Context, commitHash string) ([]string, error) {
	out, err := b.runGit(ctx, "tag", "--points-at", commitHash)
	if err != nil {
		return nil, errm.Wrap(err, "git tag --points-at")
	}
	var tags []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			tags = append(tags, line)
		}
	}
	return tags, nil
}

// CreateTag writes an annotated tag at the commit.
func (b *Backend) CreateTag(ctx context.Context, name, message, commitHash string) error {
	if _, err := b.runGit(ctx, "tag", "-a", name, "-m", message, commitHash); err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return errm.Wrap(model.ErrTagConflict, name)
		}
		return errm.Wrap(err, "git tag")
	}
	b.log.Info("created tag", "tag", name, "commit", commitHash)
	return nil
}

// CreateBranch creates a branch at the commit, or at HEAD when the
// hash is empty.
func (b *Backend) CreateBranch(ctx context.Context, name, commitHash string) error {
	args := []string{"branch", name}
	if commitHash != "" {
		args = append(args, commitHash)
	}
	if _, err := b.runGit(ctx, args...); err != nil {
		return errm.Wrap(err, "git branch")
	}
	b.log.Info("created branch", "branch", name, "commit", commitHash)
	return nil
}

func (b *Backend) runGit(ctx context.Context, args ...string) (string, error) {
	fullArgs := append([]string{"-C", b.repoPath}, args...)
	cmd := exec.CommandContext(ctx, "git", fullArgs...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", errm.New("git %s failed: %s", args[0], strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", errm.Wrap(err, "run git "+args[0])
	}
	return string(out), nil
}

func parseCommitRecord(record string) (model.CommitRecord, error) {
	fields := strings.SplitN(record, fieldSep, 4)
	if len(fields) != 4 || fields[0] == "" {
		return model.CommitRecord{}, errm.New("expected 4 fields, got %d", len(fields))
	}
	unix, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return model.CommitRecord{}, errm.Wrap(err, "parse commit timestamp")
	}
	return model.CommitRecord{
		Hash:      fields[0],
		Author:    fields[1],
		Timestamp: time.Unix(unix, 0).UTC(),
		Message:   strings.TrimSpace(fields[3]),
	}, nil
}

// resolveRenamedPath turns numstat's rename notation into the new
// path: "old => new" for full renames, "dir/{a => b}/file" when only
// one segment changed.
func resolveRenamedPath(path string) string {
	if !strings.Contains(path, " => ") {
		return path
	}

	open := strings.Index(path, "{")
	if open != -1 {
		if end := strings.Index(path[open:], "}"); end != -1 {
			end += open
			_, newPart, _ := strings.Cut(path[open+1:end], " => ")
			resolved := path[:open] + newPart + path[end+1:]
			// An emptied segment leaves a doubled separator behind.
			return strings.ReplaceAll(resolved, "//", "/")
		}
	}

	_, newPath, _ := strings.Cut(path, " => ")
	return newPath
}

func parseNameStatus(out string) map[string]model.FileChangeStatus {
	statuses := make(map[string]model.FileChangeStatus)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			continue
		}
		// Renames and copies carry old and new paths; key on the new
		// one, matching the resolved numstat path.
		path := parts[len(parts)-1]
		switch parts[0][0] {
		case 'A', 'C':
			statuses[path] = model.FileAdded
		case 'D':
			statuses[path] = model.FileDeleted
		default:
			statuses[path] = model.FileModified
		}
	}
	return statuses
}
