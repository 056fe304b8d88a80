package gitcli

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/maxbolgarin/autover/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initTestRepo creates a throwaway repository with two commits.
func initTestRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}
	dir := t.TempDir()

	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
	}

	run("init")
	run("config", "user.email", "dev@example.com")
	run("config", "user.name", "dev")

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "rules"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rules", "naming.md"), []byte("one\n"), 0o644))
	run("add", ".")
	run("commit", "-m", "initial commit")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "rules", "naming.md"), []byte("one\ntwo\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "agents.md"), []byte("agent\n"), 0o644))
	run("add", ".")
	run("commit", "-m", "fix: extend naming rules")

	return dir
}

func TestNewRejectsNonRepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}

	_, err := New(model.VCSConfig{RepoPath: t.TempDir()})
	assert.ErrorIs(t, err, model.ErrNotRepository)
}

func TestListRecentCommits(t *testing.T) {
	dir := initTestRepo(t)
	b, err := New(model.VCSConfig{RepoPath: dir})
	require.NoError(t, err)

	commits, err := b.ListRecentCommits(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, commits, 2)

	assert.Equal(t, "fix: extend naming rules", commits[0].Message)
	assert.Equal(t, "initial commit", commits[1].Message)
	assert.Equal(t, "dev", commits[0].Author)
	assert.NotEmpty(t, commits[0].Hash)
	assert.False(t, commits[0].Timestamp.IsZero())
}

func TestGetCommit(t *testing.T) {
	dir := initTestRepo(t)
	b, err := New(model.VCSConfig{RepoPath: dir})
	require.NoError(t, err)

	commits, err := b.ListRecentCommits(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, commits, 1)

	commit, err := b.GetCommit(context.Background(), commits[0].Hash)
	require.NoError(t, err)
	assert.Equal(t, commits[0].Hash, commit.Hash)
	assert.Equal(t, "fix: extend naming rules", commit.Message)

	_, err = b.GetCommit(context.Background(), "0000000000000000000000000000000000000000")
	assert.Error(t, err)
}

func TestGetFileChanges(t *testing.T) {
	dir := initTestRepo(t)
	b, err := New(model.VCSConfig{RepoPath: dir})
	require.NoError(t, err)

	commits, err := b.ListRecentCommits(context.Background(), 1)
	require.NoError(t, err)

	changes, err := b.GetFileChanges(context.Background(), commits[0].Hash)
	require.NoError(t, err)
	require.Len(t, changes, 2)

	byPath := make(map[string]model.FileChange)
	for _, change := range changes {
		byPath[change.Path] = change
	}

	modified := byPath["rules/naming.md"]
	assert.Equal(t, model.FileModified, modified.Status)
	assert.Equal(t, 1, modified.LinesAdded)
	assert.Equal(t, 0, modified.LinesRemoved)

	added := byPath["agents.md"]
	assert.Equal(t, model.FileAdded, added.Status)
	assert.Equal(t, 1, added.LinesAdded)
}

func TestResolveRenamedPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"rules/naming.md", "rules/naming.md"},
		{"old.md => new.md", "new.md"},
		{"rules/old.md => docs/new.md", "docs/new.md"},
		{"rules/{old.md => new.md}", "rules/new.md"},
		{"src/{core => engine}/main.go", "src/engine/main.go"},
		{"src/{core => }/main.go", "src/main.go"},
		{"src/{ => core}/main.go", "src/core/main.go"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, resolveRenamedPath(tt.in), "input %q", tt.in)
	}
}

func TestGetFileChangesRename(t *testing.T) {
	dir := initTestRepo(t)
	b, err := New(model.VCSConfig{RepoPath: dir})
	require.NoError(t, err)

	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
	}
	run("mv", "rules/naming.md", "rules/style.md")
	run("commit", "-m", "chore: rename the naming rules")

	commits, err := b.ListRecentCommits(context.Background(), 1)
	require.NoError(t, err)

	changes, err := b.GetFileChanges(context.Background(), commits[0].Hash)
	require.NoError(t, err)
	require.Len(t, changes, 1)

	assert.Equal(t, "rules/style.md", changes[0].Path)
	assert.Equal(t, model.FileModified, changes[0].Status)
}

func TestTagLifecycle(t *testing.T) {
	dir := initTestRepo(t)
	b, err := New(model.VCSConfig{RepoPath: dir})
	require.NoError(t, err)

	commits, err := b.ListRecentCommits(context.Background(), 1)
	require.NoError(t, err)
	hash := commits[0].Hash

	tags, err := b.TagsPointingAt(context.Background(), hash)
	require.NoError(t, err)
	assert.Empty(t, tags)

	require.NoError(t, b.CreateTag(context.Background(), "v0.1.1", "patch release", hash))

	tags, err = b.TagsPointingAt(context.Background(), hash)
	require.NoError(t, err)
	assert.Equal(t, []string{"v0.1.1"}, tags)

	err = b.CreateTag(context.Background(), "v0.1.1", "again", hash)
	assert.ErrorIs(t, err, model.ErrTagConflict)
}

func TestCreateBranch(t *testing.T) {
	dir := initTestRepo(t)
	b, err := New(model.VCSConfig{RepoPath: dir})
	require.NoError(t, err)

	require.NoError(t, b.CreateBranch(context.Background(), "test/rules-naming-md-1700000000", ""))

	out, err := exec.Command("git", "-C", dir, "branch", "--list", "test/*").Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "test/rules-naming-md-1700000000")
}
