package interfaces

import (
	"context"

	"github.com/maxbolgarin/autover/internal/model"
)

// VCSBackend defines the port to the version control system. A backend
// is bound to exactly one repository at construction time. All calls
// may block on subprocess or network I/O and must honor ctx deadlines.
type VCSBackend interface {
	// ListRecentCommits returns up to n most recent commits, newest
	// first. FileChanges may be left empty; use GetFileChanges.
	ListRecentCommits(ctx context.Context, n int) ([]model.CommitRecord, error)

	// GetCommit returns one commit's metadata without file changes.
	GetCommit(ctx context.Context, commitHash string) (model.CommitRecord, error)

	// GetFileChanges returns the per-file change list of one commit.
	GetFileChanges(ctx context.Context, commitHash string) ([]model.FileChange, error)

	// TagsPointingAt returns the names of tags attached to the commit.
	TagsPointingAt(ctx context.Context, commitHash string) ([]string, error)

	// CreateTag writes an annotated tag at the commit.
	CreateTag(ctx context.Context, name, message, commitHash string) error

	// CreateBranch creates a branch at the commit. HEAD if hash is empty.
	CreateBranch(ctx context.Context, name, commitHash string) error
}

// LedgerStore persists version decisions. Implementations must keep
// insertion order for List and survive process restarts.
type LedgerStore interface {
	Append(entry model.LedgerEntry) error
	// Latest returns the most recently appended entry for the hash.
	Latest(commitHash string) (model.LedgerEntry, bool)
	List() []model.LedgerEntry
}

// Notifier delivers escalation notices to the integrity-monitoring
// collaborator. Implementations must be safe for concurrent use.
type Notifier interface {
	NotifyEscalation(ctx context.Context, escalation model.TestEscalation) error
}

// StatusReporter is implemented by every long-lived component so the
// ops surface can aggregate health without runtime probing.
type StatusReporter interface {
	Status() model.ComponentStatus
}
