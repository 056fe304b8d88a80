package model

import "time"

// FileChangeStatus describes what happened to a file within one commit.
type FileChangeStatus string

const (
	FileAdded    FileChangeStatus = "added"
	FileModified FileChangeStatus = "modified"
	FileDeleted  FileChangeStatus = "deleted"
)

// FileChange represents a single changed file in a commit.
// It is produced by the VCS backend and never mutated afterwards.
type FileChange struct {
	Path         string           `json:"path"`
	Status       FileChangeStatus `json:"status"`
	LinesAdded   int              `json:"lines_added"`
	LinesRemoved int              `json:"lines_removed"`
}

// CommitRecord represents a commit read from the VCS backend.
type CommitRecord struct {
	Hash        string       `json:"hash"`
	Author      string       `json:"author"`
	Message     string       `json:"message"`
	Timestamp   time.Time    `json:"timestamp"`
	FileChanges []FileChange `json:"file_changes,omitempty"`
}
