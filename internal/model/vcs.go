package model

// VCSConfig is the backend-specific configuration handed over by the
// backend factory.
type VCSConfig struct {
	RepoPath string // local checkout (gitcli)
	BaseURL  string // API base URL (remote backends)
	Token    string
	Project  string // "owner/repo" or project path/id
	Branch   string // branch to scan; backend default when empty
}
