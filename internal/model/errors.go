package model

import "errors"

// Sentinel errors shared across the engine. Wrapped with errm at call
// sites, matched with errors.Is when classifying.
var (
	// ErrDisabled is returned by every operation after the engine has
	// latched into disabled mode (no repository / unreachable backend).
	ErrDisabled = errors.New("versioning engine is disabled")

	// ErrNotRepository means the configured path is not a git repository.
	ErrNotRepository = errors.New("path is not a git repository")

	// ErrDuplicateEntry means a finalized ledger entry already exists
	// for the commit hash.
	ErrDuplicateEntry = errors.New("finalized ledger entry already exists")

	// ErrTagConflict means the tag already exists on the backend.
	ErrTagConflict = errors.New("tag already exists")

	// ErrInvalidVersion means a version string is not X.Y.Z semver.
	ErrInvalidVersion = errors.New("invalid semantic version")

	// ErrManifestInvalid means the version manifest is unusable; manual
	// repair is required before decisions can resume.
	ErrManifestInvalid = errors.New("manifest has no valid version")

	// ErrInvalidCommit means commit data from the backend is malformed.
	ErrInvalidCommit = errors.New("invalid commit data")

	// ErrCallTimeout means a VCS backend call exceeded its deadline.
	ErrCallTimeout = errors.New("vcs call timed out")
)

// ErrorClass groups errors by how the caller should react to them.
type ErrorClass string

const (
	// ErrorConfiguration: no repository or unusable backend, will not
	// recover without external intervention.
	ErrorConfiguration ErrorClass = "configuration"
	// ErrorInput: malformed commit data or a bad user-supplied version,
	// retrying changes nothing.
	ErrorInput ErrorClass = "input"
	// ErrorConflict: duplicate tag or ledger entry, state already settled.
	ErrorConflict ErrorClass = "conflict"
	// ErrorTransient: subprocess or timeout failure, safe to retry on
	// the next tick.
	ErrorTransient ErrorClass = "transient"
)

// ClassifyError maps an error to its class. Unknown errors are treated
// as transient so the periodic loop keeps retrying them.
func ClassifyError(err error) ErrorClass {
	switch {
	case errors.Is(err, ErrDisabled), errors.Is(err, ErrNotRepository), errors.Is(err, ErrManifestInvalid):
		return ErrorConfiguration
	case errors.Is(err, ErrInvalidCommit), errors.Is(err, ErrInvalidVersion):
		return ErrorInput
	case errors.Is(err, ErrDuplicateEntry), errors.Is(err, ErrTagConflict):
		return ErrorConflict
	default:
		return ErrorTransient
	}
}

// IsRetryable reports whether an error of the given class may succeed
// on a later attempt without external intervention.
func (c ErrorClass) IsRetryable() bool {
	return c == ErrorTransient
}
