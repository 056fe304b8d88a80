package model

import (
	"testing"

	"github.com/maxbolgarin/errm"
	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"disabled engine", ErrDisabled, ErrorConfiguration},
		{"not a repository", ErrNotRepository, ErrorConfiguration},
		{"corrupt manifest", ErrManifestInvalid, ErrorConfiguration},
		{"malformed commit", ErrInvalidCommit, ErrorInput},
		// A bad version on a manual override is caller input, not a
		// broken deployment.
		{"invalid version", ErrInvalidVersion, ErrorInput},
		{"duplicate entry", ErrDuplicateEntry, ErrorConflict},
		{"tag conflict", ErrTagConflict, ErrorConflict},
		{"call timeout", ErrCallTimeout, ErrorTransient},
		{"unknown error", errm.New("something else"), ErrorTransient},
		{"wrapped sentinel", errm.Wrap(ErrInvalidVersion, "1.2"), ErrorInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, ErrorTransient.IsRetryable())
	assert.False(t, ErrorConfiguration.IsRetryable())
	assert.False(t, ErrorInput.IsRetryable())
	assert.False(t, ErrorConflict.IsRetryable())
}
