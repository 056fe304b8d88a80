package filestore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/maxbolgarin/autover/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntry(hash string, status model.EntryStatus) model.LedgerEntry {
	return model.LedgerEntry{
		Decision: model.VersionDecision{
			CommitHash:     hash,
			CurrentVersion: "1.0.0",
			Tier:           model.TierPatch,
			NewVersion:     "1.0.1",
			Confidence:     0.65,
			Timestamp:      time.Now().UTC().Truncate(time.Second),
			Provenance:     model.ProvenanceAuto,
		},
		ImpactLevel: model.RiskLow,
		Status:      status,
		RecordedAt:  time.Now().UTC().Truncate(time.Second),
	}
}

func TestAppendAndReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "ledger.jsonl")

	store, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, store.Append(testEntry("aaa", model.EntryApplied)))
	require.NoError(t, store.Append(testEntry("bbb", model.EntryPending)))
	require.NoError(t, store.Close())

	// Reopen and replay from disk.
	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	entries := store.List()
	require.Len(t, entries, 2)
	assert.Equal(t, "aaa", entries[0].Decision.CommitHash)
	assert.Equal(t, "bbb", entries[1].Decision.CommitHash)
	assert.Equal(t, model.EntryApplied, entries[0].Status)

	entry, ok := store.Latest("bbb")
	require.True(t, ok)
	assert.Equal(t, model.EntryPending, entry.Status)

	_, ok = store.Latest("missing")
	assert.False(t, ok)
}

func TestLatestTracksSupersededEntries(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "ledger.jsonl"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Append(testEntry("aaa", model.EntryPending)))
	require.NoError(t, store.Append(testEntry("aaa", model.EntryApplied)))

	entry, ok := store.Latest("aaa")
	require.True(t, ok)
	assert.Equal(t, model.EntryApplied, entry.Status)
	assert.Len(t, store.List(), 2)
}

func TestReplaySkipsTornLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(testEntry("aaa", model.EntryApplied)))
	require.NoError(t, store.Close())

	// Simulate a crash mid-write.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"decision":{"commit_ha`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	assert.Len(t, store.List(), 1)
}

func TestListReturnsCopy(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "ledger.jsonl"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Append(testEntry("aaa", model.EntryApplied)))

	entries := store.List()
	entries[0].Decision.CommitHash = "mutated"

	fresh := store.List()
	assert.Equal(t, "aaa", fresh[0].Decision.CommitHash)
}
