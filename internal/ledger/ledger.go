// Package ledger owns the durable record of version decisions. Entries
// are append-only and keyed by commit hash; a hash may appear at most
// once as a finalized entry. That invariant is the point of this
// package: re-analyzing an already-tagged commit must be a safe no-op.
package ledger

import (
	"sync"

	"github.com/maxbolgarin/autover/internal/model"
	"github.com/maxbolgarin/autover/internal/model/interfaces"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/logze/v2"
)

// Ledger serializes decision writes per commit hash on top of an
// injected store.
type Ledger struct {
	store interfaces.LedgerStore
	cfg   Config
	log   logze.Logger

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	manifestMu sync.Mutex
}

// New creates a ledger over the given store.
func New(cfg Config, store interfaces.LedgerStore) (*Ledger, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, errm.Wrap(err, "validate config")
	}
	return &Ledger{
		store: store,
		cfg:   cfg,
		log:   logze.With("module", "ledger"),
		locks: make(map[string]*sync.Mutex),
	}, nil
}

// WithLock runs fn while holding the per-hash write lock. All decision
// writes for one commit must go through here so concurrent triggers
// cannot break the idempotency invariant.
func (l *Ledger) WithLock(commitHash string, fn func() error) error {
	mu := l.lockFor(commitHash)
	mu.Lock()
	defer mu.Unlock()
	return fn()
}

// Record appends an entry. It fails with a conflict error when a
// finalized entry for the hash already exists; a pending entry may be
// superseded by a finalized one.
func (l *Ledger) Record(entry model.LedgerEntry) error {
	hash := entry.Decision.CommitHash
	if previous, ok := l.store.Latest(hash); ok && previous.Finalized() {
		l.log.Warn("refusing duplicate ledger entry",
			"commit", hash, "existing_status", previous.Status)
		return errm.Wrap(model.ErrDuplicateEntry, hash)
	}

	if err := l.store.Append(entry); err != nil {
		return errm.Wrap(err, "append ledger entry")
	}

	l.log.Info("recorded version decision",
		"commit", hash,
		"tier", entry.Decision.Tier,
		"new_version", entry.Decision.NewVersion,
		"confidence", entry.Decision.Confidence,
		"status", entry.Status,
	)
	return nil
}

// Get returns the latest entry for the hash.
func (l *Ledger) Get(commitHash string) (model.LedgerEntry, bool) {
	return l.store.Latest(commitHash)
}

// History returns all entries in insertion order.
func (l *Ledger) History() []model.LedgerEntry {
	return l.store.List()
}

// Statistics summarizes the recorded decisions.
func (l *Ledger) Statistics() model.LedgerStatistics {
	entries := l.store.List()

	stats := model.LedgerStatistics{
		Total:  len(entries),
		ByTier: make(map[model.Tier]int),
	}
	var confidenceSum float64
	for _, entry := range entries {
		switch entry.Status {
		case model.EntryApplied:
			stats.Applied++
		case model.EntryPending:
			stats.Pending++
		case model.EntryFailed:
			stats.Failed++
		}
		stats.ByTier[entry.Decision.Tier]++
		confidenceSum += entry.Decision.Confidence
		if entry.RecordedAt.After(stats.LastDecision) {
			stats.LastDecision = entry.RecordedAt
		}
	}
	if stats.Total > 0 {
		stats.AvgConfidence = confidenceSum / float64(stats.Total)
	}
	return stats
}

// Status implements interfaces.StatusReporter.
func (l *Ledger) Status() model.ComponentStatus {
	stats := l.Statistics()
	return model.ComponentStatus{
		Name:    "ledger",
		Healthy: true,
		Detail:  l.cfg.StorePath,
		LastRun: stats.LastDecision,
	}
}

func (l *Ledger) lockFor(commitHash string) *sync.Mutex {
	l.locksMu.Lock()
	defer l.locksMu.Unlock()
	mu, ok := l.locks[commitHash]
	if !ok {
		mu = &sync.Mutex{}
		l.locks[commitHash] = mu
	}
	return mu
}
