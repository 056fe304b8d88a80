// Package engine wires the classifiers, the pattern detector, the
// decision rules and the ledger into the operation surface: analyze a
// commit, override a decision, report history and statistics.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maxbolgarin/abstract"
	"github.com/maxbolgarin/autover/internal/classify"
	"github.com/maxbolgarin/autover/internal/decision"
	"github.com/maxbolgarin/autover/internal/escalate"
	"github.com/maxbolgarin/autover/internal/ledger"
	"github.com/maxbolgarin/autover/internal/model"
	"github.com/maxbolgarin/autover/internal/model/interfaces"
	"github.com/maxbolgarin/autover/internal/patterns"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/logze/v2"
	"github.com/panjf2000/ants/v2"
)

var _ interfaces.StatusReporter = (*Engine)(nil)

// Engine is the autonomous versioning engine. All blocking VCS calls
// go through a bounded worker pool with a per-call timeout so one slow
// git invocation cannot starve the periodic tasks.
type Engine struct {
	vcs        interfaces.VCSBackend
	ledger     *ledger.Ledger
	classifier *classify.Classifier
	detector   *patterns.Detector
	decider    *decision.Engine
	responder  *escalate.Responder

	pool *ants.Pool
	cfg  Config
	log  logze.Logger

	disabled       atomic.Bool
	disabledReason atomic.Value // string

	analyzed atomic.Int64
	skipped  atomic.Int64

	mu      sync.Mutex
	lastRun time.Time
	lastErr error
}

// New creates the engine. The backend may be nil only when the engine
// is immediately disabled by the caller.
func New(cfg Config, vcs interfaces.VCSBackend, ldg *ledger.Ledger,
	classifier *classify.Classifier, detector *patterns.Detector,
	decider *decision.Engine, responder *escalate.Responder) (*Engine, error) {

	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, errm.Wrap(err, "validate config")
	}
	pool, err := ants.NewPool(cfg.PoolSize)
	if err != nil {
		return nil, errm.Wrap(err, "create worker pool")
	}

	return &Engine{
		vcs:        vcs,
		ledger:     ldg,
		classifier: classifier,
		detector:   detector,
		decider:    decider,
		responder:  responder,
		pool:       pool,
		cfg:        cfg,
		log:        logze.With("module", "engine"),
	}, nil
}

// Disable latches the engine into disabled mode. Logged once; every
// subsequent operation returns an explicit disabled error instead of
// touching the backend.
func (e *Engine) Disable(reason string) {
	if e.disabled.CompareAndSwap(false, true) {
		e.disabledReason.Store(reason)
		e.log.Error("versioning engine disabled", "reason", reason)
	}
}

// AnalyzeCommit runs the full pipeline for one commit and records the
// decision. Re-analyzing a finalized commit returns the persisted
// entry unchanged and counts as a skipped duplicate, never a new one.
func (e *Engine) AnalyzeCommit(ctx context.Context, commitHash string) (model.LedgerEntry, error) {
	if err := e.checkEnabled(); err != nil {
		return model.LedgerEntry{}, err
	}

	var result model.LedgerEntry
	err := e.ledger.WithLock(commitHash, func() error {
		if previous, ok := e.ledger.Get(commitHash); ok && previous.Finalized() {
			e.skipped.Add(1)
			e.log.Debug("commit already finalized, skipping duplicate", "commit", commitHash)
			result = previous
			return nil
		}

		entry, err := e.analyze(ctx, commitHash)
		if err != nil {
			return err
		}
		if err := e.ledger.Record(entry); err != nil {
			return err
		}
		e.analyzed.Add(1)
		result = entry
		return nil
	})

	e.trackRun(err)
	return result, err
}

// AnalyzeRecent is the periodic scan body: inspect the most recent
// commits and analyze whatever the ledger has not finalized yet.
func (e *Engine) AnalyzeRecent(ctx context.Context) error {
	if err := e.checkEnabled(); err != nil {
		return err
	}
	timer := abstract.StartTimer()

	var commits []model.CommitRecord
	err := e.callVCS(ctx, "list commits", func(ctx context.Context) error {
		var err error
		commits, err = e.vcs.ListRecentCommits(ctx, e.cfg.ScanLimit)
		return err
	})
	if err != nil {
		return errm.Wrap(err, "list recent commits")
	}

	for _, commit := range commits {
		if _, err := e.AnalyzeCommit(ctx, commit.Hash); err != nil {
			class := model.ClassifyError(err)
			if class == model.ErrorConflict {
				e.log.Debug("commit settled elsewhere", "commit", commit.Hash, "error", err)
				continue
			}
			e.log.Error("cannot analyze commit",
				"commit", commit.Hash, "class", class, "retryable", class.IsRetryable(), "error", err)
			if class == model.ErrorConfiguration {
				return err
			}
		}
	}

	e.log.Debug("scan finished", "commits", len(commits), "elapsed", timer.ElapsedTime())
	return nil
}

// ManualOverride records an operator-chosen version for the commit,
// bypassing the decision rules entirely. Still subject to the
// finalized-once invariant.
func (e *Engine) ManualOverride(ctx context.Context, commitHash, version string) (model.LedgerEntry, error) {
	if err := e.checkEnabled(); err != nil {
		return model.LedgerEntry{}, err
	}
	if err := decision.ValidateVersion(version); err != nil {
		return model.LedgerEntry{}, errm.Wrap(err, "validate override version")
	}

	var result model.LedgerEntry
	err := e.ledger.WithLock(commitHash, func() error {
		if previous, ok := e.ledger.Get(commitHash); ok && previous.Finalized() {
			return errm.Wrap(model.ErrDuplicateEntry, commitHash)
		}

		current, err := e.ledger.CurrentVersion()
		if err != nil {
			return errm.Wrap(err, "read current version")
		}

		entry := model.LedgerEntry{
			Decision: model.VersionDecision{
				CommitHash:     commitHash,
				CurrentVersion: current,
				Tier:           decision.TierBetween(current, version),
				NewVersion:     version,
				Confidence:     1,
				Timestamp:      time.Now().UTC(),
				Provenance:     model.ProvenanceManual,
			},
			ImpactLevel: model.RiskLow,
			Triggers:    []string{"manual override"},
			RecordedAt:  time.Now().UTC(),
		}
		entry.Status = e.applyTag(ctx, &entry)

		if err := e.ledger.Record(entry); err != nil {
			return err
		}
		result = entry
		return nil
	})

	e.trackRun(err)
	return result, err
}

// HandleFileEvent feeds one asynchronous file-change notification into
// the change-risk responder.
func (e *Engine) HandleFileEvent(ctx context.Context, change model.FileChange) (model.TestEscalation, error) {
	if err := e.checkEnabled(); err != nil {
		return model.TestEscalation{}, err
	}

	impact := e.classifier.ClassifyFile(change)
	return e.responder.Respond(ctx, impact)
}

// History returns all ledger entries in insertion order.
func (e *Engine) History() []model.LedgerEntry {
	return e.ledger.History()
}

// Statistics summarizes the decision history.
func (e *Engine) Statistics() model.LedgerStatistics {
	return e.ledger.Statistics()
}

// Status implements interfaces.StatusReporter.
func (e *Engine) Status() model.ComponentStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	status := model.ComponentStatus{
		Name:    "engine",
		Healthy: !e.disabled.Load(),
		Detail:  fmt.Sprintf("analyzed=%d skipped=%d", e.analyzed.Load(), e.skipped.Load()),
		LastRun: e.lastRun,
	}
	if reason, ok := e.disabledReason.Load().(string); ok {
		status.Detail = reason
	}
	if e.lastErr != nil {
		status.LastError = e.lastErr.Error()
	}
	return status
}

// Close releases the worker pool.
func (e *Engine) Close(context.Context) error {
	e.pool.Release()
	return nil
}

func (e *Engine) analyze(ctx context.Context, commitHash string) (model.LedgerEntry, error) {
	var commit model.CommitRecord
	err := e.callVCS(ctx, "get commit", func(ctx context.Context) error {
		var err error
		commit, err = e.vcs.GetCommit(ctx, commitHash)
		return err
	})
	if err != nil {
		return model.LedgerEntry{}, errm.Wrap(err, "get commit")
	}

	changes := commit.FileChanges
	if len(changes) == 0 {
		err = e.callVCS(ctx, "get file changes", func(ctx context.Context) error {
			var err error
			changes, err = e.vcs.GetFileChanges(ctx, commitHash)
			return err
		})
		if err != nil {
			return model.LedgerEntry{}, errm.Wrap(err, "get file changes")
		}
	}

	// A commit that already carries a version tag was settled outside
	// the ledger; refuse to double-version it.
	var existingTags []string
	err = e.callVCS(ctx, "list tags", func(ctx context.Context) error {
		var err error
		existingTags, err = e.vcs.TagsPointingAt(ctx, commitHash)
		return err
	})
	if err != nil {
		return model.LedgerEntry{}, errm.Wrap(err, "list tags pointing at commit")
	}
	for _, tag := range existingTags {
		if strings.HasPrefix(tag, e.cfg.TagPrefix) {
			return model.LedgerEntry{}, errm.Wrap(model.ErrTagConflict, tag)
		}
	}

	impacts := make([]model.FileImpact, 0, len(changes))
	for _, change := range changes {
		impacts = append(impacts, e.classifier.ClassifyFile(change))
	}
	analysis := e.classifier.AnalyzeCommit(commitHash, impacts)
	detected := e.detector.Detect(commit.Message, changes)

	current, err := e.ledger.CurrentVersion()
	if err != nil {
		return model.LedgerEntry{}, errm.Wrap(err, "read current version")
	}

	verdict, err := e.decider.Decide(analysis, detected, current)
	if err != nil {
		return model.LedgerEntry{}, errm.Wrap(err, "decide version")
	}

	entry := model.LedgerEntry{
		Decision:    verdict,
		ImpactLevel: analysis.ImpactLevel,
		Patterns:    detected.Patterns,
		Triggers:    detected.Triggers,
		RecordedAt:  time.Now().UTC(),
	}

	if verdict.Confidence < e.cfg.AutoApplyThreshold {
		entry.Decision.Provenance = model.ProvenancePending
		entry.Status = model.EntryPending
		e.log.Info("confidence below auto-apply threshold, deferring to manual review",
			"commit", commitHash,
			"confidence", verdict.Confidence,
			"threshold", e.cfg.AutoApplyThreshold,
		)
		return entry, nil
	}

	entry.Decision.Provenance = model.ProvenanceAuto
	entry.Status = e.applyTag(ctx, &entry)
	return entry, nil
}

// applyTag writes the version tag and advances the manifest. A tag
// write failure is caught here, logged and turned into a failed entry;
// it never aborts the ledger write.
func (e *Engine) applyTag(ctx context.Context, entry *model.LedgerEntry) model.EntryStatus {
	verdict := entry.Decision
	tagName := e.cfg.TagPrefix + verdict.NewVersion
	message := fmt.Sprintf("autover: %s release, confidence %.2f", verdict.Tier, verdict.Confidence)

	err := e.callVCS(ctx, "create tag", func(ctx context.Context) error {
		return e.vcs.CreateTag(ctx, tagName, message, verdict.CommitHash)
	})
	if err != nil {
		e.log.Error("cannot write version tag",
			"commit", verdict.CommitHash,
			"tag", tagName,
			"class", model.ClassifyError(err),
			"error", err,
		)
		return model.EntryFailed
	}

	if err := e.ledger.SetCurrentVersion(verdict.NewVersion); err != nil {
		// The tag exists; the manifest catches up on the next apply.
		e.log.Error("cannot update version manifest", "version", verdict.NewVersion, "error", err)
	}
	return model.EntryApplied
}

// callVCS runs a blocking backend call on the worker pool under the
// configured timeout.
func (e *Engine) callVCS(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, e.cfg.VCSCallTimeout)
	defer cancel()

	done := make(chan error, 1)
	if err := e.pool.Submit(func() {
		done <- fn(callCtx)
	}); err != nil {
		return errm.Wrap(err, "submit vcs call")
	}

	select {
	case err := <-done:
		return err
	case <-callCtx.Done():
		return errm.Wrap(model.ErrCallTimeout, name)
	}
}

func (e *Engine) checkEnabled() error {
	if e.disabled.Load() {
		reason, _ := e.disabledReason.Load().(string)
		return errm.Wrap(model.ErrDisabled, reason)
	}
	return nil
}

func (e *Engine) trackRun(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastRun = time.Now().UTC()
	e.lastErr = err
}
