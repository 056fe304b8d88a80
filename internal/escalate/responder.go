// Package escalate maps a file's risk tier to a testing escalation:
// isolated branch creation, testing flags and integrity notification.
package escalate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/maxbolgarin/autover/internal/model"
	"github.com/maxbolgarin/autover/internal/model/interfaces"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/logze/v2"
)

// Responder is a one-step state machine keyed by risk level. Every
// escalation is terminal: there are no further transitions.
type Responder struct {
	cfg      Config
	vcs      interfaces.VCSBackend
	notifier interfaces.Notifier
	log      logze.Logger

	now func() time.Time
}

// NewResponder creates a change-risk responder.
func NewResponder(cfg Config, vcs interfaces.VCSBackend, notifier interfaces.Notifier) (*Responder, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, errm.Wrap(err, "validate config")
	}
	return &Responder{
		cfg:      cfg,
		vcs:      vcs,
		notifier: notifier,
		log:      logze.With("module", "escalate"),
		now:      time.Now,
	}, nil
}

// Respond handles one file impact. Branch creation is never skipped or
// merged with a prior branch: every escalation gets a uniquely named
// ref derived from the timestamp and the sanitized filename.
func (r *Responder) Respond(ctx context.Context, impact model.FileImpact) (model.TestEscalation, error) {
	risk := impact.Risk
	switch risk {
	case model.RiskLow, model.RiskMedium, model.RiskHigh:
	default:
		// Unclassifiable input gets the conservative default.
		r.log.Warn("unclassifiable risk level, treating as high", "path", impact.Path, "risk", risk)
		risk = model.RiskHigh
	}

	escalation := model.TestEscalation{
		Path:      impact.Path,
		Risk:      risk,
		CreatedAt: r.now().UTC(),
	}

	if risk == model.RiskLow {
		escalation.Status = model.EscalationLogged
		r.log.Info("low-risk change, passive monitoring", "path", impact.Path, "score", impact.Score)
		return escalation, nil
	}

	escalation.BranchRef = r.branchName(impact.Path)
	if err := r.createBranch(ctx, escalation.BranchRef); err != nil {
		escalation.Status = model.EscalationManualReview
		r.log.Error("cannot create test branch, deferring to manual review",
			"path", impact.Path, "branch", escalation.BranchRef, "error", err)
		return escalation, errm.Wrap(err, "create test branch")
	}

	if risk == model.RiskHigh {
		escalation.Status = model.EscalationFlagged
		r.log.Warn("high-risk change flagged for comprehensive testing",
			"path", impact.Path, "branch", escalation.BranchRef)
		if err := r.notifier.NotifyEscalation(ctx, escalation); err != nil {
			// Notification failure does not undo the escalation.
			r.log.Error("cannot notify integrity monitor", "path", impact.Path, "error", err)
		}
		return escalation, nil
	}

	escalation.Status = model.EscalationCreated
	r.log.Info("medium-risk change flagged for testing",
		"path", impact.Path, "branch", escalation.BranchRef)
	return escalation, nil
}

// createBranch runs the backend call under the configured timeout. The
// responder is fed by the watcher's event loop, so a hung subprocess
// must never block it past the deadline.
func (r *Responder) createBranch(ctx context.Context, name string) error {
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- r.vcs.CreateBranch(callCtx, name, "")
	}()

	select {
	case err := <-done:
		return err
	case <-callCtx.Done():
		return errm.Wrap(model.ErrCallTimeout, "create branch "+name)
	}
}

// branchName derives a unique, identifiable branch ref for the file.
func (r *Responder) branchName(path string) string {
	return fmt.Sprintf("%s%s-%d", r.cfg.BranchPrefix, sanitize(path), r.now().Unix())
}

func sanitize(path string) string {
	var b strings.Builder
	for _, c := range path {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteRune(c)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
