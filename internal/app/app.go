// Package app wires the versioning engine together: the VCS backend,
// the ledger, the decision pipeline, the escalation responder, the
// periodic scheduler, the filesystem watcher and the ops server.
package app

import (
	"context"

	"github.com/maxbolgarin/autover/internal/classify"
	"github.com/maxbolgarin/autover/internal/decision"
	"github.com/maxbolgarin/autover/internal/engine"
	"github.com/maxbolgarin/autover/internal/escalate"
	"github.com/maxbolgarin/autover/internal/ledger"
	"github.com/maxbolgarin/autover/internal/ledger/filestore"
	"github.com/maxbolgarin/autover/internal/model"
	"github.com/maxbolgarin/autover/internal/model/interfaces"
	"github.com/maxbolgarin/autover/internal/patterns"
	"github.com/maxbolgarin/autover/internal/scheduler"
	"github.com/maxbolgarin/autover/internal/server"
	"github.com/maxbolgarin/autover/internal/vcs"
	"github.com/maxbolgarin/autover/internal/watch"
	"github.com/maxbolgarin/contem"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/lang"
	"github.com/maxbolgarin/logze/v2"
)

// Autover is the main service that orchestrates all components.
type Autover struct {
	backend   interfaces.VCSBackend
	engine    *engine.Engine
	ledger    *ledger.Ledger
	scheduler *scheduler.Scheduler
	watcher   *watch.Watcher
	opsServer *server.Server

	cfg Config
	log logze.Logger
}

// New creates the versioning service and registers shutdown hooks on
// the lifecycle context.
func New(ctx contem.Context, cfg Config) (*Autover, error) {
	service := &Autover{
		cfg: cfg,
		log: logze.With("component", "app"),
	}

	if err := service.init(ctx, cfg); err != nil {
		return nil, errm.Wrap(err, "failed to initialize service")
	}

	return service, nil
}

// Start launches the periodic tasks, the watcher when enabled, and the
// ops server.
func (s *Autover) Start(ctx context.Context) error {
	if err := s.scheduler.Start(ctx); err != nil {
		return errm.Wrap(err, "failed to start scheduler")
	}

	if s.watcher != nil {
		if err := s.watcher.Start(ctx); err != nil {
			return errm.Wrap(err, "failed to start watcher")
		}
	}

	if err := s.opsServer.Start(ctx); err != nil {
		return errm.Wrap(err, "failed to start ops server")
	}

	return nil
}

// RunScan performs a single scan of recent commits and returns. Used by
// one-shot invocations instead of the long-running scheduler.
func (s *Autover) RunScan(ctx context.Context) error {
	if err := s.engine.AnalyzeRecent(ctx); err != nil {
		return errm.Wrap(err, "failed to analyze recent commits")
	}
	return nil
}

// AnalyzeCommit analyzes one commit by hash.
func (s *Autover) AnalyzeCommit(ctx context.Context, commitHash string) (model.LedgerEntry, error) {
	return s.engine.AnalyzeCommit(ctx, commitHash)
}

func (s *Autover) init(ctx contem.Context, cfg Config) (err error) {

	// Durable decision store and the ledger on top of it. Defaults must
	// land before the store path is read.
	if err := cfg.Ledger.PrepareAndValidate(); err != nil {
		return errm.Wrap(err, "failed to validate ledger config")
	}
	store, err := filestore.Open(cfg.Ledger.StorePath)
	if err != nil {
		return errm.Wrap(err, "failed to open ledger store")
	}
	ctx.Add(func(context.Context) error { return store.Close() })

	s.ledger, err = ledger.New(cfg.Ledger, store)
	if err != nil {
		return errm.Wrap(err, "failed to create ledger")
	}

	// Pure analysis pipeline
	classifier := classify.New(cfg.Classify)
	detector := patterns.New(classifier)
	decider := decision.New(cfg.Decision)

	// VCS backend: a broken backend disables versioning instead of
	// crashing the service, the ops surface stays up to report it.
	var backendErr error
	s.backend, backendErr = vcs.NewBackend(cfg.VCS)

	notifier, err := escalate.NewNotifier(cfg.Escalation)
	if err != nil {
		return errm.Wrap(err, "failed to create notifier")
	}
	responder, err := escalate.NewResponder(cfg.Escalation, s.backend, notifier)
	if err != nil {
		return errm.Wrap(err, "failed to create responder")
	}

	s.engine, err = engine.New(cfg.Engine, s.backend, s.ledger, classifier, detector, decider, responder)
	if err != nil {
		return errm.Wrap(err, "failed to create engine")
	}
	ctx.Add(s.engine.Close)

	if backendErr != nil {
		s.engine.Disable(backendErr.Error())
	}

	// Periodic tasks
	s.scheduler = scheduler.New()
	s.scheduler.Add("scan-commits", cfg.Scheduler.ScanInterval, s.engine.AnalyzeRecent)
	s.scheduler.Add("component-health", cfg.Scheduler.HealthInterval, s.reportHealth)
	ctx.Add(s.scheduler.Stop)

	// Filesystem watcher feeds the change-risk responder; only the
	// local backend has a checkout to watch.
	if cfg.Watch.Enabled && cfg.VCS.Type == vcs.GitCLI {
		root := lang.Check(cfg.VCS.RepoPath, ".")
		s.watcher, err = watch.New(cfg.Watch, root, s.onFileChange)
		if err != nil {
			return errm.Wrap(err, "failed to create watcher")
		}
		ctx.Add(s.watcher.Stop)
	}

	reporters := []interfaces.StatusReporter{s.engine, s.ledger, s.scheduler}
	if s.watcher != nil {
		reporters = append(reporters, s.watcher)
	}
	s.opsServer, err = server.New(cfg.Server, s.engine, reporters...)
	if err != nil {
		return errm.Wrap(err, "failed to create ops server")
	}
	ctx.Add(s.opsServer.Stop)

	return nil
}

func (s *Autover) onFileChange(ctx context.Context, change model.FileChange) {
	if _, err := s.engine.HandleFileEvent(ctx, change); err != nil {
		s.log.Error("cannot handle file event", "path", change.Path, "error", err)
	}
}

// reportHealth logs unhealthy components so a degraded backend or a
// stuck task surfaces in the logs, not only on the ops endpoint.
func (s *Autover) reportHealth(context.Context) error {
	reporters := []interfaces.StatusReporter{s.engine, s.ledger, s.scheduler}
	if s.watcher != nil {
		reporters = append(reporters, s.watcher)
	}
	for _, reporter := range reporters {
		status := reporter.Status()
		if !status.Healthy || status.LastError != "" {
			s.log.Warn("component unhealthy",
				"name", status.Name, "detail", status.Detail, "last_error", status.LastError)
		}
	}
	return nil
}
