package escalate

import (
	"context"

	"github.com/maxbolgarin/autover/internal/model"
	"github.com/maxbolgarin/autover/internal/model/interfaces"
	"github.com/maxbolgarin/cliex"
	"github.com/maxbolgarin/errm"
	"github.com/maxbolgarin/logze/v2"
)

// WebhookNotifier delivers escalation notices to the integrity
// monitoring collaborator over HTTP.
type WebhookNotifier struct {
	cli *cliex.HTTP
	url string
	log logze.Logger
}

// NewNotifier creates a webhook notifier, or a noop one when no URL is
// configured.
func NewNotifier(cfg Config) (interfaces.Notifier, error) {
	if cfg.NotifyURL == "" {
		return NoopNotifier{}, nil
	}

	log := logze.With("module", "notifier")
	cli, err := cliex.New(cliex.WithLogger(log))
	if err != nil {
		return nil, errm.Wrap(err, "create HTTP client")
	}

	return &WebhookNotifier{
		cli: cli,
		url: cfg.NotifyURL,
		log: log,
	}, nil
}

// NotifyEscalation posts the escalation to the configured webhook.
func (n *WebhookNotifier) NotifyEscalation(ctx context.Context, escalation model.TestEscalation) error {
	var response map[string]any
	if _, err := n.cli.Post(ctx, n.url, escalation, &response); err != nil {
		return errm.Wrap(err, "post escalation notice")
	}
	n.log.Debug("escalation notice delivered", "path", escalation.Path, "risk", escalation.Risk)
	return nil
}

// NoopNotifier drops notifications when no collaborator is configured.
type NoopNotifier struct{}

// NotifyEscalation implements interfaces.Notifier.
func (NoopNotifier) NotifyEscalation(context.Context, model.TestEscalation) error {
	return nil
}
