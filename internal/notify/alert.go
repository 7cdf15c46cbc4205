package notify

import (
	"context"
	"log/slog"

	"dqpipe/internal/config"
	"dqpipe/pkg/contracts/domain"
)

// Alerter raises operator alerts when a run aborts before producing a
// report. This channel is distinct from the quality notification: it
// fires on "your file is broken", not "your file is dirty".
type Alerter struct {
	webhook *WebhookTransport
	email   *EmailTransport
	cfg     config.NotifyConfig
	logger  *slog.Logger
}

// NewAlerter wires the failure alert channel from configuration.
func NewAlerter(cfg config.NotifyConfig, logger *slog.Logger) *Alerter {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Alerter{cfg: cfg, logger: logger}
	if cfg.AlertWebhook != "" {
		a.webhook = NewWebhookTransport(config.WebhookConfig{URL: cfg.AlertWebhook, RatePerSecond: cfg.Webhook.RatePerSecond})
	}
	if cfg.AlertEmail != "" {
		a.email = NewEmailTransport(cfg.SMTP)
	}
	return a
}

// AlertFailure delivers a pipeline-failure alert: webhook first, email
// as fallback. Alert delivery is best effort; failures are logged, not
// returned, since the run is already failing for a better reason.
func (a *Alerter) AlertFailure(ctx context.Context, message string) {
	if a.cfg.DryRun {
		a.logger.InfoContext(ctx, "failure_alert_dry_run", slog.String("message", message))
		return
	}

	msg := domain.Message{
		Recipient: a.cfg.AlertEmail,
		Subject:   "Pipeline Failure Alert",
		Body:      "Pipeline failure: " + message,
	}

	if a.webhook != nil {
		if err := a.webhook.Send(ctx, msg); err == nil {
			a.logger.InfoContext(ctx, "failure_alert_sent", slog.String("transport", "webhook"))
			return
		} else {
			a.logger.ErrorContext(ctx, "failure_alert_webhook_failed", slog.String("error", err.Error()))
		}
	}

	if a.email != nil {
		if err := a.email.Send(ctx, msg); err != nil {
			a.logger.ErrorContext(ctx, "failure_alert_email_failed", slog.String("error", err.Error()))
			return
		}
		a.logger.InfoContext(ctx, "failure_alert_sent", slog.String("transport", "email"))
	}
}
