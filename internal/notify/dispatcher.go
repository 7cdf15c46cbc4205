package notify

import (
	"context"
	"log/slog"
	"time"

	"dqpipe/internal/config"
	"dqpipe/internal/errors"
	"dqpipe/pkg/contracts/domain"
)

// hardMaxAttempts is the safety ceiling regardless of configuration.
const hardMaxAttempts = 10

// SendPolicy is the retry strategy for delivery attempts. Each attempt
// is independent; there is no partial-send state to resume.
type SendPolicy struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	AttemptTimeout time.Duration
}

// PolicyFromConfig builds a send policy, clamping the attempt count to
// the hard ceiling.
func PolicyFromConfig(cfg config.NotifyConfig) SendPolicy {
	attempts := cfg.Retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	if attempts > hardMaxAttempts {
		attempts = hardMaxAttempts
	}
	return SendPolicy{
		MaxAttempts:    attempts,
		InitialDelay:   cfg.Retry.InitialDelay,
		MaxDelay:       cfg.Retry.MaxDelay,
		Multiplier:     cfg.Retry.Multiplier,
		AttemptTimeout: cfg.AttemptTimeout,
	}
}

// Delay returns the exponential backoff delay before the given retry.
// attempt is 1-based: the delay after the first failed attempt is the
// initial delay.
func (p SendPolicy) Delay(attempt int) time.Duration {
	delay := p.InitialDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * p.Multiplier)
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Dispatcher gates and delivers the quality notification for one run.
type Dispatcher struct {
	primary     Transport
	fallback    Transport
	policy      SendPolicy
	minSeverity domain.Severity
	dryRun      bool
	logger      *slog.Logger
}

// NewDispatcher wires a dispatcher. fallback may be nil.
func NewDispatcher(primary, fallback Transport, policy SendPolicy, minSeverity domain.Severity, dryRun bool, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		primary:     primary,
		fallback:    fallback,
		policy:      policy,
		minSeverity: minSeverity,
		dryRun:      dryRun,
		logger:      logger,
	}
}

// Dispatch decides whether the severity warrants a send and performs
// delivery with bounded retries. In dry-run mode every decision step
// still runs, but no transport is touched and Attempted stays false;
// WouldSend records the suppressed decision. Delivery failure is
// recorded on the outcome, never escalated: the run produced a report
// either way.
func (d *Dispatcher) Dispatch(ctx context.Context, severity domain.Severity, msg domain.Message) domain.NotificationOutcome {
	outcome := domain.NotificationOutcome{}

	if severity < d.minSeverity {
		d.logger.InfoContext(ctx, "notification_gated",
			slog.String("severity", severity.String()),
			slog.String("min_severity", d.minSeverity.String()))
		return outcome
	}
	outcome.WouldSend = true

	if d.dryRun {
		d.logger.InfoContext(ctx, "notification_dry_run",
			slog.String("severity", severity.String()),
			slog.String("recipient", msg.Recipient),
			slog.String("subject", msg.Subject))
		return outcome
	}

	outcome.Attempted = true

	lastErr := d.deliver(ctx, d.primary, msg, &outcome)
	if lastErr == nil {
		outcome.Delivered = true
		return outcome
	}

	if d.fallback != nil {
		d.logger.WarnContext(ctx, "notification_fallback",
			slog.String("primary", d.primary.Name()),
			slog.String("fallback", d.fallback.Name()),
			slog.String("error", lastErr.Error()))
		outcome.Fallback = true
		if err := d.deliver(ctx, d.fallback, msg, &outcome); err == nil {
			outcome.Delivered = true
			return outcome
		} else {
			lastErr = err
		}
	}

	exhausted := errors.Wrap(errors.CodeNotifyExhausted, "delivery abandoned after all attempts", lastErr)
	outcome.LastError = exhausted.Error()
	d.logger.ErrorContext(ctx, "notification_exhausted",
		slog.Int("attempts", outcome.Attempts),
		slog.String("error", exhausted.Error()))
	return outcome
}

// deliver runs the retry loop against one transport. It returns nil on
// success or the last error once attempts are exhausted or the error is
// not retryable.
func (d *Dispatcher) deliver(ctx context.Context, transport Transport, msg domain.Message, outcome *domain.NotificationOutcome) error {
	var lastErr error

	for attempt := 1; attempt <= d.policy.MaxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, d.policy.AttemptTimeout)
		err := transport.Send(attemptCtx, msg)
		cancel()

		outcome.Attempts++

		if err == nil {
			d.logger.InfoContext(ctx, "notification_sent",
				slog.String("transport", transport.Name()),
				slog.Int("attempt", attempt))
			return nil
		}
		lastErr = err

		d.logger.WarnContext(ctx, "notification_attempt_failed",
			slog.String("transport", transport.Name()),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", d.policy.MaxAttempts),
			slog.String("error", err.Error()))

		if !errors.IsRetryable(err) || attempt == d.policy.MaxAttempts {
			break
		}

		select {
		case <-time.After(d.policy.Delay(attempt)):
		case <-ctx.Done():
			return errors.Wrap(errors.CodeNotifyTransient, "delivery cancelled during backoff", ctx.Err())
		}
	}

	return lastErr
}
