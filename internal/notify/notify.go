// Package notify delivers best-effort failure alerts for ETL stages.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/i474232898/weather-etl/internal/config"
	"github.com/i474232898/weather-etl/internal/metrics"
)

// Pipeline stage names used in alert subjects.
const (
	StageRecreateTables = "recreate_tables"
	StageSeedLocations  = "seed_locations"
	StageBackfill       = "insert_backdated_snapshots"
	StageETLOnce        = "etl_once"
	StageMain           = "main"
)

const (
	subjectPrefix      = "ETL Failure Alert: "
	defaultSendTimeout = 30 * time.Second
)

// Notifier reports a failed stage. Implementations never return or panic on
// delivery problems; they log them instead.
type Notifier interface {
	NotifyFailure(ctx context.Context, stage string, err error)
}

// Subject returns the alert subject for stage.
func Subject(stage string) string {
	return subjectPrefix + stage
}

// Body returns the plain-text alert body.
func Body(stage string, err error) string {
	return fmt.Sprintf("An error occurred during %s at %s:\n\n%v",
		stage, time.Now().UTC().Format(time.RFC3339), err)
}

// New returns an SMTP notifier when the relay is fully configured and a
// log-only notifier otherwise.
func New(cfg *config.AppConfig, logger *slog.Logger) (Notifier, error) {
	if !cfg.SMTPConfigured() {
		logger.Warn("SMTP not fully configured; failure alerts are logged only")
		return NewLogNotifier(logger), nil
	}
	return NewSMTPNotifier(cfg.SMTP, logger)
}

// LogNotifier writes alerts to the logger.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyFailure(_ context.Context, stage string, err error) {
	n.logger.Error(Subject(stage), "stage", stage, "error", err)
	metrics.Notifications.WithLabelValues("logged").Inc()
}

// sender is the part of *mail.Client the notifier needs.
type sender interface {
	DialAndSendWithContext(ctx context.Context, msgs ...*mail.Msg) error
}

// SMTPNotifier mails alerts through an authenticated STARTTLS relay.
type SMTPNotifier struct {
	from    string
	to      string
	client  sender
	logger  *slog.Logger
	timeout time.Duration
}

// NewSMTPNotifier builds a notifier for cfg. No connection is made until an
// alert is sent.
func NewSMTPNotifier(cfg config.SMTPConfig, logger *slog.Logger) (*SMTPNotifier, error) {
	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Sender),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTimeout(defaultSendTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &SMTPNotifier{
		from:    cfg.Sender,
		to:      cfg.Recipient,
		client:  client,
		logger:  logger,
		timeout: defaultSendTimeout,
	}, nil
}

func (n *SMTPNotifier) message(stage string, err error) (*mail.Msg, error) {
	m := mail.NewMsg()
	if e := m.From(n.from); e != nil {
		return nil, fmt.Errorf("invalid sender: %w", e)
	}
	if e := m.To(n.to); e != nil {
		return nil, fmt.Errorf("invalid recipient: %w", e)
	}
	m.Subject(Subject(stage))
	m.SetDate()
	m.SetBodyString(mail.TypeTextPlain, Body(stage, err))
	return m, nil
}

// NotifyFailure sends one alert. Delivery errors are logged and swallowed.
func (n *SMTPNotifier) NotifyFailure(ctx context.Context, stage string, err error) {
	log := n.logger.With("stage", stage)

	m, buildErr := n.message(stage, err)
	if buildErr != nil {
		log.Error("failed to build alert email", "error", buildErr)
		metrics.Notifications.WithLabelValues("failed").Inc()
		return
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	if sendErr := n.client.DialAndSendWithContext(ctx, m); sendErr != nil {
		log.Error("failed to send alert email", "error", sendErr)
		metrics.Notifications.WithLabelValues("failed").Inc()
		return
	}
	log.Info("failure alert sent via email", "recipient", n.to)
	metrics.Notifications.WithLabelValues("sent").Inc()
}
