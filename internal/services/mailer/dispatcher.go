// -----------------------------------------------------------------------
// Dispatcher - single-attempt delivery of a built report
// -----------------------------------------------------------------------

package mailer

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/alphapicks/internal/common"
	"github.com/ternarybob/alphapicks/internal/interfaces"
	"github.com/ternarybob/alphapicks/internal/models"
)

const DefaultTimeout = 30 * time.Second

// Dispatcher sends a report through exactly one channel, exactly once
type Dispatcher struct {
	channel       interfaces.MailChannel
	from          interfaces.MailAddress
	recipientName string
	timeout       time.Duration
	validate      *validator.Validate
	logger        arbor.ILogger
}

func NewDispatcher(channel interfaces.MailChannel, from interfaces.MailAddress, recipientName string, timeout time.Duration, logger arbor.ILogger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		channel:       channel,
		from:          from,
		recipientName: recipientName,
		timeout:       timeout,
		validate:      validator.New(),
		logger:        logger,
	}
}

// NewDispatcherFromConfig builds the configured channel and wraps it in a Dispatcher
func NewDispatcherFromConfig(cfg *common.MailerConfig, httpClient *http.Client, logger arbor.ILogger) (*Dispatcher, error) {
	channel, err := NewChannel(cfg, httpClient, logger)
	if err != nil {
		return nil, err
	}

	from := interfaces.MailAddress{Name: cfg.FromName, Address: cfg.FromEmail}
	timeout := common.ParseDuration(cfg.Timeout, DefaultTimeout)

	return NewDispatcher(channel, from, cfg.RecipientName, timeout, logger), nil
}

// NewChannel creates the delivery channel named by cfg.Channel
func NewChannel(cfg *common.MailerConfig, httpClient *http.Client, logger arbor.ILogger) (interfaces.MailChannel, error) {
	switch strings.ToLower(cfg.Channel) {
	case "brevo", "":
		if cfg.Brevo.APIKey == "" {
			return nil, fmt.Errorf("brevo channel requires an API key")
		}
		return NewBrevoChannel(cfg.Brevo.URL, cfg.Brevo.APIKey, httpClient, logger), nil
	case "smtp":
		return NewSMTPChannel(SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			UseTLS:   cfg.SMTP.UseTLS,
		}, logger), nil
	case "log":
		return NewLogChannel(logger), nil
	default:
		return nil, fmt.Errorf("unknown mail channel: %s", cfg.Channel)
	}
}

// Channel returns the name of the configured channel
func (d *Dispatcher) Channel() string {
	return d.channel.Name()
}

// Dispatch makes a single delivery attempt. Failures are reported in the
// result and are never retried.
func (d *Dispatcher) Dispatch(ctx context.Context, report models.Report, recipient string) models.DispatchResult {
	recipient = strings.TrimSpace(recipient)
	result := models.DispatchResult{
		Channel:   d.channel.Name(),
		Recipient: recipient,
	}

	if err := d.validate.Var(recipient, "required,email"); err != nil {
		result.Reason = fmt.Sprintf("invalid recipient address %q", recipient)
		d.logger.Error().Str("recipient", recipient).Msg("Report not dispatched: invalid recipient")
		return result
	}

	if strings.TrimSpace(report.Text) == "" {
		result.Reason = "report body is empty"
		d.logger.Error().Msg("Report not dispatched: empty body")
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	messageID, err := d.channel.Send(ctx, interfaces.MailMessage{
		From:     d.from,
		To:       interfaces.MailAddress{Name: d.recipientName, Address: recipient},
		Subject:  report.Subject,
		TextBody: report.Text,
		HTMLBody: report.HTML,
	})
	if err != nil {
		result.Reason = err.Error()
		d.logger.Error().
			Err(err).
			Str("channel", result.Channel).
			Str("recipient", recipient).
			Dur("elapsed", time.Since(start)).
			Msg("Report dispatch failed")
		return result
	}

	result.Delivered = true
	result.MessageID = messageID

	d.logger.Info().
		Str("channel", result.Channel).
		Str("recipient", recipient).
		Str("message_id", messageID).
		Dur("elapsed", time.Since(start)).
		Msg("Report dispatched")

	return result
}
