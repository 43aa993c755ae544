package mailer

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/alphapicks/internal/interfaces"
)

// LogChannel writes the report to the logger instead of sending it.
// Used for dry runs.
type LogChannel struct {
	logger arbor.ILogger
}

func NewLogChannel(logger arbor.ILogger) *LogChannel {
	return &LogChannel{logger: logger}
}

func (c *LogChannel) Name() string { return "log" }

func (c *LogChannel) Send(ctx context.Context, msg interfaces.MailMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.logger.Info().
		Str("to", msg.To.Address).
		Str("subject", msg.Subject).
		Int("html_len", len(msg.HTMLBody)).
		Msg("Dry run: report not sent")
	c.logger.Info().Msg("\n" + msg.TextBody)

	return "", nil
}
