package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/alphapicks/internal/interfaces"
)

// SMTPConfig holds the SMTP server settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool
}

// SMTPChannel sends mail over SMTP with PLAIN auth
type SMTPChannel struct {
	config SMTPConfig
	logger arbor.ILogger
	now    func() time.Time
}

func NewSMTPChannel(config SMTPConfig, logger arbor.ILogger) *SMTPChannel {
	if config.Port == 0 {
		config.Port = 587
	}
	return &SMTPChannel{config: config, logger: logger, now: time.Now}
}

func (c *SMTPChannel) Name() string { return "smtp" }

// Send composes the MIME message and hands it to the server in one DATA command
func (c *SMTPChannel) Send(ctx context.Context, msg interfaces.MailMessage) (string, error) {
	if c.config.Host == "" {
		return "", fmt.Errorf("SMTP host not configured")
	}
	if c.config.Username == "" || c.config.Password == "" {
		return "", fmt.Errorf("SMTP credentials not configured")
	}

	raw, messageID, err := composeMessage(msg, c.now())
	if err != nil {
		return "", err
	}

	addr := net.JoinHostPort(c.config.Host, strconv.Itoa(c.config.Port))
	auth := smtp.PlainAuth("", c.config.Username, c.config.Password, c.config.Host)

	c.logger.Debug().
		Str("addr", addr).
		Bool("tls", c.config.UseTLS).
		Int("size", len(raw)).
		Msg("Sending report over SMTP")

	if c.config.UseTLS {
		err = c.sendWithTLS(ctx, addr, auth, msg.From.Address, msg.To.Address, raw)
	} else {
		err = c.sendPlain(ctx, addr, auth, msg.From.Address, msg.To.Address, raw)
	}
	if err != nil {
		return "", err
	}

	return messageID, nil
}

// composeMessage renders a multipart/alternative message, or a single
// text/plain part when there is no HTML body
func composeMessage(msg interfaces.MailMessage, date time.Time) ([]byte, string, error) {
	var h mail.Header
	h.SetDate(date)
	h.SetAddressList("From", []*mail.Address{{Name: msg.From.Name, Address: msg.From.Address}})
	h.SetAddressList("To", []*mail.Address{{Name: msg.To.Name, Address: msg.To.Address}})
	h.SetSubject(msg.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, "", fmt.Errorf("failed to generate message id: %w", err)
	}
	messageID, _ := h.MessageID()

	var buf bytes.Buffer

	if msg.HTMLBody == "" {
		h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
		w, err := mail.CreateSingleInlineWriter(&buf, h)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create message writer: %w", err)
		}
		if _, err := io.WriteString(w, msg.TextBody); err != nil {
			return nil, "", fmt.Errorf("failed to write text body: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, "", fmt.Errorf("failed to close message writer: %w", err)
		}
		return buf.Bytes(), messageID, nil
	}

	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create message writer: %w", err)
	}

	iw, err := mw.CreateInline()
	if err != nil {
		return nil, "", fmt.Errorf("failed to create inline writer: %w", err)
	}

	for _, part := range []struct {
		contentType string
		body        string
	}{
		{"text/plain", msg.TextBody},
		{"text/html", msg.HTMLBody},
	} {
		var ph mail.InlineHeader
		ph.SetContentType(part.contentType, map[string]string{"charset": "utf-8"})
		pw, err := iw.CreatePart(ph)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create %s part: %w", part.contentType, err)
		}
		if _, err := io.WriteString(pw, part.body); err != nil {
			return nil, "", fmt.Errorf("failed to write %s part: %w", part.contentType, err)
		}
		if err := pw.Close(); err != nil {
			return nil, "", fmt.Errorf("failed to close %s part: %w", part.contentType, err)
		}
	}

	if err := iw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close inline writer: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close message writer: %w", err)
	}

	return buf.Bytes(), messageID, nil
}

// sendWithTLS sends over an implicit TLS connection (port 465 style).
// If the TLS handshake cannot be established, falls back to STARTTLS;
// nothing has been transmitted at that point.
func (c *SMTPChannel) sendWithTLS(ctx context.Context, addr string, auth smtp.Auth, from, to string, msg []byte) error {
	host := c.config.Host

	dialer := &tls.Dialer{Config: &tls.Config{ServerName: host}}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		c.logger.Debug().Err(err).Str("addr", addr).Msg("Implicit TLS failed, trying STARTTLS")
		return c.sendWithSTARTTLS(ctx, addr, auth, from, to, msg)
	}
	defer conn.Close()
	applyDeadline(ctx, conn)

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	return deliver(client, auth, from, to, msg)
}

// sendWithSTARTTLS sends email using STARTTLS upgrade
func (c *SMTPChannel) sendWithSTARTTLS(ctx context.Context, addr string, auth smtp.Auth, from, to string, msg []byte) error {
	client, err := c.dial(ctx, addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: c.config.Host}); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	return deliver(client, auth, from, to, msg)
}

// sendPlain upgrades to TLS only when the server offers it
func (c *SMTPChannel) sendPlain(ctx context.Context, addr string, auth smtp.Auth, from, to string, msg []byte) error {
	client, err := c.dial(ctx, addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: c.config.Host}); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	return deliver(client, auth, from, to, msg)
}

func (c *SMTPChannel) dial(ctx context.Context, addr string) (*smtp.Client, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	applyDeadline(ctx, conn)

	client, err := smtp.NewClient(conn, c.config.Host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}
	return client, nil
}

func applyDeadline(ctx context.Context, conn net.Conn) {
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
}

func deliver(client *smtp.Client, auth smtp.Auth, from, to string, msg []byte) error {
	if ok, _ := client.Extension("AUTH"); ok {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("failed to set mail from: %w", err)
	}

	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set mail recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start data: %w", err)
	}

	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	// DATA was accepted; a failed QUIT does not undo delivery
	_ = client.Quit()
	return nil
}
