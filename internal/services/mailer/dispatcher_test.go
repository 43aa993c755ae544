package mailer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/alphapicks/internal/common"
	"github.com/ternarybob/alphapicks/internal/interfaces"
	"github.com/ternarybob/alphapicks/internal/models"
)

type fakeChannel struct {
	err       error
	messageID string
	sent      []interfaces.MailMessage
	deadline  bool
}

func (f *fakeChannel) Name() string { return "fake" }

func (f *fakeChannel) Send(ctx context.Context, msg interfaces.MailMessage) (string, error) {
	_, f.deadline = ctx.Deadline()
	f.sent = append(f.sent, msg)
	return f.messageID, f.err
}

var testReport = models.Report{
	Subject: "🤑 Kalshi Alpha Picks",
	Text:    "🤑 Tonight's Kalshi Alpha Picks (Demo)\n\n1. A\n",
	HTML:    "<h1>picks</h1>",
}

func newTestDispatcher(channel interfaces.MailChannel) *Dispatcher {
	return NewDispatcher(channel,
		interfaces.MailAddress{Name: "Kalshi Bot", Address: "bot@example.com"},
		"Architect", time.Second, arbor.NewLogger())
}

func TestDispatch_Delivered(t *testing.T) {
	channel := &fakeChannel{messageID: "<abc@brevo>"}

	result := newTestDispatcher(channel).Dispatch(context.Background(), testReport, " trader@example.com ")

	assert.True(t, result.Delivered)
	assert.Equal(t, "fake", result.Channel)
	assert.Equal(t, "trader@example.com", result.Recipient)
	assert.Equal(t, "<abc@brevo>", result.MessageID)
	assert.Empty(t, result.Reason)

	require.Len(t, channel.sent, 1)
	msg := channel.sent[0]
	assert.Equal(t, "Kalshi Bot", msg.From.Name)
	assert.Equal(t, "bot@example.com", msg.From.Address)
	assert.Equal(t, "Architect", msg.To.Name)
	assert.Equal(t, "trader@example.com", msg.To.Address)
	assert.Equal(t, testReport.Subject, msg.Subject)
	assert.Equal(t, testReport.Text, msg.TextBody)
	assert.Equal(t, testReport.HTML, msg.HTMLBody)
	assert.True(t, channel.deadline)
}

func TestDispatch_FailureIsNotRetried(t *testing.T) {
	channel := &fakeChannel{err: &DeliveryError{Channel: "fake", StatusCode: 401, Message: "unauthorized"}}

	result := newTestDispatcher(channel).Dispatch(context.Background(), testReport, "trader@example.com")

	assert.False(t, result.Delivered)
	assert.Contains(t, result.Reason, "401")
	assert.Contains(t, result.Reason, "unauthorized")
	assert.Len(t, channel.sent, 1, "exactly one attempt")
}

func TestDispatch_RejectedBeforeSend(t *testing.T) {
	tests := []struct {
		name      string
		recipient string
		report    models.Report
	}{
		{"empty recipient", "", testReport},
		{"malformed recipient", "not-an-email", testReport},
		{"empty body", "trader@example.com", models.Report{Subject: "s", Text: "  "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			channel := &fakeChannel{}

			result := newTestDispatcher(channel).Dispatch(context.Background(), tt.report, tt.recipient)

			assert.False(t, result.Delivered)
			assert.NotEmpty(t, result.Reason)
			assert.Empty(t, channel.sent)
		})
	}
}

func TestDispatch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := newTestDispatcher(NewLogChannel(arbor.NewLogger())).Dispatch(ctx, testReport, "trader@example.com")

	assert.False(t, result.Delivered)
	assert.Equal(t, "log", result.Channel)
	assert.Contains(t, result.Reason, context.Canceled.Error())
}

func TestDispatch_LogChannel(t *testing.T) {
	result := newTestDispatcher(NewLogChannel(arbor.NewLogger())).Dispatch(context.Background(), testReport, "trader@example.com")

	assert.True(t, result.Delivered)
	assert.Equal(t, "log", result.Channel)
}

func TestNewChannel(t *testing.T) {
	logger := arbor.NewLogger()

	tests := []struct {
		name     string
		cfg      common.MailerConfig
		wantName string
		wantErr  bool
	}{
		{name: "brevo", cfg: common.MailerConfig{Channel: "brevo", Brevo: common.BrevoConfig{APIKey: "k"}}, wantName: "brevo"},
		{name: "brevo without key", cfg: common.MailerConfig{Channel: "brevo"}, wantErr: true},
		{name: "smtp", cfg: common.MailerConfig{Channel: "SMTP"}, wantName: "smtp"},
		{name: "log", cfg: common.MailerConfig{Channel: "log"}, wantName: "log"},
		{name: "unknown", cfg: common.MailerConfig{Channel: "pigeon"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			channel, err := NewChannel(&tt.cfg, nil, logger)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, channel.Name())
		})
	}
}

func TestNewDispatcherFromConfig(t *testing.T) {
	cfg := common.NewDefaultConfig().Mailer
	cfg.Channel = "log"

	d, err := NewDispatcherFromConfig(&cfg, nil, arbor.NewLogger())
	require.NoError(t, err)

	assert.Equal(t, "log", d.Channel())
	assert.Equal(t, "Kalshi Bot", d.from.Name)
	assert.Equal(t, "bot@example.com", d.from.Address)
	assert.Equal(t, "Architect", d.recipientName)
	assert.Equal(t, 30*time.Second, d.timeout)
}

func TestDeliveryError(t *testing.T) {
	var err error = &DeliveryError{Channel: "brevo", StatusCode: 400, Message: "bad sender"}
	assert.Equal(t, "brevo delivery failed (status 400): bad sender", err.Error())

	var target *DeliveryError
	assert.True(t, errors.As(err, &target))

	err = &DeliveryError{Channel: "smtp", Message: "refused"}
	assert.Equal(t, "smtp delivery failed: refused", err.Error())
}
