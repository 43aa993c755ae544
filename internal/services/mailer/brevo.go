package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/alphapicks/internal/common"
	"github.com/ternarybob/alphapicks/internal/interfaces"
)

const (
	DefaultBrevoURL = "https://api.brevo.com/v3/smtp/email"
	maxReasonBody   = 512
)

// BrevoChannel sends transactional email through the Brevo HTTP API
type BrevoChannel struct {
	url        string
	apiKey     string
	httpClient *http.Client
	logger     arbor.ILogger
}

type brevoContact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type brevoRequest struct {
	Sender      brevoContact   `json:"sender"`
	To          []brevoContact `json:"to"`
	Subject     string         `json:"subject"`
	TextContent string         `json:"textContent"`
	HTMLContent string         `json:"htmlContent,omitempty"`
}

type brevoResponse struct {
	MessageID string `json:"messageId"`
}

func NewBrevoChannel(url, apiKey string, httpClient *http.Client, logger arbor.ILogger) *BrevoChannel {
	if url == "" {
		url = DefaultBrevoURL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &BrevoChannel{
		url:        url,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: httpClient,
		logger:     logger,
	}
}

func (c *BrevoChannel) Name() string { return "brevo" }

// Send posts the message once. Only HTTP 201 counts as delivered.
func (c *BrevoChannel) Send(ctx context.Context, msg interfaces.MailMessage) (string, error) {
	body, err := json.Marshal(brevoRequest{
		Sender:      brevoContact{Name: msg.From.Name, Email: msg.From.Address},
		To:          []brevoContact{{Name: msg.To.Name, Email: msg.To.Address}},
		Subject:     msg.Subject,
		TextContent: msg.TextBody,
		HTMLContent: msg.HTMLBody,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode brevo request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create brevo request: %w", err)
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("brevo request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read brevo response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		return "", &DeliveryError{
			Channel:    c.Name(),
			StatusCode: resp.StatusCode,
			Message:    common.Truncate(strings.TrimSpace(string(respBody)), maxReasonBody),
		}
	}

	var result brevoResponse
	if len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, &result); err != nil {
			// Accepted but unparseable: the message is out, only the id is lost
			c.logger.Warn().Err(err).Msg("Brevo accepted message but response could not be decoded")
		}
	}

	return result.MessageID, nil
}

