package interfaces

import (
	"context"
)

// MailAddress is a display name and address pair
type MailAddress struct {
	Name    string
	Address string
}

// MailMessage is a single outbound notification
type MailMessage struct {
	From     MailAddress
	To       MailAddress
	Subject  string
	TextBody string
	HTMLBody string
}

// MailChannel delivers one message. Send must either hand the whole message
// to the transport or return an error; it never retries.
// The returned string is the transport's message id, if any.
type MailChannel interface {
	Send(ctx context.Context, msg MailMessage) (string, error)
	Name() string
}
