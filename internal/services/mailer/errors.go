package mailer

import "fmt"

// DeliveryError is returned when a channel's transport rejects a message
type DeliveryError struct {
	Channel    string
	StatusCode int
	Message    string
}

func (e *DeliveryError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s delivery failed: %s", e.Channel, e.Message)
	}
	return fmt.Sprintf("%s delivery failed (status %d): %s", e.Channel, e.StatusCode, e.Message)
}
