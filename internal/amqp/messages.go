package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Badr133ne/sim-charge-guardian/internal/core"
)

// SmsSyncMessage carries one received SMS from a relay to the server.
type SmsSyncMessage struct {
	SimID       string    `json:"simId"`
	Body        string    `json:"body"`
	Sender      string    `json:"sender,omitempty"`
	ReceivedAt  time.Time `json:"receivedAt"`
	PublishedAt time.Time `json:"publishedAt"`
}

// NewSmsSyncMessage wraps sms for publishing, stamping the publish time.
func NewSmsSyncMessage(sms core.SmsMessage) *SmsSyncMessage {
	now := time.Now()
	received := sms.ReceivedAt
	if received.IsZero() {
		received = now
	}
	return &SmsSyncMessage{
		SimID:       sms.SimID,
		Body:        sms.Body,
		Sender:      sms.Sender,
		ReceivedAt:  received,
		PublishedAt: now,
	}
}

// SMS returns the domain message.
func (m *SmsSyncMessage) SMS() core.SmsMessage {
	return core.SmsMessage{
		SimID:      m.SimID,
		Body:       m.Body,
		Sender:     m.Sender,
		ReceivedAt: m.ReceivedAt,
	}
}

// ToJSON converts the message to JSON bytes
func (m *SmsSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SmsSyncMessageFromJSON decodes and validates a message body.
func SmsSyncMessageFromJSON(data []byte) (*SmsSyncMessage, error) {
	var msg SmsSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.SMS().Validate(); err != nil {
		return nil, fmt.Errorf("invalid SMS message: %w", err)
	}
	return &msg, nil
}
