package core

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrEmptySms     = errors.New("SMS body is empty")
	ErrMissingSimID = errors.New("SIM id is required")
)

// SmsMessage is an inbound carrier SMS attributed to one SIM card.
type SmsMessage struct {
	SimID      string    `json:"simId"`
	Body       string    `json:"body"`
	Sender     string    `json:"sender,omitempty"`
	ReceivedAt time.Time `json:"receivedAt"`
}

func (m SmsMessage) Validate() error {
	if strings.TrimSpace(m.SimID) == "" {
		return ErrMissingSimID
	}
	if strings.TrimSpace(m.Body) == "" {
		return ErrEmptySms
	}
	return nil
}
