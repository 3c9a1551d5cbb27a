package main

import (
	"strings"
	"testing"
	"time"
)

func TestReadMessages(t *testing.T) {
	at := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	input := "Vous avez reçu une recharge de 500 DA. ID: 1\n\n   \n  Recharge de 200 DA Ref 2  \n"

	msgs, err := readMessages(strings.NewReader(input), "sim-1", "Mobilis", at)
	if err != nil {
		t.Fatalf("readMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[1].Body != "Recharge de 200 DA Ref 2" {
		t.Errorf("body not trimmed: %q", msgs[1].Body)
	}
	for _, m := range msgs {
		if m.SimID != "sim-1" || m.Sender != "Mobilis" || !m.ReceivedAt.Equal(at) {
			t.Errorf("unexpected message: %+v", m)
		}
		if err := m.Validate(); err != nil {
			t.Errorf("message should be valid: %v", err)
		}
	}
}

func TestRunRequiresSim(t *testing.T) {
	if err := run(" ", "", ""); err == nil || !strings.Contains(err.Error(), "-sim") {
		t.Fatalf("expected missing sim error, got %v", err)
	}
}
