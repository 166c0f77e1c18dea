package sms

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestDisabledSenderReportsSentinel(t *testing.T) {
	sender := NewSender(Settings{Enabled: false}, zap.NewNop())

	err := sender.Send(context.Background(), Message{To: "+15551230000", Body: "123456"})
	if !errors.Is(err, ErrSMSDisabled) {
		t.Fatalf("expected ErrSMSDisabled, got %v", err)
	}
}

func TestLogSenderRequiresRecipient(t *testing.T) {
	sender := NewSender(Settings{Enabled: true, From: "phonegate"}, zap.NewNop())

	if err := sender.Send(context.Background(), Message{Body: "123456"}); err == nil {
		t.Fatal("expected error for missing recipient")
	}

	if err := sender.Send(context.Background(), Message{To: "+15551230000", Body: "123456"}); err != nil {
		t.Fatalf("expected send to succeed: %v", err)
	}
}
