package sms

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// ErrSMSDisabled signals that SMS delivery is disabled via configuration.
var ErrSMSDisabled = errors.New("sms: delivery disabled")

// Message represents an outbound text message.
type Message struct {
	To   string
	Body string
}

// Sender defines behaviour for delivering text messages. Implementations for
// real gateways live outside this module; the core only depends on this
// interface.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Settings capture runtime configuration for outbound SMS.
type Settings struct {
	Enabled bool
	From    string
}

// NewSender returns a Sender appropriate for the supplied settings. When
// delivery is disabled the returned sender reports ErrSMSDisabled.
func NewSender(cfg Settings, log *zap.Logger) Sender {
	if !cfg.Enabled {
		return disabledSender{}
	}
	return &logSender{from: strings.TrimSpace(cfg.From), log: log}
}

type disabledSender struct{}

func (disabledSender) Send(ctx context.Context, msg Message) error {
	return ErrSMSDisabled
}

// logSender records outbound messages to the application log. It stands in for
// a real gateway in development and headless test deployments, where the code
// is also returned synchronously in the API response.
type logSender struct {
	from string
	log  *zap.Logger
}

func (s *logSender) Send(ctx context.Context, msg Message) error {
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return errors.New("sms: recipient is required")
	}

	if s.log != nil {
		s.log.Info("sms dispatched",
			zap.String("from", s.from),
			zap.String("to", to),
		)
	}
	return nil
}
