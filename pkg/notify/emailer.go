// Package notify holds the outbound transports: SMTP email and the SMS
// provider. Both report success as a boolean and never panic past their
// boundary; callers decide whether a failed send aborts anything.
package notify

import (
	"fmt"
	"net/smtp"

	"go.uber.org/zap"

	"github.com/foshrdd/grievance/pkg/config"
	"github.com/foshrdd/grievance/pkg/metrics"
)

// Emitter sends one message to one recipient.
type Emitter interface {
	Send(recipient, subject, body string) bool
}

type SMTPEmitter struct {
	cfg    config.SMTPConfig
	logger *zap.Logger
}

func NewSMTPEmitter(cfg config.SMTPConfig, logger *zap.Logger) *SMTPEmitter {
	return &SMTPEmitter{cfg: cfg, logger: logger}
}

func (e *SMTPEmitter) Send(recipient, subject, body string) bool {
	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		e.from(), recipient, subject, body,
	)

	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)
	auth := smtp.PlainAuth("", e.cfg.User, e.cfg.Password, e.cfg.Host)

	if err := smtp.SendMail(addr, auth, e.from(), []string{recipient}, []byte(msg)); err != nil {
		e.logger.Error("failed to send email",
			zap.String("recipient", recipient),
			zap.String("subject", subject),
			zap.Error(err))
		metrics.OutboundSends.WithLabelValues("email", "failure").Inc()
		return false
	}

	metrics.OutboundSends.WithLabelValues("email", "success").Inc()
	return true
}

func (e *SMTPEmitter) from() string {
	if e.cfg.From != "" {
		return e.cfg.From
	}
	return e.cfg.User
}
