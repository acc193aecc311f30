package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/foshrdd/grievance/pkg/config"
	"github.com/foshrdd/grievance/pkg/metrics"
)

// SMSSender posts complaint-registered notifications to the SMS provider.
type SMSSender struct {
	cfg    config.SMSConfig
	client *http.Client
	logger *zap.Logger
}

func NewSMSSender(cfg config.SMSConfig, logger *zap.Logger) *SMSSender {
	return &SMSSender{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

type smsPayload struct {
	Token   string `json:"token"`
	Secret  string `json:"secret"`
	To      string `json:"to"`
	Message string `json:"message"`
}

// SendTicketConfirmation tells the complainant their ticket was registered.
func (s *SMSSender) SendTicketConfirmation(mobile, ticketNumber string) bool {
	message := fmt.Sprintf("Your complaint #%s has been registered. You can track its status online.", ticketNumber)
	return s.send(FormatMobileNumber(mobile), message)
}

func (s *SMSSender) send(mobile, message string) bool {
	payload, err := json.Marshal(smsPayload{
		Token:   s.cfg.APIToken,
		Secret:  s.cfg.APISecret,
		To:      mobile,
		Message: message,
	})
	if err != nil {
		s.logger.Error("failed to marshal sms payload", zap.Error(err))
		return false
	}

	resp, err := s.client.Post(s.cfg.APIURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		s.logger.Error("failed to send sms", zap.String("mobile", mobile), zap.Error(err))
		metrics.OutboundSends.WithLabelValues("sms", "failure").Inc()
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Error("sms provider rejected message",
			zap.String("mobile", mobile),
			zap.Int("status", resp.StatusCode))
		metrics.OutboundSends.WithLabelValues("sms", "failure").Inc()
		return false
	}

	metrics.OutboundSends.WithLabelValues("sms", "success").Inc()
	return true
}

// FormatMobileNumber normalizes local Pakistani numbers to the 92 country
// prefix the provider expects.
func FormatMobileNumber(mobile string) string {
	var digits strings.Builder
	for _, r := range mobile {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	cleaned := digits.String()

	switch {
	case strings.HasPrefix(cleaned, "03"):
		return "923" + cleaned[2:]
	case strings.HasPrefix(cleaned, "3"):
		return "923" + cleaned[1:]
	}
	return cleaned
}
