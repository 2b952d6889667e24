package account

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/ryanwaits/openblocks-sub000/internal/config"
)

// EmailService publishes transactional email requests to NATS rather than
// sending them directly, leaving actual delivery to a separate mailer
// consumer — grounded on the teacher's internal/service/email_service.go.
type EmailService struct {
	cfg  *config.EmailConfig
	nats *nats.Conn
}

// Message is a transactional email request.
type Message struct {
	To      string         `json:"to"`
	Subject string         `json:"subject"`
	Type    string         `json:"type"`
	Data    map[string]any `json:"data"`
}

// NewEmailService builds an EmailService publishing over nc.
func NewEmailService(cfg *config.EmailConfig, nc *nats.Conn) *EmailService {
	return &EmailService{cfg: cfg, nats: nc}
}

// Publish sends msg to the "emails" subject.
func (s *EmailService) Publish(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal email message: %w", err)
	}
	if err := s.nats.Publish("emails", data); err != nil {
		return fmt.Errorf("failed to publish email: %w", err)
	}
	return nil
}

// SendWelcome publishes a welcome email for a newly registered user.
func (s *EmailService) SendWelcome(to, name string) error {
	return s.Publish(&Message{
		To:      to,
		Subject: "Welcome!",
		Type:    "welcome",
		Data:    map[string]any{"name": name},
	})
}

// SendPasswordReset publishes a password reset email carrying resetURL.
func (s *EmailService) SendPasswordReset(to, name, token, resetURL string) error {
	return s.Publish(&Message{
		To:      to,
		Subject: "Reset your password",
		Type:    "password_reset",
		Data: map[string]any{
			"name":      name,
			"token":     token,
			"reset_url": resetURL,
		},
	})
}
