package notify

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// EmailService sends best-effort emails through SendGrid. A nil *EmailService
// disables the channel.
type EmailService struct {
	client   *sendgrid.Client
	fromName string
	fromAddr string
}

// NewEmailService returns nil when no API key is configured.
func NewEmailService(apiKey, fromName, fromAddr string) *EmailService {
	if apiKey == "" {
		return nil
	}
	return &EmailService{
		client:   sendgrid.NewSendClient(apiKey),
		fromName: fromName,
		fromAddr: fromAddr,
	}
}

// Send delivers one plain-text email.
func (es *EmailService) Send(toEmail, subject, content string) error {
	if es == nil || toEmail == "" {
		return nil
	}
	from := mail.NewEmail(es.fromName, es.fromAddr)
	to := mail.NewEmail("", toEmail)
	msg := mail.NewSingleEmail(from, subject, to, content, content)
	resp, err := es.client.Send(msg)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("send email: status %d", resp.StatusCode)
	}
	return nil
}
