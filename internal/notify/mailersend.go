package notify

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/mailersend/mailersend-go"
)

// MailerSendMailer delivers through the MailerSend HTTP API.
type MailerSendMailer struct {
	client *mailersend.Mailersend
	from   mailersend.From
}

// NewMailerSend returns a MailerSend-backed mailer. An empty API key or
// sender address yields ErrNotConfigured.
func NewMailerSend(apiKey string, from Sender) (*MailerSendMailer, error) {
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(from.Address) == "" {
		return nil, ErrNotConfigured
	}
	return &MailerSendMailer{
		client: mailersend.NewMailersend(apiKey),
		from:   mailersend.From{Name: from.Name, Email: from.Address},
	}, nil
}

func (m *MailerSendMailer) Send(ctx context.Context, msg Message) error {
	email := m.client.Email.NewMessage()
	email.SetFrom(m.from)
	email.SetRecipients([]mailersend.Recipient{{Name: msg.ToName, Email: msg.To}})
	email.SetSubject(msg.Subject)
	if strings.TrimSpace(msg.Text) != "" {
		email.SetText(msg.Text)
	}
	if strings.TrimSpace(msg.HTML) != "" {
		email.SetHTML(msg.HTML)
	}
	for _, a := range msg.Attachments {
		att := mailersend.Attachment{
			Content:  base64.StdEncoding.EncodeToString(a.Data),
			Filename: a.Filename,
		}
		if a.ContentID != "" {
			att.Disposition = "inline"
			att.ID = a.ContentID
		}
		email.AddAttachment(att)
	}

	res, err := m.client.Email.Send(ctx, email)
	if err != nil {
		return fmt.Errorf("mailersend send: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return fmt.Errorf("mailersend send: unexpected status %d", res.StatusCode)
	}
	return nil
}
