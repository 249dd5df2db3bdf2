// Package notify delivers visitor emails through MailerSend, SMTP or the log.
package notify

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by a provider missing its credentials.
var ErrNotConfigured = errors.New("mail provider not configured")

// Attachment is a file sent with a message. A non-empty ContentID makes it
// addressable from the HTML body as cid:<ContentID>.
type Attachment struct {
	Filename    string
	ContentType string
	ContentID   string
	Data        []byte
}

// Message is one outgoing email.
type Message struct {
	To          string
	ToName      string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

// Mailer sends a message. Implementations are safe for concurrent use and
// a retry of the same message is harmless apart from a duplicate email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Sender identifies the From header.
type Sender struct {
	Name    string
	Address string
}
