package notify

import (
	"context"
	"log/slog"
)

// LogMailer writes messages to the log instead of sending them. Development only:
// one-time codes appear in the log output.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	names := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		names = append(names, a.Filename)
	}
	m.logger.InfoContext(ctx, "email not sent (log mailer)",
		"to", msg.To,
		"subject", msg.Subject,
		"text", msg.Text,
		"attachments", names,
	)
	return nil
}
