package mail

import (
	"log/slog"
	"strings"
)

type Message struct {
	To      []string
	Cc      []string
	Subject string
	Body    string
	IsHTML  bool
}

type MailSender interface {
	Send(message *Message) error
}

// LogMailSender writes messages to the log instead of delivering them. It is
// used when no mail backend is configured.
type LogMailSender struct{}

func (LogMailSender) Send(message *Message) error {
	slog.Info("Mail message",
		"to", strings.Join(message.To, ","),
		"subject", message.Subject,
		"body", message.Body,
	)
	return nil
}
