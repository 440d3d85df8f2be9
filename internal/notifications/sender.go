package notifications

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

// SMTPSender delivers mail through a plain SMTP relay.
type SMTPSender struct {
	Addr string // host:port
	From string
	Auth smtp.Auth // nil for an open relay
}

// Send delivers one message. The context deadline is not plumbed into
// net/smtp; the relay is expected to sit on the local network.
func (s *SMTPSender) Send(_ context.Context, to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + s.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(s.Addr, s.Auth, s.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

// LogSender writes deliveries to the log instead of sending mail.
// Used in development and as a safe default when no relay is
// configured.
type LogSender struct {
	Logger *log.Logger
}

func (s *LogSender) Send(_ context.Context, to, subject, _ string) error {
	logger := s.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("notifications: would send to %s: %s", to, subject)
	return nil
}
