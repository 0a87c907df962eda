package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"time"
)

// SMTPSender delivers notifications via email
type SMTPSender struct {
	host     string
	port     int
	user     string
	password string
	from     string
	to       []string
}

// NewSMTPSender creates a new SMTP sender. The fallback recipients are
// used when an alert carries no email target of its own.
func NewSMTPSender(host string, port int, user, password, from string, to []string) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		from:     from,
		to:       to,
	}
}

func (s *SMTPSender) Name() string { return "smtp" }

// Send sends the notification via email
func (s *SMTPSender) Send(ctx context.Context, n *Notification) error {
	recipients := s.to
	if n.Target != "" {
		recipients = []string{n.Target}
	}
	if len(recipients) == 0 {
		return fmt.Errorf("no email recipients configured")
	}

	subject := fmt.Sprintf("[chainpulse] %s alert: %s", n.AlertType, n.Token)
	body := s.buildEmailBody(n)

	message := fmt.Sprintf("From: %s\r\n", s.from)
	message += fmt.Sprintf("To: %s\r\n", recipients[0])
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += "Content-Type: text/plain; charset=UTF-8\r\n"
	message += "\r\n"
	message += body

	auth := smtp.PlainAuth("", s.user, s.password, s.host)
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	if err := smtp.SendMail(addr, auth, s.from, recipients, []byte(message)); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	return nil
}

func (s *SMTPSender) buildEmailBody(n *Notification) string {
	body := fmt.Sprintf("CHAINPULSE ALERT - %s\n", n.AlertType)
	body += "═══════════════════════════════════════\n\n"
	body += n.Message + "\n\n"
	body += "ALERT DETAILS\n"
	body += "─────────────────────────────────────\n"
	body += fmt.Sprintf("Chain:          %s\n", n.Chain)
	body += fmt.Sprintf("Token:          %s\n", n.Token)
	body += fmt.Sprintf("Condition:      %s %.4f\n", n.Condition, n.Threshold)
	body += fmt.Sprintf("Observed:       %.4f\n", n.Observed)
	body += fmt.Sprintf("Time:           %s\n\n", n.Timestamp.Format(time.RFC3339))
	body += "═══════════════════════════════════════\n"
	body += fmt.Sprintf("Environment: %s\n", n.Environment)
	body += fmt.Sprintf("Generated: %s\n", time.Now().UTC().Format("2006-01-02 15:04:05 UTC"))

	return body
}
