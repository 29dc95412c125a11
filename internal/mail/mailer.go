package mail

import (
	"fmt"
	"net/smtp"

	"github.com/rs/zerolog/log"
)

// Mailer sends notification emails. Delivery is best-effort: callers log
// failures and move on, they never retry or roll back settled work.
type Mailer interface {
	Send(to, subject, body string) error
}

type SMTPMailer struct {
	host   string
	port   int
	user   string
	pass   string
	sender string
}

func NewSMTPMailer(host string, port int, user, pass, sender string) *SMTPMailer {
	if sender == "" {
		sender = "no-reply@localhost"
	}
	return &SMTPMailer{host: host, port: port, user: user, pass: pass, sender: sender}
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	if m.host == "" {
		log.Warn().Msg("smtp host not configured, skipping email")
		return nil
	}

	var auth smtp.Auth
	if m.user != "" && m.pass != "" {
		auth = smtp.PlainAuth("", m.user, m.pass, m.host)
	}

	addr := fmt.Sprintf("%s:%d", m.host, m.port)

	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", m.sender, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/plain; charset=UTF-8\r\n\r\n" +
			body,
	)

	if err := smtp.SendMail(addr, auth, m.sender, []string{to}, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	log.Info().Str("to", to).Msg("email sent")
	return nil
}
