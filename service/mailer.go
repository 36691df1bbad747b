// file: service/mailer.go

package service

import (
	"fmt"
	"go-auth-api/logger"
	"net/smtp"
	"strings"
)

// IMailer defines the contract for the outbound mail collaborator.
// This abstraction keeps the AuthService independent of the actual
// transport and lets tests capture outgoing messages.
type IMailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer implements IMailer over a plain SMTP relay.
type SMTPMailer struct {
	addr string
	auth smtp.Auth
	from string
}

func NewSMTPMailer(host, port, username, password, from string) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPMailer{
		addr: fmt.Sprintf("%s:%s", host, port),
		auth: auth,
		from: from,
	}
}

// Send delivers a single HTML mail to one recipient.
func (m *SMTPMailer) Send(to, subject, body string) error {
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", m.from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg.String())); err != nil {
		logger.Log.WithError(err).WithField("to", to).Error("Failed to send mail")
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}
