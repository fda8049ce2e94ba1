package notify

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

type Mail struct {
	To      string
	Subject string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// SMTPMailer sends HTML mail with PLAIN auth.
type SMTPMailer struct {
	Host      string
	Port      int
	User      string
	Password  string
	FromEmail string
	FromName  string

	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func (m *SMTPMailer) Send(ctx context.Context, mail Mail) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if mail.To == "" {
		return fmt.Errorf("mail %q has no recipient", mail.Subject)
	}
	send := m.send
	if send == nil {
		send = smtp.SendMail
	}
	addr := net.JoinHostPort(m.Host, strconv.Itoa(m.Port))
	auth := smtp.PlainAuth("", m.User, m.Password, m.Host)
	return send(addr, auth, m.FromEmail, []string{mail.To}, m.message(mail))
}

func (m *SMTPMailer) message(mail Mail) []byte {
	from := m.FromEmail
	if m.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", m.FromName), m.FromEmail)
	}
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + mail.To + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", mail.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(mail.HTML)
	return []byte(b.String())
}

// LogMailer stands in for SMTP in development: it only logs what would be sent.
type LogMailer struct {
	Log *zap.Logger
}

func (m LogMailer) Send(_ context.Context, mail Mail) error {
	log := m.Log
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("email.dev.logged", zap.String("to", mail.To), zap.String("subject", mail.Subject), zap.Int("bytes", len(mail.HTML)))
	return nil
}
