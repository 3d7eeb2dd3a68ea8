package email

import (
	"context"
	"fmt"
	"net/smtp"
	"os"
	"sync"
)

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type SMTPConfig struct {
	Server   string
	Port     string
	User     string
	Pass     string
	FromAddr string
	FromName string
}

func ConfigFromEnv() SMTPConfig {
	return SMTPConfig{
		Server:   os.Getenv("SMTP_SERVER"),
		Port:     os.Getenv("SMTP_PORT"),
		User:     os.Getenv("SMTP_USER"),
		Pass:     os.Getenv("SMTP_PASS"),
		FromAddr: os.Getenv("FROM_ADDR"),
		FromName: os.Getenv("FROM_NAME"),
	}
}

func (c SMTPConfig) Complete() bool {
	return c.Server != "" && c.Port != "" && c.User != "" && c.Pass != "" && c.FromAddr != "" && c.FromName != ""
}

type SMTP struct {
	cfg SMTPConfig
	// send is smtp.SendMail outside tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTP(cfg SMTPConfig) *SMTP {
	return &SMTP{cfg: cfg, send: smtp.SendMail}
}

func (s *SMTP) Send(ctx context.Context, to, subject, body string) error {
	if !s.cfg.Complete() {
		return fmt.Errorf("missing required SMTP settings: SMTP_SERVER=%s, SMTP_PORT=%s, FROM_ADDR=%s",
			s.cfg.Server, s.cfg.Port, s.cfg.FromAddr)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := []byte(fmt.Sprintf("From: %s <%s>\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"Content-Type: text/plain; charset=UTF-8\r\n\r\n"+
		"%s",
		s.cfg.FromName, s.cfg.FromAddr, to, subject, body))

	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Server)

	if err := s.send(s.cfg.Server+":"+s.cfg.Port, auth, s.cfg.FromAddr, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// PasswordResetBody is the text of the reset mail for link.
func PasswordResetBody(link string) string {
	return fmt.Sprintf("Click the link below to reset your password:\n\n%s\n\nThis link will expire in 24 hours.", link)
}

const PasswordResetSubject = "Reset your referral account password"

// Outbox collects mail in memory. It is used when SMTP is not configured and
// in tests.
type Outbox struct {
	mu   sync.Mutex
	Sent []Message
}

type Message struct {
	To      string
	Subject string
	Body    string
}

func (o *Outbox) Send(ctx context.Context, to, subject, body string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Sent = append(o.Sent, Message{To: to, Subject: subject, Body: body})
	return nil
}

func (o *Outbox) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Message(nil), o.Sent...)
}
