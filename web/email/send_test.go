package email

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullConfig() SMTPConfig {
	return SMTPConfig{Server: "smtp.example.com", Port: "587", User: "u", Pass: "p", FromAddr: "no-reply@example.com", FromName: "Referrals"}
}

func TestSMTPSend(t *testing.T) {
	s := NewSMTP(fullConfig())
	var gotAddr string
	var gotMsg []byte
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotMsg = addr, msg
		return nil
	}

	require.NoError(t, s.Send(context.Background(), "s@x.io", PasswordResetSubject, PasswordResetBody("http://x/reset?token=t")))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.True(t, strings.HasPrefix(string(gotMsg), "From: Referrals <no-reply@example.com>\r\nTo: s@x.io\r\n"))
	assert.Contains(t, string(gotMsg), "token=t")
}

func TestSMTPSendErrors(t *testing.T) {
	assert.Error(t, NewSMTP(SMTPConfig{}).Send(context.Background(), "a", "b", "c"))

	s := NewSMTP(fullConfig())
	s.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("421 busy") }
	assert.ErrorContains(t, s.Send(context.Background(), "a", "b", "c"), "421 busy")
}

func TestOutbox(t *testing.T) {
	var o Outbox
	require.NoError(t, o.Send(context.Background(), "a@x.io", "s", "b"))
	assert.Equal(t, []Message{{To: "a@x.io", Subject: "s", Body: "b"}}, o.Messages())
}
