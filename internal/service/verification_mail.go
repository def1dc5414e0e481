package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"gopkg.in/gomail.v2"
)

// Notifier delivers verification codes. Implementations must return an error
// when the code could not be handed over for delivery.
type Notifier interface {
	SendVerificationCode(ctx context.Context, email, code string) error
}

// MailConfig describes the SMTP account used as the sender
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
	// How long codes stay valid, shown in the mail body
	CodeTTL time.Duration
}

// Mailer sends verification codes over SMTP
type Mailer struct {
	cfg    MailConfig
	dialer *gomail.Dialer
}

func NewMailer(cfg MailConfig) (*Mailer, error) {
	if cfg.Host == "" || cfg.Port <= 0 {
		return nil, errors.New("mail host and port must be set")
	}

	if cfg.Sender == "" {
		cfg.Sender = cfg.Username
	}

	if cfg.Sender == "" {
		return nil, errors.New("mail sender address must be set")
	}

	return &Mailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}, nil
}

var verificationTmpl = template.Must(template.New("verification").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
	<h2 style="color: #333;">Email Verification</h2>
	<p>Your verification code is:</p>
	<div style="font-size: 24px; font-weight: bold; margin: 20px 0; color: #2c3e50;">{{.Code}}</div>
	<p>This code will expire in {{.Minutes}} minutes.</p>
	<p style="color: #666; margin-top: 30px;">If you didn't request this code, please ignore this email.</p>
</div>`))

func (m *Mailer) SendVerificationCode(ctx context.Context, sendTo, code string) error {
	if sendTo == m.cfg.Sender {
		return errors.New("invalid email address")
	}

	var body bytes.Buffer
	err := verificationTmpl.Execute(&body, struct {
		Code    string
		Minutes int
	}{
		Code:    code,
		Minutes: int(m.cfg.CodeTTL.Minutes()),
	})
	if err != nil {
		return fmt.Errorf("failed to render verification mail, %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.Sender)
	msg.SetHeader("To", sendTo)
	msg.SetHeader("Subject", "Email Verification Code")
	msg.SetBody("text/html", body.String())

	// gomail has no context support, so at least don't start a send for a
	// request that is already gone
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send verification mail, %w", err)
	}

	return nil
}
