package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"
)

// SMTPMailer delivers transactional mail over plain SMTP with AUTH. Sends
// run in a goroutine bounded by the configured timeout; net/smtp has no
// context support of its own.
type SMTPMailer struct {
	addr     string
	auth     smtp.Auth
	from     string
	baseURL  string
	timeout  time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// BaseURL is the public origin used to build verification and reset
	// links, e.g. https://support.example.com.
	BaseURL string
	Timeout time.Duration
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPMailer{
		addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		auth:    auth,
		from:    cfg.From,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: timeout,
	}
}

func (m *SMTPMailer) Configured() bool { return true }

func (m *SMTPMailer) SendVerificationEmail(ctx context.Context, to, token string) error {
	link := m.baseURL + "/verify-email?token=" + token
	body := "Welcome to the service desk.\r\n\r\n" +
		"Confirm your email address by opening the link below:\r\n\r\n" +
		link + "\r\n\r\n" +
		"If you did not create this account, ignore this message.\r\n"
	return m.send(ctx, to, "Confirm your email address", body)
}

func (m *SMTPMailer) SendPasswordResetEmail(ctx context.Context, to, token string) error {
	link := m.baseURL + "/reset-password?token=" + token
	body := "A password reset was requested for your account.\r\n\r\n" +
		"Open the link below to choose a new password. The link expires shortly.\r\n\r\n" +
		link + "\r\n\r\n" +
		"If you did not request this, you can safely ignore this message.\r\n"
	return m.send(ctx, to, "Reset your password", body)
}

func (m *SMTPMailer) SendOTPEmail(ctx context.Context, to, code string) error {
	body := "Your sign-in code is:\r\n\r\n" +
		"    " + code + "\r\n\r\n" +
		"The code expires in a few minutes. Do not share it with anyone.\r\n"
	return m.send(ctx, to, "Your sign-in code", body)
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	msg := buildMessage(m.from, to, subject, body)

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- smtp.SendMail(m.addr, m.auth, m.from, []string{to}, msg)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp send: %w", ctx.Err())
	}
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
