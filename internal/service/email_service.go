package service

import (
	"context"
	"fmt"
	"net/smtp"
	"time"

	"go.uber.org/zap"

	"github.com/LastCoderBoy/finice-auth/pkg/logger"
	"github.com/LastCoderBoy/finice-auth/pkg/retry"
)

// Sender delivers a single outbound email
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPConfig holds SMTP delivery settings
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// SMTPSender delivers email over plain SMTP
type SMTPSender struct {
	config *SMTPConfig
}

// NewSMTPSender creates an SMTPSender
func NewSMTPSender(config *SMTPConfig) *SMTPSender {
	return &SMTPSender{config: config}
}

// Send delivers one message
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		s.config.From, to, subject, body,
	))

	var auth smtp.Auth
	if s.config.User != "" {
		auth = smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	}
	return smtp.SendMail(addr, auth, s.config.From, []string{to}, msg)
}

// NoopSender drops email on the floor. Used when outbound email is
// disabled (local development, tests).
type NoopSender struct {
	log *logger.Logger
}

// NewNoopSender creates a NoopSender
func NewNoopSender() *NoopSender {
	return &NoopSender{log: logger.Get()}
}

// Send logs the message instead of delivering it
func (s *NoopSender) Send(ctx context.Context, to, subject, body string) error {
	s.log.Debug("Email delivery disabled, dropping message",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return nil
}

// EmailConfig holds the links embedded in outbound email
type EmailConfig struct {
	VerificationURL string
	ResetURL        string
}

// EmailService composes and delivers account email. Delivery is
// best-effort with a short backoff; all flows that send email treat a
// final failure as non-fatal.
type EmailService struct {
	sender Sender
	config *EmailConfig
	retry  *retry.Config
	log    *logger.Logger
}

// NewEmailService creates a new EmailService
func NewEmailService(sender Sender, config *EmailConfig) *EmailService {
	return &EmailService{
		sender: sender,
		config: config,
		retry: &retry.Config{
			MaxRetries:      2,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      2.0,
			JitterFactor:    0.1,
		},
		log: logger.Get(),
	}
}

func (s *EmailService) send(ctx context.Context, to, subject, body string) error {
	result := retry.Do(ctx, s.retry, func(ctx context.Context) error {
		return s.sender.Send(ctx, to, subject, body)
	})
	if result.Err != nil {
		s.log.Error("Email delivery failed",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Int("attempts", result.Attempts),
			zap.Error(result.LastError),
		)
		return result.Err
	}
	return nil
}

// SendVerification sends an email-verification message carrying the
// single-use token link
func (s *EmailService) SendVerification(ctx context.Context, to, token string) error {
	link := fmt.Sprintf("%s?token=%s", s.config.VerificationURL, token)
	body := fmt.Sprintf(
		"Welcome!\n\nPlease verify your email address by opening the link below:\n\n%s\n\nThe link expires shortly. If you did not create an account, ignore this message.\n",
		link,
	)
	return s.send(ctx, to, "Verify your email address", body)
}

// SendPasswordReset sends a password-reset message carrying the
// single-use token link
func (s *EmailService) SendPasswordReset(ctx context.Context, to, token string) error {
	link := fmt.Sprintf("%s?token=%s", s.config.ResetURL, token)
	body := fmt.Sprintf(
		"A password reset was requested for your account.\n\nOpen the link below to choose a new password:\n\n%s\n\nThe link expires shortly. If you did not request a reset, ignore this message.\n",
		link,
	)
	return s.send(ctx, to, "Reset your password", body)
}
