package service

import (
	"fmt"
	"time"

	"github.com/altostack/contactvault/config"
	"github.com/altostack/contactvault/pkg/circuit"
	"github.com/altostack/contactvault/pkg/logger"
	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"
)

// Mailer delivers verification and password-reset messages out of band.
type Mailer interface {
	SendVerificationEmail(to, token string) error
	SendPasswordResetEmail(to, token string) error
}

// SMTPMailer sends mail through an SMTP relay, guarded by a circuit breaker
// so a dead relay fails fast instead of stalling request handlers.
type SMTPMailer struct {
	dialer  *gomail.Dialer
	from    string
	baseURL string
	breaker *circuit.Breaker
}

func NewSMTPMailer(cfg config.SMTPConfig, baseURL string) *SMTPMailer {
	return &SMTPMailer{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:    cfg.From,
		baseURL: baseURL,
		breaker: circuit.NewBreaker("smtp", 5, 30*time.Second, logger.GetLogger()),
	}
}

func (m *SMTPMailer) SendVerificationEmail(to, token string) error {
	subject := "Verify your email address"
	body := fmt.Sprintf(
		"Welcome! Please verify your email address by opening the link below:\r\n\r\n%s/api/auth/verify-email/%s\r\n",
		m.baseURL, token,
	)
	return m.send(to, subject, body)
}

func (m *SMTPMailer) SendPasswordResetEmail(to, token string) error {
	subject := "Password reset request"
	body := fmt.Sprintf(
		"A password reset was requested for your account. Use the token below within one hour:\r\n\r\n%s\r\n\r\nIf you did not request this, ignore this message.\r\n",
		token,
	)
	return m.send(to, subject, body)
}

func (m *SMTPMailer) send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	err := m.breaker.Execute(func() error {
		return m.dialer.DialAndSend(msg)
	})
	if err != nil {
		logger.GetLogger().Warn("Failed to send email",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// LogMailer logs instead of sending, for development and tests.
type LogMailer struct{}

func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

func (m *LogMailer) SendVerificationEmail(to, token string) error {
	logger.GetLogger().Info("Verification email (log mailer)",
		zap.String("to", to),
		zap.String("token", token),
	)
	return nil
}

func (m *LogMailer) SendPasswordResetEmail(to, token string) error {
	logger.GetLogger().Info("Password reset email (log mailer)",
		zap.String("to", to),
		zap.String("token", token),
	)
	return nil
}
