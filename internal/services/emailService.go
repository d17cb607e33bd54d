package services

import (
	"fmt"
	"html"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"
)

type EmailService interface {
	SendEmail(to, subject, msg string) error
	Enabled() bool
}

// SMTPConfig is read from SMTP_HOST, SMTP_PORT, SMTP_USERNAME and SMTP_PASSWORD.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

func SMTPConfigFromEnv() SMTPConfig {
	cfg := SMTPConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     587,
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
	}
	if cfg.Host == "" {
		cfg.Host = "smtp.gmail.com"
	}
	if p, err := strconv.Atoi(os.Getenv("SMTP_PORT")); err == nil && p > 0 {
		cfg.Port = p
	}
	return cfg
}

type emailService struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

// NewEmailService returns a service that sends through SMTP. Without a username it
// is disabled and SendEmail does nothing.
func NewEmailService(cfg SMTPConfig) EmailService {
	s := &emailService{cfg: cfg}
	if cfg.Username != "" {
		s.dialer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	}
	return s
}

func (e *emailService) Enabled() bool {
	return e.dialer != nil
}

func (e *emailService) SendEmail(to, subject, msg string) error {
	if !e.Enabled() {
		log.Debug().Str("to", to).Str("subject", subject).Msg("SMTP not configured, skipping email")
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.cfg.Username)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", msg)

	if err := e.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func passwordChangedEmail(name string) string {
	return fmt.Sprintf("<p>Hi %s,</p><p>The password for your Spendly account was just changed. "+
		"If this wasn't you, reset it right away.</p>", html.EscapeString(name))
}
