package mail

import (
	"fmt"
	"net/smtp"

	"github.com/ManuelReschke/GridFox/internal/pkg/env"
	"github.com/gofiber/fiber/v2/log"
)

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	Sender   string
}

// ConfigFromEnv reads the SMTP_* keys.
func ConfigFromEnv() Config {
	return Config{
		Host:     env.GetEnv("SMTP_HOST", ""),
		Port:     env.GetEnv("SMTP_PORT", "587"),
		Username: env.GetEnv("SMTP_USERNAME", ""),
		Password: env.GetEnv("SMTP_PASSWORD", ""),
		Sender:   env.GetEnv("SMTP_SENDER", ""),
	}
}

type sendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends HTML emails via SMTP
type SMTPMailer struct {
	cfg       Config
	send      sendFunc
	templates *Templates
}

// NewSMTPMailer creates a mailer with the embedded email templates.
func NewSMTPMailer(cfg Config) (*SMTPMailer, error) {
	tpl, err := LoadTemplates()
	if err != nil {
		return nil, err
	}
	if cfg.Sender == "" {
		cfg.Sender = "no-reply@localhost"
		log.Warnf("[Mail] SMTP_SENDER not set, using default sender: %s", cfg.Sender)
	}
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail, templates: tpl}, nil
}

// SendMail delivers one HTML message.
func (m *SMTPMailer) SendMail(to, subject, body string) error {
	if m.cfg.Host == "" {
		return fmt.Errorf("smtp host is not configured")
	}

	var auth smtp.Auth
	if m.cfg.Username != "" && m.cfg.Password != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%s", m.cfg.Host, m.cfg.Port)
	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", m.cfg.Sender, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	if err := m.send(addr, auth, m.cfg.Sender, []string{to}, msg); err != nil {
		log.Errorf("[Mail] SMTP send error: %v", err)
		return err
	}
	log.Infof("[Mail] Email sent to %s via %s", to, addr)
	return nil
}
