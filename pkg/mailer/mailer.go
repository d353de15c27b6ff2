package mailer

import (
	"fmt"
	"net/smtp"
	"strconv"
	"time"

	"github.com/domodwyer/mailyak/v3"
	"github.com/sirupsen/logrus"
)

// Sender delivers one-time codes to an email address
type Sender interface {
	SendOTP(email, code, purpose string, validFor time.Duration) error
	GetName() string
}

// SMTPConfig holds configuration for the SMTP sender
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// SMTPSender sends mail through an SMTP relay
type SMTPSender struct {
	config SMTPConfig
	auth   smtp.Auth
}

// NewSMTPSender creates a new SMTP sender. Authentication is skipped when
// no username is configured.
func NewSMTPSender(config SMTPConfig) *SMTPSender {
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}
	return &SMTPSender{config: config, auth: auth}
}

// SendOTP emails a one-time code
func (s *SMTPSender) SendOTP(email, code, purpose string, validFor time.Duration) error {
	mail := mailyak.New(s.config.Host+":"+strconv.Itoa(s.config.Port), s.auth)
	mail.To(email)
	mail.From(s.config.From)
	mail.FromName(s.config.FromName)
	mail.Subject(Subject(purpose))
	mail.Plain().Set(Body(code, purpose, validFor))

	if err := mail.Send(); err != nil {
		return fmt.Errorf("failed to send OTP email: %w", err)
	}
	return nil
}

// GetName returns the sender name
func (s *SMTPSender) GetName() string {
	return "smtp"
}

// DevSender logs codes instead of sending them
type DevSender struct {
	logger *logrus.Logger
}

// NewDevSender creates a sender for local development
func NewDevSender(logger *logrus.Logger) *DevSender {
	return &DevSender{logger: logger}
}

// SendOTP logs the code
func (s *DevSender) SendOTP(email, code, purpose string, validFor time.Duration) error {
	s.logger.WithFields(logrus.Fields{
		"email":     email,
		"otp":       code,
		"purpose":   purpose,
		"valid_for": validFor.String(),
	}).Info("DEV MODE: OTP email not sent")
	return nil
}

// GetName returns the sender name
func (s *DevSender) GetName() string {
	return "dev"
}

// Subject returns the email subject for an OTP purpose
func Subject(purpose string) string {
	switch purpose {
	case "password_change":
		return "Your password change code"
	default:
		return "Your password reset code"
	}
}

// Body returns the plain text body of an OTP email
func Body(code, purpose string, validFor time.Duration) string {
	action := "reset your password"
	if purpose == "password_change" {
		action = "change your password"
	}
	return fmt.Sprintf(
		"Namaste,\n\nUse the code %s to %s. It expires in %d minutes.\n\nIf you did not ask for this code you can ignore this email.\n\nVartika Funpark & Resort\n",
		code, action, int(validFor.Minutes()),
	)
}
