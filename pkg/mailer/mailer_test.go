package mailer

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevSender(t *testing.T) {
	logger, hook := test.NewNullLogger()
	sender := NewDevSender(logger)

	err := sender.SendOTP("guest@example.com", "123456", "password_reset", 5*time.Minute)
	require.NoError(t, err)

	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "guest@example.com", entry.Data["email"])
	assert.Equal(t, "123456", entry.Data["otp"])
	assert.Equal(t, "dev", sender.GetName())
}

func TestBody(t *testing.T) {
	body := Body("654321", "password_change", 5*time.Minute)
	assert.Contains(t, body, "654321")
	assert.Contains(t, body, "change your password")
	assert.Contains(t, body, "5 minutes")

	assert.Contains(t, Body("111111", "password_reset", 10*time.Minute), "reset your password")
	assert.Equal(t, "Your password change code", Subject("password_change"))
	assert.Equal(t, "Your password reset code", Subject("password_reset"))
}

func TestNewSMTPSender(t *testing.T) {
	withAuth := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p"})
	assert.NotNil(t, withAuth.auth)
	assert.Equal(t, "smtp", withAuth.GetName())

	relay := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 25})
	assert.Nil(t, relay.auth)
}
