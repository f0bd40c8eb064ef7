package mail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSMTPValidation(t *testing.T) {
	_, err := NewSMTP(SMTPConfig{From: "noreply@example.com"})
	assert.Error(t, err, "host required")

	m, err := NewSMTP(SMTPConfig{Host: "smtp.example.com", From: "noreply@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "587", m.cfg.Port, "default submission port")
}

func TestBuildMessageMultipart(t *testing.T) {
	msg := string(buildMessage(
		"noreply@example.com", "alice@example.com", "Password reset",
		"plain body", "<p>html body</p>"))

	assert.Contains(t, msg, "From: noreply@example.com\r\n")
	assert.Contains(t, msg, "To: alice@example.com\r\n")
	assert.Contains(t, msg, "Subject: Password reset\r\n")
	assert.Contains(t, msg, "multipart/alternative")
	assert.Contains(t, msg, "plain body")
	assert.Contains(t, msg, "<p>html body</p>")
	assert.Contains(t, msg, "--"+multipartBoundary+"--", "closing boundary")
}

func TestBuildMessagePlainOnly(t *testing.T) {
	msg := string(buildMessage(
		"noreply@example.com", "alice@example.com", "Hello", "just text", ""))

	assert.Contains(t, msg, "Content-Type: text/plain")
	assert.NotContains(t, msg, "multipart")
}
