package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmailRegex(t *testing.T) {
	valid := []string{
		"user@example.com",
		"first.last@sub.domain.org",
		"a@b.co",
	}
	for _, addr := range valid {
		assert.True(t, EmailRegex.MatchString(addr), "expected %q to be valid", addr)
	}

	invalid := []string{
		"",
		"plainaddress",
		"no domain@example.com",
		"missing@tld",
		"@example.com",
	}
	for _, addr := range invalid {
		assert.False(t, EmailRegex.MatchString(addr), "expected %q to be invalid", addr)
	}
}

func TestSendEmail_FailsWithoutCredentials(t *testing.T) {
	t.Setenv("EMAIL_USER", "")
	t.Setenv("EMAIL_PASS", "")

	_, err := SendEmail(EmailMessage{To: "user@example.com", Subject: "hi"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "EMAIL_USER")
}

func TestBuildPasswordResetHTML(t *testing.T) {
	url := "http://localhost:3000/reset-password?email=user%40example.com"
	html := BuildPasswordResetHTML(url)

	assert.Contains(t, html, url)
	assert.Contains(t, html, "Password Reset Request")
	assert.Contains(t, html, "ignore this email")
}

func TestBuildMIME_MultipartWhenBothBodies(t *testing.T) {
	raw := buildMIME("from@example.com", "<id@host>", EmailMessage{
		To:      "to@example.com",
		Subject: "subject",
		Text:    "plain body",
		HTML:    "<p>html body</p>",
	})

	assert.Contains(t, raw, "multipart/alternative")
	assert.Contains(t, raw, "plain body")
	assert.Contains(t, raw, "<p>html body</p>")
	assert.Contains(t, raw, "Message-ID: <id@host>")
	assert.True(t, strings.HasPrefix(raw, "From: from@example.com\r\n"))
}

func TestBuildMIME_PlainTextOnly(t *testing.T) {
	raw := buildMIME("from@example.com", "<id@host>", EmailMessage{
		To:      "to@example.com",
		Subject: "subject",
		Text:    "just text",
	})

	assert.Contains(t, raw, "text/plain")
	assert.NotContains(t, raw, "multipart")
}
