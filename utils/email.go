package utils

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"os"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// EmailRegex matches the address format accepted by the password-reset flow.
var EmailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// EmailMessage is the payload handed to the SMTP collaborator.
type EmailMessage struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// SendResult carries the id assigned to an accepted message.
type SendResult struct {
	MessageID string
}

// SendEmail delivers a message over SMTP with TLS (port 465 style servers).
// It fails with a transport error when EMAIL_USER/EMAIL_PASS are unset or any
// step of the SMTP conversation fails. There is no retry; every send is
// attempt-once.
func SendEmail(msg EmailMessage) (*SendResult, error) {
	user := os.Getenv("EMAIL_USER")
	pass := os.Getenv("EMAIL_PASS")
	if user == "" || pass == "" {
		return nil, fmt.Errorf("email: EMAIL_USER and EMAIL_PASS must be set")
	}

	host := os.Getenv("SMTP_HOST")
	if host == "" {
		host = "smtp.gmail.com"
	}
	port := os.Getenv("SMTP_PORT")
	if port == "" {
		port = "465"
	}

	auth := smtp.PlainAuth("", user, pass, host)

	// TLS-only transport, matching port 465 smtp servers.
	conn, err := tls.Dial("tcp", host+":"+port, &tls.Config{ServerName: host})
	if err != nil {
		return nil, fmt.Errorf("email: dial %s: %w", host, err)
	}

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("email: smtp client: %w", err)
	}
	defer c.Quit()

	if err = c.Auth(auth); err != nil {
		return nil, fmt.Errorf("email: auth: %w", err)
	}
	if err = c.Mail(user); err != nil {
		return nil, fmt.Errorf("email: mail from: %w", err)
	}
	if err = c.Rcpt(msg.To); err != nil {
		return nil, fmt.Errorf("email: rcpt to: %w", err)
	}

	w, err := c.Data()
	if err != nil {
		return nil, fmt.Errorf("email: data: %w", err)
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), host)
	if _, err = w.Write([]byte(buildMIME(user, messageID, msg))); err != nil {
		return nil, fmt.Errorf("email: write body: %w", err)
	}
	if err = w.Close(); err != nil {
		return nil, fmt.Errorf("email: close body: %w", err)
	}

	return &SendResult{MessageID: messageID}, nil
}

// SendPasswordResetEmail builds the fixed reset template and delegates to
// SendEmail.
func SendPasswordResetEmail(to, resetURL string) (*SendResult, error) {
	return SendEmail(EmailMessage{
		To:      to,
		Subject: "Password Reset Request",
		Text: "You requested a password reset. Click here to reset: " + resetURL +
			"\n\nIf you didn't request this, please ignore this email.",
		HTML: BuildPasswordResetHTML(resetURL),
	})
}

// BuildPasswordResetHTML renders the HTML body of the reset email.
func BuildPasswordResetHTML(resetURL string) string {
	return `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Password Reset Request</h2>
  <p>You requested a password reset.</p>
  <p><a href="` + resetURL + `">Reset Password</a></p>
  <p>If the button doesn't work, copy and paste this link into your browser:</p>
  <p>` + resetURL + `</p>
  <p><small>If you didn't request this, please ignore this email.</small></p>
</div>`
}

// buildMIME assembles the raw message. When both text and HTML bodies are
// present the message is multipart/alternative.
func buildMIME(from, messageID string, msg EmailMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Message-ID: %s\r\n", messageID)
	b.WriteString("MIME-Version: 1.0\r\n")

	switch {
	case msg.HTML != "" && msg.Text != "":
		boundary := strings.ReplaceAll(uuid.NewString(), "-", "")
		fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)
		fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n", boundary, msg.Text)
		fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=utf-8\r\n\r\n%s\r\n", boundary, msg.HTML)
		fmt.Fprintf(&b, "--%s--\r\n", boundary)
	case msg.HTML != "":
		fmt.Fprintf(&b, "Content-Type: text/html; charset=utf-8\r\n\r\n%s\r\n", msg.HTML)
	default:
		fmt.Fprintf(&b, "Content-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n", msg.Text)
	}
	return b.String()
}
