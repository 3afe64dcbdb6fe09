package controllers

import (
	"net/http"
	"net/url"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/taskly/chat_backend/utils"
)

type SendEmailInput struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

type PasswordResetInput struct {
	Email string `json:"email"`
}

// SendEmailHandler godoc
// @Summary Send an email
// @Description Proxies a message to the SMTP collaborator
// @Tags email
// @Accept json
// @Produce json
// @Param email body SendEmailInput true "Email payload"
// @Success 200 {object} map[string]string "Email sent"
// @Failure 400 {object} map[string]string "Missing to or subject"
// @Failure 500 {object} map[string]string "Send failure"
// @Router /api/send-email [post]
func SendEmailHandler(c *gin.Context) {
	var input SendEmailInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.To == "" || input.Subject == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: to, subject"})
		return
	}

	result, err := utils.SendEmail(utils.EmailMessage{
		To:      input.To,
		Subject: input.Subject,
		Text:    input.Text,
		HTML:    input.HTML,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to send email",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Email sent successfully",
		"messageId": result.MessageID,
	})
}

// SendPasswordResetHandler godoc
// @Summary Request a password reset email
// @Description Validates the address, builds the reset URL, and sends the templated reset email
// @Tags email
// @Accept json
// @Produce json
// @Param request body PasswordResetInput true "Account email"
// @Success 200 {object} map[string]bool "Reset email sent"
// @Failure 400 {object} map[string]string "Invalid email"
// @Failure 500 {object} map[string]string "Send failure"
// @Router /api/send-password-reset [post]
func SendPasswordResetHandler(c *gin.Context) {
	var input PasswordResetInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !utils.EmailRegex.MatchString(input.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter a valid email address"})
		return
	}

	resetURL := BuildResetURL(input.Email)
	if _, err := utils.SendPasswordResetEmail(input.Email, resetURL); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// BuildResetURL embeds the account email into the reset page link.
func BuildResetURL(email string) string {
	base := os.Getenv("BASE_URL")
	if base == "" {
		base = "http://localhost:3000"
	}
	return base + "/reset-password?email=" + url.QueryEscape(email)
}
