package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func performJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func newEmailRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/send-email", SendEmailHandler)
	r.POST("/api/send-password-reset", SendPasswordResetHandler)
	return r
}

func TestBuildResetURL(t *testing.T) {
	t.Setenv("BASE_URL", "https://taskly.app")
	assert.Equal(t,
		"https://taskly.app/reset-password?email=user%40example.com",
		BuildResetURL("user@example.com"))
}

func TestBuildResetURL_DefaultBase(t *testing.T) {
	t.Setenv("BASE_URL", "")
	url := BuildResetURL("a+b@example.com")
	assert.True(t, strings.HasPrefix(url, "http://localhost:3000/reset-password?email="))
	assert.Contains(t, url, "a%2Bb%40example.com")
}

func TestSendEmailHandler_MissingFields(t *testing.T) {
	router := newEmailRouter()

	w := performJSON(router, http.MethodPost, "/api/send-email", `{"text":"no recipient"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "to, subject")

	w = performJSON(router, http.MethodPost, "/api/send-email", `{"to":"user@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendEmailHandler_MalformedJSON(t *testing.T) {
	router := newEmailRouter()
	w := performJSON(router, http.MethodPost, "/api/send-email", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendEmailHandler_SMTPFailureIs500(t *testing.T) {
	t.Setenv("EMAIL_USER", "")
	t.Setenv("EMAIL_PASS", "")

	router := newEmailRouter()
	w := performJSON(router, http.MethodPost, "/api/send-email",
		`{"to":"user@example.com","subject":"hi","text":"body"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to send email")
}

func TestSendPasswordResetHandler_RejectsInvalidEmail(t *testing.T) {
	router := newEmailRouter()

	for _, body := range []string{
		`{"email":"not-an-email"}`,
		`{"email":""}`,
		`{}`,
	} {
		w := performJSON(router, http.MethodPost, "/api/send-password-reset", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %s", body)
		assert.Contains(t, w.Body.String(), "valid email")
	}
}
