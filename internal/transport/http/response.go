package httptransport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mailsuite/backend/internal/imap"
	"mailsuite/backend/internal/service"
	"mailsuite/backend/internal/smtp"
	"mailsuite/backend/internal/summarize"
)

// OK 成功响应：{"success":true, ...payload}
func OK(c *gin.Context, payload gin.H) {
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// Fail 失败响应：{"success":false,"error":...}
func Fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   message,
	})
}

// FailErr 按错误类型映射 HTTP 状态码后返回失败响应
func FailErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, imap.ErrAuth), errors.Is(err, smtp.ErrAuthFailed):
		Fail(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrNotConnected),
		errors.Is(err, service.ErrSummarizerUnavailable),
		errors.Is(err, service.ErrNoEmails),
		errors.Is(err, service.ErrNothingSummarized),
		errors.Is(err, imap.ErrInvalidCriteria),
		errors.Is(err, smtp.ErrNoRecipients),
		errors.Is(err, smtp.ErrRecipientsRefused),
		errors.Is(err, summarize.ErrEmptyText),
		errors.Is(err, summarize.ErrNoAttachments):
		Fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrEmailNotFound):
		Fail(c, http.StatusNotFound, err.Error())
	default:
		Fail(c, http.StatusInternalServerError, err.Error())
	}
}
