// Package response writes the JSON envelope shared by every endpoint
package response

import (
	"errors"
	"net/http"

	"github.com/yamar8/lovetree-backend/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const internalError = "Internal server error"

// OK writes a successful response. Fields of payload are merged into the envelope.
func OK(c *gin.Context, payload gin.H) {
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}

	c.JSON(http.StatusOK, body)
}

// Fail aborts the request with a client-facing message
func Fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success":   false,
		"message":   msg,
		"requestID": c.GetString("requestID"),
	})
}

// Error maps err to a status code. Only the message of a *service.Error reaches
// the client, anything else is logged and answered with a generic message.
func Error(c *gin.Context, err error) {
	requestID := c.GetString("requestID")
	status := Status(err)

	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		zap.L().Error("Request failed", zap.Error(err), zap.String("requestID", requestID))
		Fail(c, status, internalError)
		return
	}

	if status == http.StatusInternalServerError {
		zap.L().Error("Request failed", zap.Error(err), zap.String("requestID", requestID))
	} else if svcErr.Cause != nil {
		zap.L().Debug("Request rejected", zap.Error(err), zap.String("requestID", requestID))
	}

	// The cause stays in the logs
	Fail(c, status, svcErr.Msg)
}

func Status(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrInvalidCode),
		errors.Is(err, service.ErrExpiredCode):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized),
		errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
