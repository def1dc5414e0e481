// Package middleware contains any custom middleware used in the app
package middleware

import (
	"github.com/yamar8/lovetree-backend/pkg/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const RequestIDHeader = "X-Request-ID"

// NewRequestIDMiddleware returns a new middleware function that generates a request ID for
// each incoming request, sets it as requestID and echoes it in the response headers
func NewRequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := util.RandomString(10)
		if err != nil {
			zap.L().Error("Failed to generate request ID", zap.Error(err))
			id = "unknown"
		}

		c.Set("requestID", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
