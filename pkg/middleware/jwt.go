package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/yamar8/lovetree-backend/internal/model"
	"github.com/yamar8/lovetree-backend/internal/response"
	"github.com/yamar8/lovetree-backend/internal/store"
	"github.com/yamar8/lovetree-backend/pkg/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserLookup resolves the user a session token points to
type UserLookup interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// BearerToken reads the session token from the Authorization header, falling
// back to the bare token header older clients send
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}

	return strings.TrimSpace(r.Header.Get("token"))
}

// NewJWTMiddleware only lets requests through that carry a valid user token
// whose user still exists. The user's ID is stored as userID.
func NewJWTMiddleware(tokens *security.TokenManager, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.MustGet("requestID").(string)

		claims, ok := parseToken(c, tokens)
		if !ok {
			return
		}

		if claims.Role != security.RoleUser || claims.UserID == "" {
			response.Fail(c, http.StatusUnauthorized, "Not authorized, login again")
			return
		}

		// Tokens outlive deleted accounts
		_, err := users.FindByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Fail(c, http.StatusUnauthorized, "Not authorized, login again")
				return
			}

			zap.L().Error("Failed to check if user exists", zap.Error(err), zap.String("requestID", requestID))
			response.Fail(c, http.StatusInternalServerError, "Internal server error")
			return
		}

		c.Set("userID", claims.UserID)
		c.Next()
	}
}

// NewAdminMiddleware only lets requests through that carry an admin token
func NewAdminMiddleware(tokens *security.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := parseToken(c, tokens)
		if !ok {
			return
		}

		if claims.Role != security.RoleAdmin {
			response.Fail(c, http.StatusForbidden, "Not authorized, admin access required")
			return
		}

		c.Set("adminEmail", claims.Subject)
		c.Next()
	}
}

func parseToken(c *gin.Context, tokens *security.TokenManager) (*security.Claims, bool) {
	requestID := c.MustGet("requestID").(string)

	tokenStr := BearerToken(c.Request)
	if tokenStr == "" {
		response.Fail(c, http.StatusUnauthorized, "Not authorized, login again")
		return nil, false
	}

	claims, err := tokens.Parse(tokenStr)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			response.Fail(c, http.StatusUnauthorized, "Authorization token expired. Please log in again")
			return nil, false
		}

		zap.L().Debug("Rejected token", zap.Error(err), zap.String("requestID", requestID))
		response.Fail(c, http.StatusUnauthorized, "Authorization token invalid")
		return nil, false
	}

	return claims, true
}
