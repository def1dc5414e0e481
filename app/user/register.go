// Package user contains the account endpoints
package user

import (
	"net/http"

	"github.com/yamar8/lovetree-backend/internal"
	"github.com/yamar8/lovetree-backend/internal/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type registerBody struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func UserRegister(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data registerBody
	if err := c.ShouldBindJSON(&data); err != nil {
		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		response.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	resent, err := d.Auth.Register(c.Request.Context(), data.Name, data.Email, data.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	msg := "Verification code sent to your email"
	if resent {
		msg = "Verification code resent to your email"
	}

	response.OK(c, gin.H{"message": msg})
}
