package user

import (
	"net/http"

	"github.com/yamar8/lovetree-backend/internal"
	"github.com/yamar8/lovetree-backend/internal/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleLoginBody struct {
	Token         string `json:"token"`
	IdentityToken string `json:"identityToken"`
}

func UserLogin(c *gin.Context, d *internal.Deps) {
	data, ok := bindLogin(c)
	if !ok {
		return
	}

	token, err := d.Auth.Login(c.Request.Context(), data.Email, data.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"token": token})
}

func AdminLogin(c *gin.Context, d *internal.Deps) {
	data, ok := bindLogin(c)
	if !ok {
		return
	}

	token, err := d.Auth.LoginAdmin(c.Request.Context(), data.Email, data.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"token": token})
}

func GoogleLogin(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data googleLoginBody
	if err := c.ShouldBindJSON(&data); err != nil {
		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		response.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	idToken := data.Token
	if idToken == "" {
		idToken = data.IdentityToken
	}

	if idToken == "" {
		response.Fail(c, http.StatusBadRequest, "Google token is required")
		return
	}

	token, err := d.Auth.LoginFederated(c.Request.Context(), idToken)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{
		"token":   token,
		"message": "Google login successful",
	})
}

func bindLogin(c *gin.Context) (loginBody, bool) {
	requestID := c.MustGet("requestID").(string)

	var data loginBody
	if err := c.ShouldBindJSON(&data); err != nil {
		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		response.Fail(c, http.StatusBadRequest, "Invalid request body")
		return data, false
	}

	return data, true
}
