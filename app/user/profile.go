package user

import (
	"net/http"

	"github.com/yamar8/lovetree-backend/internal"
	"github.com/yamar8/lovetree-backend/internal/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type updateProfileBody struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type changePasswordBody struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func GetProfile(c *gin.Context, d *internal.Deps) {
	userID := c.MustGet("userID").(string)

	user, err := d.Profile.GetProfile(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"user": user})
}

func UpdateProfile(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	var data updateProfileBody
	if err := c.ShouldBindJSON(&data); err != nil {
		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		response.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := d.Profile.UpdateProfile(c.Request.Context(), userID, data.Name, data.Email, data.Phone)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{
		"user":    user,
		"message": "Profile updated successfully",
	})
}

func ChangePassword(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	var data changePasswordBody
	if err := c.ShouldBindJSON(&data); err != nil {
		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		response.Fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := d.Profile.ChangePassword(c.Request.Context(), userID, data.CurrentPassword, data.NewPassword)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"message": "Password updated successfully"})
}
