package middleware

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yamar8/lovetree-backend/internal/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const TurnstileVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

type TurnstileConfig struct {
	Enabled   bool
	Secret    string
	VerifyURL string
	Client    *http.Client
}

type turnstileResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// NewTurnstileMiddleware verifies the TurnstileToken header with Cloudflare
// before letting the request through
func NewTurnstileMiddleware(cfg TurnstileConfig) gin.HandlerFunc {
	if cfg.VerifyURL == "" {
		cfg.VerifyURL = TurnstileVerifyURL
	}

	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 10 * time.Second}
	}

	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.Next()
			return
		}

		requestID := c.GetString("requestID")

		token := c.Request.Header.Get("TurnstileToken")
		if token == "" {
			response.Fail(c, http.StatusBadRequest, "Missing or invalid turnstile token")
			return
		}

		form := url.Values{
			"secret":   {cfg.Secret},
			"response": {token},
			"remoteip": {c.ClientIP()},
		}

		req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodPost, cfg.VerifyURL, strings.NewReader(form.Encode()))
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "Internal server error")
			return
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := cfg.Client.Do(req)
		if err != nil {
			zap.L().Error("Turnstile verification failed", zap.Error(err), zap.String("requestID", requestID))
			response.Fail(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		defer resp.Body.Close()

		var res turnstileResponse
		if err := json.NewDecoder(resp.Body).Decode(&res); err != nil || !res.Success {
			zap.L().Debug("Turnstile rejected request", zap.Strings("codes", res.ErrorCodes), zap.String("requestID", requestID))
			response.Fail(c, http.StatusUnauthorized, "Unauthorized")
			return
		}

		c.Next()
	}
}
