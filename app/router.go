// Package app wires the HTTP routes to their handlers
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yamar8/lovetree-backend/app/product"
	"github.com/yamar8/lovetree-backend/app/root"
	"github.com/yamar8/lovetree-backend/app/user"
	"github.com/yamar8/lovetree-backend/aws"
	"github.com/yamar8/lovetree-backend/cloudflare"
	"github.com/yamar8/lovetree-backend/db"
	"github.com/yamar8/lovetree-backend/internal"
	"github.com/yamar8/lovetree-backend/internal/service"
	"github.com/yamar8/lovetree-backend/internal/store"
	"github.com/yamar8/lovetree-backend/pkg/middleware"
	"github.com/yamar8/lovetree-backend/pkg/security"
	"github.com/yamar8/lovetree-backend/pkg/validators"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options are the router settings that don't belong to a single handler
type Options struct {
	CORSOrigins []string
	// Per-IP limiter, nil disables it. The caller owns it and closes it.
	RateLimiter *middleware.RateLimiter
	Attempts    *middleware.AttemptLimiter
	Turnstile middleware.TurnstileConfig
	// Upper bound for the whole add product request
	MaxUploadBytes int64
	// How long public catalog reads are cached
	CacheTTL time.Duration
}

// NewRouter builds every dependency from the loaded configuration. Background
// jobs stop when ctx is cancelled.
func NewRouter(ctx context.Context) (*gin.Engine, error) {
	gdb, err := db.New(viper.GetString("db.driver"), viper.GetString("db.dsn"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}

	tokens, err := security.NewTokenManager(viper.GetString("jwt.secret"), viper.GetDuration("jwt.ttl"))
	if err != nil {
		return nil, err
	}

	mailer, err := service.NewMailer(service.MailConfig{
		Host:     viper.GetString("mail.host"),
		Port:     viper.GetInt("mail.port"),
		Username: viper.GetString("mail.username"),
		Password: viper.GetString("mail.password"),
		Sender:   viper.GetString("mail.sender"),
		CodeTTL:  viper.GetDuration("verification.ttl"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mailer, %w", err)
	}

	images, err := newImageStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize image storage, %w", err)
	}

	var federated service.IdentityVerifier
	if clientID := viper.GetString("google.client_id"); clientID != "" {
		google, err := service.NewGoogleVerifier(clientID, viper.GetString("google.certs_url"), nil)
		if err != nil {
			return nil, err
		}

		go func() {
			<-ctx.Done()
			google.Close()
		}()

		federated = google
	}

	users := store.NewUsers(gdb)
	products := store.NewProducts(gdb)
	hasher := security.New()
	issuer := service.NewVerificationIssuer(mailer, viper.GetInt("verification.code_length"), viper.GetDuration("verification.ttl"))

	maxImages := viper.GetInt("upload.max_images")
	maxSize := viper.GetInt64("upload.max_size")

	d := &internal.Deps{
		DB:       gdb,
		Users:    users,
		Products: products,
		Tokens:   tokens,
		Auth: service.NewAuthenticator(users, hasher, tokens, issuer, federated, service.AuthConfig{
			RequireVerified: viper.GetBool("auth.require_verified"),
			Admin: service.AdminCredentials{
				Email:        viper.GetString("admin.email"),
				Password:     viper.GetString("admin.password"),
				PasswordHash: viper.GetString("admin.password_hash"),
			},
		}),
		Profile: service.NewProfileManager(users, hasher),
		Catalog: service.NewCatalog(products, service.NewImageUploader(images), maxImages),
		ImageRules: validators.ImageRules{
			MaxSize:      maxSize,
			AllowedTypes: viper.GetStringSlice("upload.allowed_types"),
		},
	}

	var attempts *middleware.AttemptLimiter
	if addr := viper.GetString("redis.addr"); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		})

		if err := rdb.Ping(ctx).Err(); err != nil {
			zap.L().Warn("Redis is unreachable, login attempts are not throttled until it is back", zap.Error(err))
		}

		go func() {
			<-ctx.Done()
			rdb.Close()
		}()

		attempts = middleware.NewAttemptLimiter(rdb, viper.GetInt("security.max_attempts"), viper.GetDuration("security.attempt_window"))
	}

	var rateLimiter *middleware.RateLimiter
	if rps := viper.GetInt("security.rate_limit"); rps > 0 {
		rateLimiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			RequestsPerSecond: rps,
			Burst:             rps * 2,
		})

		go func() {
			<-ctx.Done()
			rateLimiter.Close()
		}()
	}

	router := NewEngine(d, Options{
		CORSOrigins: splitOrigins(viper.GetStringSlice("host.cors")),
		RateLimiter: rateLimiter,
		Attempts:    attempts,
		Turnstile: middleware.TurnstileConfig{
			Enabled: viper.GetBool("cloudflare.turnstile.enabled"),
			Secret:  viper.GetString("cloudflare.turnstile.secret_token"),
		},
		MaxUploadBytes: int64(maxImages)*maxSize + 1<<20,
		CacheTTL:       30 * time.Second,
	})

	// Unverified accounts get a grace period after their code expired
	service.AccountCleanup(ctx, viper.GetDuration("cleanup.interval"), viper.GetDuration("cleanup.grace"), users)

	return router, nil
}

// JSON request bodies are small, only product images need more
const maxJSONBody = 1 << 20

// NewEngine registers middleware and routes on a fresh gin engine
func NewEngine(d *internal.Deps, o Options) *gin.Engine {
	router := gin.New()

	if len(o.CORSOrigins) == 0 {
		o.CORSOrigins = []string{"http://localhost:5173"}
	}

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     o.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "token", "TurnstileToken"},
			ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.MaxMultipartMemory = 8 << 20

	jwt := middleware.NewJWTMiddleware(d.Tokens, d.Users)
	admin := middleware.NewAdminMiddleware(d.Tokens)
	turnstile := middleware.NewTurnstileMiddleware(o.Turnstile)
	jsonLimit := middleware.BodySizeLimiter(maxJSONBody)

	cacheStore := persist.NewMemoryStore(time.Minute)
	cacheFor := func(ttl time.Duration) gin.HandlerFunc {
		return cache.CacheByRequestURI(cacheStore, ttl)
	}

	m := router.Group("/api", o.RateLimiter.Middleware())
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		m.HEAD("/heartbeat", root.Heartbeat)

		// GET /api/validate		-> Validates a user token
		m.GET("/validate", jwt, root.Validate)
	}

	u := m.Group("/user", jsonLimit)
	{
		// POST /api/user/register		-> Registers a new user and mails a verification code
		u.POST("/register", turnstile, func(c *gin.Context) { user.UserRegister(c, d) })

		// POST /api/user/verify		-> Verifies an email with its code and returns a token
		u.POST("/verify", o.Attempts.Middleware("verify"), func(c *gin.Context) { user.UserVerify(c, d) })

		// POST /api/user/login 		-> Logs in a user and returns a token
		u.POST("/login", o.Attempts.Middleware("login"), func(c *gin.Context) { user.UserLogin(c, d) })

		// POST /api/user/google-login	-> Logs in with a Google ID token
		u.POST("/google-login", func(c *gin.Context) { user.GoogleLogin(c, d) })

		// POST /api/user/admin			-> Logs in the administrator
		u.POST("/admin", o.Attempts.Middleware("admin"), func(c *gin.Context) { user.AdminLogin(c, d) })

		// GET /api/user/get-profile		-> Returns the logged in user
		u.GET("/get-profile", jwt, func(c *gin.Context) { user.GetProfile(c, d) })

		// PUT /api/user/update-profile	-> Updates name, email and phone
		u.PUT("/update-profile", jwt, func(c *gin.Context) { user.UpdateProfile(c, d) })

		// POST /api/user/change-password	-> Changes the password
		u.POST("/change-password", jwt, func(c *gin.Context) { user.ChangePassword(c, d) })
	}

	p := m.Group("/product")
	{
		// POST /api/product/add		-> Adds a product with up to four images
		p.POST("/add", admin, middleware.BodySizeLimiter(o.MaxUploadBytes), func(c *gin.Context) { product.ProductAdd(c, d) })

		// POST /api/product/remove		-> Removes a product and its images
		p.POST("/remove", admin, jsonLimit, func(c *gin.Context) { product.ProductRemove(c, d) })

		// POST /api/product/single		-> Returns one product
		p.POST("/single", jsonLimit, func(c *gin.Context) { product.ProductSingle(c, d) })

		// GET /api/product/list		-> Returns every product
		p.GET("/list", cacheFor(o.CacheTTL), func(c *gin.Context) { product.ProductList(c, d) })

		// POST /api/product/edit		-> Applies a batch of product edits
		p.POST("/edit", admin, jsonLimit, func(c *gin.Context) { product.ProductEdit(c, d) })

		// POST /api/product/reviews		-> Adds a review
		p.POST("/reviews", jwt, jsonLimit, func(c *gin.Context) { product.ProductReview(c, d) })

		// GET /api/product/categories	-> Returns the category names
		p.GET("/categories", cacheFor(o.CacheTTL), func(c *gin.Context) { product.ProductCategories(c, d) })
	}

	return router
}

func newImageStore(ctx context.Context) (service.ImageStore, error) {
	switch viper.GetString("storage.type") {
	case "r2":
		return cloudflare.NewR2(ctx, cloudflare.R2Config{
			AccountID:       viper.GetString("storage.account_id"),
			AccessKeyID:     viper.GetString("storage.access_key_id"),
			SecretAccessKey: viper.GetString("storage.secret_access_key"),
			Bucket:          viper.GetString("storage.bucket"),
			PublicURL:       viper.GetString("storage.public_url"),
		})
	default:
		return aws.New(ctx, aws.Config{
			Bucket:          viper.GetString("storage.bucket"),
			Region:          viper.GetString("storage.region"),
			AccessKeyID:     viper.GetString("storage.access_key_id"),
			SecretAccessKey: viper.GetString("storage.secret_access_key"),
			PublicURL:       viper.GetString("storage.public_url"),
		})
	}
}

// splitOrigins accepts both a list and a comma separated string from the environment
func splitOrigins(in []string) []string {
	out := []string{}
	for _, s := range in {
		for _, o := range strings.Split(s, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out = append(out, o)
			}
		}
	}

	return out
}
