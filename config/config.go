// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	v "github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	validLogLevels    = []string{"debug", "info", "warn", "error", "fatal"}
	validStorageTypes = []string{"s3", "r2"}
	validDBDrivers    = []string{"sqlite", "postgres"}
)

// Every key can also be set through the environment, dots replaced by underscores
var keys = []string{
	"app.log_level",

	"host.port",
	"host.domain",
	"host.cors",
	"host.ssl.enabled",
	"host.ssl.certificate_path",
	"host.ssl.certificate_key_path",

	"jwt.secret",
	"jwt.ttl",

	"db.driver",
	"db.dsn",

	"mail.host",
	"mail.port",
	"mail.username",
	"mail.password",
	"mail.sender",

	"verification.ttl",
	"verification.code_length",

	"admin.email",
	"admin.password",
	"admin.password_hash",

	"google.client_id",
	"google.certs_url",

	"storage.type",
	"storage.bucket",
	"storage.region",
	"storage.access_key_id",
	"storage.secret_access_key",
	"storage.account_id",
	"storage.public_url",

	"upload.max_size",
	"upload.allowed_types",
	"upload.max_images",

	"redis.addr",
	"redis.password",
	"redis.db",

	"security.rate_limit",
	"security.max_attempts",
	"security.attempt_window",

	"cloudflare.turnstile.enabled",
	"cloudflare.turnstile.secret_token",

	"auth.require_verified",

	"cleanup.interval",
	"cleanup.grace",
}

func genSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that. An empty path looks for config.toml in the working directory
// and falls back to the environment when there is none.
func Setup(path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	for _, key := range keys {
		v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	}

	setDefaults()

	if err := v.ReadInConfig(); err != nil {
		var notFound v.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file, %w", err)
		}

		fmt.Println("[WARNING]: No config.toml file found, using environment variables only")
	}

	if v.GetString("jwt.secret") == "" {
		fmt.Println("WARNING: You haven't set a JWT secret, so it has been generated for you. Please set it as an environment variable or in the config.toml file.\nYour random JWT secret:\n\n" + genSecret() + "\n\nPaste it into your config.toml file.")
		os.Exit(0)
	}

	if err := validate(); err != nil {
		return err
	}

	v.Set("upload.max_size", v.GetInt64("upload.max_size")<<20)
	return nil
}

func setDefaults() {
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.domain", "localhost")
	v.SetDefault("host.cors", []string{"http://localhost:5173", "http://localhost:5174"})
	v.SetDefault("host.ssl.enabled", false)

	v.SetDefault("jwt.ttl", "720h")

	v.SetDefault("db.driver", "sqlite")

	v.SetDefault("mail.port", 587)

	v.SetDefault("verification.ttl", "10m")
	v.SetDefault("verification.code_length", 6)

	v.SetDefault("google.certs_url", "https://www.googleapis.com/oauth2/v3/certs")

	v.SetDefault("storage.type", "s3")

	v.SetDefault("upload.max_size", 5)
	v.SetDefault("upload.allowed_types", []string{"image/jpeg", "image/png", "image/webp", "image/gif"})
	v.SetDefault("upload.max_images", 4)

	v.SetDefault("redis.db", 0)

	v.SetDefault("security.rate_limit", 10)
	v.SetDefault("security.max_attempts", 5)
	v.SetDefault("security.attempt_window", "15m")

	v.SetDefault("cloudflare.turnstile.enabled", false)

	v.SetDefault("auth.require_verified", false)

	v.SetDefault("cleanup.interval", "24h")
	v.SetDefault("cleanup.grace", "168h")
}

func validate() error {
	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if v.GetBool("host.ssl.enabled") {
		if v.GetString("host.ssl.certificate_path") == "" {
			return errors.New("no ssl certificate path provided")
		}

		if v.GetString("host.ssl.certificate_key_path") == "" {
			return errors.New("no ssl certificate key path provided")
		}
	}

	if v.GetDuration("jwt.ttl") < 0 {
		return errors.New("jwt.ttl can't be negative")
	}

	if !slices.Contains(validDBDrivers, v.GetString("db.driver")) {
		return errors.New("invalid database driver provided")
	}

	if v.GetString("db.driver") == "postgres" && v.GetString("db.dsn") == "" {
		return errors.New("db.dsn is required for postgres")
	}

	if v.GetString("mail.host") == "" {
		return errors.New("mail.host can't be empty")
	}

	if v.GetString("mail.sender") == "" {
		return errors.New("mail.sender can't be empty")
	}

	if v.GetDuration("verification.ttl") <= 0 {
		return errors.New("verification.ttl must be bigger than 0")
	}

	if n := v.GetInt("verification.code_length"); n < 4 || n > 32 {
		return errors.New("verification.code_length must be between 4 and 32")
	}

	if err := validateStorage(); err != nil {
		return err
	}

	if v.GetInt("upload.max_size") <= 0 {
		return errors.New("upload.max_size must be bigger than 0")
	}

	if v.GetInt("upload.max_images") <= 0 {
		return errors.New("upload.max_images must be bigger than 0")
	}

	if len(v.GetStringSlice("upload.allowed_types")) == 0 {
		return errors.New("upload.allowed_types can't be empty")
	}

	if v.GetDuration("cleanup.interval") <= 0 {
		return errors.New("cleanup.interval must be bigger than 0")
	}

	if v.GetString("admin.email") == "" {
		zap.L().Warn("No admin.email specified, admin login is disabled")
	} else if v.GetString("admin.password") == "" && v.GetString("admin.password_hash") == "" {
		return errors.New("admin.password or admin.password_hash is required when admin.email is set")
	}

	if v.GetString("google.client_id") == "" {
		zap.L().Warn("No google.client_id specified, Google login is disabled")
	}

	if v.GetString("redis.addr") == "" {
		zap.L().Warn("No redis.addr specified, login attempts won't be throttled")
	}

	if !v.GetBool("cloudflare.turnstile.enabled") {
		fmt.Println("[WARNING]: Cloudflare's turnstile is disabled. Some public endpoints won't be guarded against bots")
	} else if v.GetString("cloudflare.turnstile.secret_token") == "" {
		return errors.New("turnstile secret token is missing")
	}

	return nil
}

func validateStorage() error {
	storageType := v.GetString("storage.type")
	if !slices.Contains(validStorageTypes, storageType) {
		return errors.New("invalid storage type provided")
	}

	if v.GetString("storage.bucket") == "" {
		return errors.New("bucket can't be empty")
	}
	if v.GetString("storage.access_key_id") == "" {
		return errors.New("account access id can't be empty")
	}
	if v.GetString("storage.secret_access_key") == "" {
		return errors.New("secret access key can't be empty")
	}

	switch storageType {
	case "s3":
		if v.GetString("storage.region") == "" {
			return errors.New("storage.region can't be empty")
		}
	case "r2":
		if v.GetString("storage.account_id") == "" {
			return errors.New("account id can't be empty")
		}
		if v.GetString("storage.public_url") == "" {
			return errors.New("storage.public_url is required for r2")
		}
	}

	return nil
}
