// Package cloudflare provides a client for interacting with the Cloudflare API.
package cloudflare

import (
	"context"
	"errors"
	"fmt"

	a "github.com/yamar8/lovetree-backend/aws"
)

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	// Public bucket domain, r2.dev or a custom one
	PublicURL string
}

// NewR2 connects to an R2 bucket through its S3 compatible API
func NewR2(ctx context.Context, cfg R2Config) (*a.S3Client, error) {
	if cfg.AccountID == "" {
		return nil, errors.New("account id can't be empty")
	}

	if cfg.PublicURL == "" {
		return nil, errors.New("r2 buckets need a public url to serve images from")
	}

	return a.New(ctx, a.Config{
		Bucket:          cfg.Bucket,
		Region:          "auto",
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		Endpoint:        Endpoint(cfg.AccountID),
		PublicURL:       cfg.PublicURL,
	})
}

func Endpoint(accountID string) string {
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)
}
