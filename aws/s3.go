// Package aws defines functions used to interact with the AWS API
package aws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3 can delete at most 1000 objects in one batch request
const maxDeleteBatch = 1000

type Config struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// Custom endpoint for S3 compatible hosts, empty for AWS
	Endpoint string
	// Base URL objects are served from. Defaults to the virtual hosted bucket URL.
	PublicURL string
}

type S3Client struct {
	C         *s3.Client
	Bucket    *string
	publicURL string
	uploader  *manager.Uploader
}

// New creates the client and makes sure the bucket exists
func New(ctx context.Context, cfg Config) (*S3Client, error) {
	client, err := newClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	_, err = client.C.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: client.Bucket,
	})
	if err != nil {
		var apiErr smithy.APIError

		if errors.As(err, &apiErr) {
			if apiErr.ErrorCode() == "NotFound" {
				return nil, fmt.Errorf("bucket '%s' does not exist", cfg.Bucket)
			}
		}

		return nil, fmt.Errorf("failed to check if bucket exists, %w", err)
	}

	return client, nil
}

func newClient(ctx context.Context, cfg Config) (*S3Client, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("no bucket provided")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config, %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	publicURL := strings.TrimSuffix(cfg.PublicURL, "/")
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	return &S3Client{
		C:         client,
		Bucket:    aws.String(cfg.Bucket),
		publicURL: publicURL,
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.Concurrency = 5
			u.PartSize = 6 << 20
		}),
	}, nil
}

// URL returns the public address of key
func (s *S3Client) URL(key string) string {
	return s.publicURL + "/" + key
}

func (s *S3Client) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:       s.Bucket,
		Key:          aws.String(key),
		Body:         body,
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to s3, %w", err)
	}

	return s.URL(key), nil
}

func (s *S3Client) Delete(ctx context.Context, keys ...string) error {
	for _, batch := range deleteBatches(keys) {
		out, err := s.C.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: s.Bucket,
			Delete: &types.Delete{
				Objects: batch,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return fmt.Errorf("failed to delete objects from s3, %w", err)
		}

		if len(out.Errors) > 0 {
			e := out.Errors[0]
			return fmt.Errorf("failed to delete %d objects, first: %s %s",
				len(out.Errors), aws.ToString(e.Key), aws.ToString(e.Message))
		}
	}

	return nil
}

func deleteBatches(keys []string) [][]types.ObjectIdentifier {
	var batches [][]types.ObjectIdentifier

	for start := 0; start < len(keys); start += maxDeleteBatch {
		end := min(start+maxDeleteBatch, len(keys))

		objects := make([]types.ObjectIdentifier, end-start)
		for i, key := range keys[start:end] {
			objects[i] = types.ObjectIdentifier{Key: aws.String(key)}
		}

		batches = append(batches, objects)
	}

	return batches
}
