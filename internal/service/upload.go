package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/yamar8/lovetree-backend/pkg/util"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	imageKeyPrefix = "products/"
	uploadTimeout  = time.Minute
)

// ImageStore is the asset host product images live on
type ImageStore interface {
	// Upload stores body under key and returns its public URL
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, keys ...string) error
}

// Image is a validated upload waiting to be sent to the asset host
type Image struct {
	Body        io.Reader
	ContentType string
}

type ImageUploader struct {
	store   ImageStore
	timeout time.Duration
}

func NewImageUploader(s ImageStore) *ImageUploader {
	return &ImageUploader{store: s, timeout: uploadTimeout}
}

// Upload sends all images concurrently. Either every image ends up on the
// asset host or, on the first failure, the ones already stored are deleted
// again. URLs and keys keep the order of images.
func (u *ImageUploader) Upload(ctx context.Context, images []Image) (urls, keys []string, err error) {
	if len(images) == 0 {
		return []string{}, []string{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	urls = make([]string, len(images))
	keys = make([]string, len(images))

	g, gctx := errgroup.WithContext(ctx)

	for i, img := range images {
		id, err := util.NewID()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to generate image key, %w", err)
		}

		key := imageKeyPrefix + id
		if m := mimetype.Lookup(img.ContentType); m != nil {
			key += m.Extension()
		}

		g.Go(func() error {
			zap.L().Debug("Uploading product image", zap.String("key", key))

			url, err := u.store.Upload(gctx, key, img.ContentType, img.Body)
			if err != nil {
				return fmt.Errorf("failed to upload image %s, %w", key, err)
			}

			urls[i] = url
			keys[i] = key
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		uploaded := make([]string, 0, len(keys))
		for _, k := range keys {
			if k != "" {
				uploaded = append(uploaded, k)
			}
		}

		u.Delete(context.WithoutCancel(ctx), uploaded...)
		return nil, nil, err
	}

	return urls, keys, nil
}

// Delete removes objects from the asset host. Failures are only logged, an
// orphaned image is not worth failing a request over.
func (u *ImageUploader) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}

	if err := u.store.Delete(ctx, keys...); err != nil {
		zap.L().Error("Failed to delete images", zap.Strings("keys", keys), zap.Error(err))
		return
	}

	zap.L().Debug("Deleted images", zap.Strings("keys", keys))
}
