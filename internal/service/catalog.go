package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"github.com/yamar8/lovetree-backend/internal/model"
	"github.com/yamar8/lovetree-backend/internal/store"
	"github.com/yamar8/lovetree-backend/pkg/util"
)

const (
	DefaultMaxImages = 4
	maxCommentLength = 2000
)

// NewProduct is the admin input for a catalog entry, images excluded
type NewProduct struct {
	Name        string
	Description string
	Price       float64
	Category    string
	SubCategory string
	Sizes       []string
	Bestseller  bool
}

type Catalog struct {
	products  *store.Products
	uploader  *ImageUploader
	maxImages int
	now       func() time.Time
}

func NewCatalog(products *store.Products, uploader *ImageUploader, maxImages int) *Catalog {
	if maxImages <= 0 {
		maxImages = DefaultMaxImages
	}

	return &Catalog{
		products:  products,
		uploader:  uploader,
		maxImages: maxImages,
		now:       time.Now,
	}
}

func (c *Catalog) MaxImages() int {
	return c.maxImages
}

// Add uploads the images and stores the product. When the product can't be
// stored the uploaded images are removed again.
func (c *Catalog) Add(ctx context.Context, p NewProduct, images []Image) (*model.Product, error) {
	if p.Name == "" {
		return nil, newErr(ErrValidation, "Product name is required")
	}

	if err := checkPrice(p.Price); err != nil {
		return nil, err
	}

	if len(images) > c.maxImages {
		return nil, newErr(ErrValidation, fmt.Sprintf("At most %d images are allowed", c.maxImages))
	}

	productID, err := util.NewID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate product ID, %w", err)
	}

	urls, keys, err := c.uploader.Upload(ctx, images)
	if err != nil {
		return nil, wrapErr(ErrDependency, "Failed to upload images", err)
	}

	sizes := p.Sizes
	if sizes == nil {
		sizes = []string{}
	}

	product := &model.Product{
		ID:          productID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Category:    p.Category,
		SubCategory: p.SubCategory,
		Sizes:       sizes,
		Bestseller:  p.Bestseller,
		Images:      urls,
		ImageKeys:   keys,
		Date:        c.now().UnixMilli(),
		Reviews:     []model.Review{},
	}

	if err := c.products.Create(ctx, product); err != nil {
		c.uploader.Delete(context.WithoutCancel(ctx), keys...)
		return nil, err
	}

	return product, nil
}

func (c *Catalog) List(ctx context.Context) ([]model.Product, error) {
	return c.products.List(ctx)
}

func (c *Catalog) Get(ctx context.Context, id string) (*model.Product, error) {
	if id == "" {
		return nil, newErr(ErrValidation, "Product ID is required")
	}

	product, err := c.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newErr(ErrNotFound, "Product not found")
		}

		return nil, err
	}

	return product, nil
}

// Remove deletes the product with its reviews, then its images
func (c *Catalog) Remove(ctx context.Context, id string) error {
	if id == "" {
		return newErr(ErrValidation, "Product ID is required")
	}

	product, err := c.products.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return newErr(ErrNotFound, "Product not found")
		}

		return err
	}

	c.uploader.Delete(ctx, product.ImageKeys...)
	return nil
}

// Edit applies a batch of edits. Either all of them land or none does.
func (c *Catalog) Edit(ctx context.Context, edits []store.ProductEdit) error {
	if len(edits) == 0 {
		return newErr(ErrValidation, "No products to edit")
	}

	for _, e := range edits {
		if e.ID == "" || e.Name == "" {
			return newErr(ErrValidation, "Every product needs an ID and a name")
		}

		if err := checkPrice(e.Price); err != nil {
			return err
		}
	}

	if err := c.products.ApplyEdits(ctx, edits); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return wrapErr(ErrNotFound, "Product not found", err)
		}

		return err
	}

	return nil
}

func (c *Catalog) AddReview(ctx context.Context, productID, userID string, rating int, comment string) error {
	if productID == "" {
		return newErr(ErrValidation, "Product ID is required")
	}

	if rating < 1 || rating > 5 {
		return newErr(ErrValidation, "Rating must be between 1 and 5")
	}

	if utf8.RuneCountInString(comment) > maxCommentLength {
		return newErr(ErrValidation, "Comment is too long")
	}

	err := c.products.AddReview(ctx, &model.Review{
		ProductID: productID,
		UserID:    userID,
		Rating:    rating,
		Comment:   comment,
		Date:      c.now(),
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return newErr(ErrNotFound, "Product not found")
		}

		return err
	}

	return nil
}

func (c *Catalog) Categories(ctx context.Context) ([]string, error) {
	return c.products.Categories(ctx)
}

// checkPrice rejects NaN and infinities along with negative prices. Neither
// can be encoded as JSON.
func checkPrice(price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return newErr(ErrValidation, "Price must be a number")
	}

	if price < 0 {
		return newErr(ErrValidation, "Price can't be negative")
	}

	return nil
}
