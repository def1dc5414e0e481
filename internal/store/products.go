package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/yamar8/lovetree-backend/internal/model"

	"gorm.io/gorm"
)

// ProductEdit holds the fields the admin panel may change in bulk
type ProductEdit struct {
	ID          string
	Name        string
	Description string
	Category    string
	Price       float64
}

type Products struct {
	db *gorm.DB
}

func NewProducts(db *gorm.DB) *Products {
	return &Products{db: db}
}

func (p *Products) Create(ctx context.Context, product *model.Product) error {
	if err := p.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product, %w", err)
	}

	return nil
}

func (p *Products) FindByID(ctx context.Context, id string) (*model.Product, error) {
	var product model.Product

	err := p.db.WithContext(ctx).
		Preload("Reviews", func(db *gorm.DB) *gorm.DB { return db.Order("date asc") }).
		Where("id = ?", id).
		First(&product).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to fetch product, %w", err)
	}

	return &product, nil
}

// List returns every product with its reviews, newest first
func (p *Products) List(ctx context.Context) ([]model.Product, error) {
	products := []model.Product{}

	err := p.db.WithContext(ctx).
		Preload("Reviews", func(db *gorm.DB) *gorm.DB { return db.Order("date asc") }).
		Order("date desc").
		Find(&products).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to list products, %w", err)
	}

	return products, nil
}

// Delete removes a product and its reviews and returns the removed record so
// the caller can clean up its images
func (p *Products) Delete(ctx context.Context, id string) (*model.Product, error) {
	var product model.Product

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&product).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}

			return err
		}

		if err := tx.Where("product_id = ?", id).Delete(&model.Review{}).Error; err != nil {
			return err
		}

		return tx.Where("id = ?", id).Delete(&model.Product{}).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}

		return nil, fmt.Errorf("failed to delete product, %w", err)
	}

	return &product, nil
}

// ApplyEdits updates every product in edits inside one transaction. An unknown
// ID rolls back the whole batch.
func (p *Products) ApplyEdits(ctx context.Context, edits []ProductEdit) error {
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, e := range edits {
			r := tx.Model(&model.Product{}).
				Where("id = ?", e.ID).
				Updates(map[string]any{
					"name":        e.Name,
					"description": e.Description,
					"category":    e.Category,
					"price":       e.Price,
				})
			if r.Error != nil {
				return r.Error
			}

			if r.RowsAffected == 0 {
				return fmt.Errorf("product %s, %w", e.ID, ErrNotFound)
			}
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}

		return fmt.Errorf("failed to apply product edits, %w", err)
	}

	return nil
}

func (p *Products) AddReview(ctx context.Context, review *model.Review) error {
	var count int64

	err := p.db.WithContext(ctx).
		Model(model.Product{}).
		Where("id = ?", review.ProductID).
		Count(&count).
		Error
	if err != nil {
		return fmt.Errorf("failed to check product, %w", err)
	}

	if count == 0 {
		return ErrNotFound
	}

	if err := p.db.WithContext(ctx).Create(review).Error; err != nil {
		return fmt.Errorf("failed to add review, %w", err)
	}

	return nil
}

// Categories returns the distinct category names in alphabetical order
func (p *Products) Categories(ctx context.Context) ([]string, error) {
	categories := []string{}

	err := p.db.WithContext(ctx).
		Model(model.Product{}).
		Where("category <> ''").
		Distinct().
		Order("category asc").
		Pluck("category", &categories).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to list categories, %w", err)
	}

	return categories, nil
}
